package table

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

type timeKey int64

// Key returns a comparable identity for a value. Integers and floats with the
// same numeric value share a key; times compare by instant.
func Key(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case time.Time:
		return timeKey(x.UnixNano())
	default:
		return v
	}
}

// Distinct returns the distinct non-null values in order of first appearance.
func Distinct(values []any) []any {
	seen := make(map[any]struct{})
	var out []any
	for _, v := range values {
		if v == nil {
			continue
		}
		k := Key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Format renders a value the way it is shown in reports and matched against
// text patterns. Missing values render as the empty string.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(DateTimeLayout)
	default:
		return cast.ToString(x)
	}
}

// IsNumber reports whether v is a native numeric value.
func IsNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// Float returns the numeric value of a native number.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// ToFloat converts a value to float64 when it has an unambiguous numeric
// reading: native numbers, booleans and numeric strings.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil, time.Time:
		return 0, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := cast.ToFloat64E(s)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Floats extracts the numeric values of a column, skipping missing and
// non-numeric entries.
func Floats(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}
