package profile

import (
	"regexp"

	"github.com/KaramelBytes/tablescope/internal/table"
)

// duplicateBreakdownLimit bounds the cardinality for which repeated
// identifiers are listed.
const duplicateBreakdownLimit = 50

var idFormats = []struct {
	label string
	re    *regexp.Regexp
}{
	{"Numeric (as text)", digitsRe},
	{"Prefixed code", regexp.MustCompile(`^[A-Za-z]+[-_]?\d+$`)},
	{"Uppercase alphanumeric", regexp.MustCompile(`^[A-Z0-9]+$`)},
	{"Lowercase with dashes", regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)+$`)},
}

// IDStats summarises an identifier column.
type IDStats struct {
	Count               int          `json:"count" yaml:"count"`
	Unique              int          `json:"unique" yaml:"unique"`
	Missing             int          `json:"missing" yaml:"missing"`
	UniquenessPct       float64      `json:"uniqueness_pct" yaml:"uniqueness_pct"`
	IsUnique            bool         `json:"is_unique" yaml:"is_unique"`
	PotentialPrimaryKey bool         `json:"potential_primary_key" yaml:"potential_primary_key"`
	FormatType          string       `json:"format_type" yaml:"format_type"`
	Min                 *float64     `json:"min,omitempty" yaml:"min,omitempty"`
	Max                 *float64     `json:"max,omitempty" yaml:"max,omitempty"`
	Samples             []string     `json:"samples" yaml:"samples"`
	Duplicates          []ValueCount `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

func emptyIdentifier(missing int) *IDStats {
	return &IDStats{Missing: missing, FormatType: NotAvailable, Samples: []string{}}
}

// Identifier checks uniqueness and the shape of identifier values.
func Identifier(col *table.Column) *IDStats {
	nonNull := col.NonNull()
	missing := col.NullCount()
	if len(nonNull) == 0 {
		return emptyIdentifier(missing)
	}
	counts := valueCounts(nonNull)
	unique := len(counts)
	st := &IDStats{
		Count:         len(nonNull),
		Unique:        unique,
		Missing:       missing,
		UniquenessPct: pct(unique, len(nonNull)),
		IsUnique:      unique == len(nonNull),
	}
	st.PotentialPrimaryKey = st.IsUnique && missing == 0

	numeric := true
	nums := make([]float64, 0, len(nonNull))
	for _, v := range nonNull {
		f, ok := table.Float(v)
		if !ok {
			numeric = false
			break
		}
		nums = append(nums, f)
	}
	if numeric {
		sorted := sortedCopy(nums)
		st.Min, st.Max = finite(sorted[0]), finite(sorted[len(sorted)-1])
		st.FormatType = numericIDFormat(sorted)
	} else {
		strs := make([]string, len(nonNull))
		for i, v := range nonNull {
			strs[i] = table.Format(v)
		}
		st.FormatType = textIDFormat(strs)
	}

	st.Samples = make([]string, 0, maxSamples)
	for _, v := range table.Distinct(nonNull) {
		if len(st.Samples) == maxSamples {
			break
		}
		st.Samples = append(st.Samples, table.Format(v))
	}

	if !st.IsUnique && unique <= duplicateBreakdownLimit {
		for _, c := range counts {
			if c.Count > 1 {
				st.Duplicates = append(st.Duplicates, c)
			}
		}
	}
	return st
}

// numericIDFormat reports "Sequential numeric" when the distinct sorted
// values step by exactly one.
func numericIDFormat(sorted []float64) string {
	uniq := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) < 2 {
		return "Numeric"
	}
	for i := 1; i < len(uniq); i++ {
		if uniq[i]-uniq[i-1] != 1 {
			return "Numeric"
		}
	}
	return "Sequential numeric"
}

func textIDFormat(strs []string) string {
	for _, f := range idFormats {
		if majority(strs, f.re.MatchString) {
			return f.label
		}
	}
	return "Mixed"
}
