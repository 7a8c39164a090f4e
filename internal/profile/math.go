package profile

import (
	"math"
	"sort"

	"github.com/KaramelBytes/tablescope/internal/table"
)

// finite returns a pointer to f, or nil when f is NaN or infinite.
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

// stddev is the sample standard deviation; NaN below two values.
func stddev(vals []float64, m float64) float64 {
	n := len(vals)
	if n < 2 {
		return math.NaN()
	}
	ss := 0.0
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// skewness is the adjusted Fisher-Pearson coefficient G1. It is undefined
// below three values and zero for constant data.
func skewness(vals []float64, m float64) (float64, bool) {
	n := float64(len(vals))
	if len(vals) < 3 {
		return 0, false
	}
	var m2, m3 float64
	for _, v := range vals {
		d := v - m
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0, true
	}
	g1 := m3 / math.Pow(m2, 1.5)
	return math.Sqrt(n*(n-1)) / (n - 2) * g1, true
}

func sortedCopy(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// ValueCount is one row of a frequency table.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// valueCounts counts non-null values by identity, most frequent first;
// ties keep first-appearance order.
func valueCounts(values []any) []ValueCount {
	idx := make(map[any]int)
	var out []ValueCount
	for _, v := range values {
		if v == nil {
			continue
		}
		k := table.Key(v)
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, ValueCount{Value: table.Format(v), Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// majority reports whether strictly more than half of vals satisfy match.
func majority(vals []string, match func(string) bool) bool {
	n := 0
	for _, s := range vals {
		if match(s) {
			n++
		}
	}
	return float64(n) > float64(len(vals))*0.5
}
