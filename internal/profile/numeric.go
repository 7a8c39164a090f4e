package profile

import (
	"math"

	"github.com/KaramelBytes/tablescope/internal/table"
)

// Distribution shape labels derived from skewness.
const (
	ShapeNormal        = "Normal"
	ShapeRightSkewed   = "Right-skewed"
	ShapeHighRightSkew = "Highly right-skewed"
	ShapeLeftSkewed    = "Left-skewed"
	ShapeHighLeftSkew  = "Highly left-skewed"
	ShapeUnknown       = "Unknown"
)

const tukeyFence = 1.5

// NumericStats summarises a numeric column. Nullable fields are nil when the
// value is undefined or not finite.
type NumericStats struct {
	Count             int      `json:"count" yaml:"count"`
	Missing           int      `json:"missing" yaml:"missing"`
	Mean              *float64 `json:"mean" yaml:"mean"`
	Median            *float64 `json:"median" yaml:"median"`
	Std               *float64 `json:"std" yaml:"std"`
	Min               *float64 `json:"min" yaml:"min"`
	Max               *float64 `json:"max" yaml:"max"`
	Q25               *float64 `json:"q25" yaml:"q25"`
	Q75               *float64 `json:"q75" yaml:"q75"`
	Outliers          int      `json:"outliers" yaml:"outliers"`
	OutlierPct        float64  `json:"outlier_pct" yaml:"outlier_pct"`
	TypicalMin        *float64 `json:"typical_min" yaml:"typical_min"`
	TypicalMax        *float64 `json:"typical_max" yaml:"typical_max"`
	Zeros             int      `json:"zeros" yaml:"zeros"`
	Negatives         int      `json:"negatives" yaml:"negatives"`
	Skewness          *float64 `json:"skewness" yaml:"skewness"`
	DistributionShape string   `json:"distribution_shape" yaml:"distribution_shape"`
}

func emptyNumeric(missing int) *NumericStats {
	return &NumericStats{Missing: missing, DistributionShape: NotAvailable}
}

// Numeric profiles the numeric readings of col. Values without one are
// ignored.
func Numeric(col *table.Column) *NumericStats {
	vals := table.Floats(col.Values)
	if len(vals) == 0 {
		return emptyNumeric(col.NullCount())
	}
	sorted := sortedCopy(vals)
	m := mean(vals)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower, upper := q1-tukeyFence*iqr, q3+tukeyFence*iqr

	st := &NumericStats{
		Count:   len(vals),
		Missing: col.NullCount(),
		Mean:    finite(m),
		Median:  finite(quantile(sorted, 0.5)),
		Std:     finite(stddev(vals, m)),
		Min:     finite(sorted[0]),
		Max:     finite(sorted[len(sorted)-1]),
		Q25:     finite(q1),
		Q75:     finite(q3),
	}

	typMin, typMax := math.Inf(1), math.Inf(-1)
	for _, v := range sorted {
		if v < lower || v > upper {
			st.Outliers++
		} else {
			typMin = math.Min(typMin, v)
			typMax = math.Max(typMax, v)
		}
		if v == 0 {
			st.Zeros++
		} else if v < 0 {
			st.Negatives++
		}
	}
	st.OutlierPct = pct(st.Outliers, len(vals))
	if st.Outliers < len(vals) {
		st.TypicalMin, st.TypicalMax = finite(typMin), finite(typMax)
	}

	if skew, ok := skewness(vals, m); ok {
		st.Skewness = finite(skew)
	}
	st.DistributionShape = shape(st.Skewness)
	return st
}

func shape(skew *float64) string {
	if skew == nil {
		return ShapeUnknown
	}
	s := *skew
	switch {
	case math.Abs(s) < 0.5:
		return ShapeNormal
	case s > 1:
		return ShapeHighRightSkew
	case s > 0.5:
		return ShapeRightSkewed
	case s < -1:
		return ShapeHighLeftSkew
	default:
		return ShapeLeftSkewed
	}
}
