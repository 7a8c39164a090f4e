package profile

import "github.com/KaramelBytes/tablescope/internal/table"

// Cardinality tiers control how much of a frequency table is shown.
const (
	CardinalityLow      = "low"
	CardinalityMedium   = "medium"
	CardinalityHigh     = "high"
	CardinalityVeryHigh = "very_high"
)

// CategoricalStats summarises a categorical column.
type CategoricalStats struct {
	Count               int          `json:"count" yaml:"count"`
	Unique              int          `json:"unique" yaml:"unique"`
	Missing             int          `json:"missing" yaml:"missing"`
	Mode                *string      `json:"mode" yaml:"mode"`
	ModeFreq            int          `json:"mode_freq" yaml:"mode_freq"`
	ModePct             float64      `json:"mode_pct" yaml:"mode_pct"`
	Diversity           string       `json:"diversity" yaml:"diversity"`
	CardinalityLevel    string       `json:"cardinality_level,omitempty" yaml:"cardinality_level,omitempty"`
	ChartLimit          int          `json:"chart_limit" yaml:"chart_limit"`
	ValueCounts         []ValueCount `json:"value_counts" yaml:"value_counts"`
	RemainingCategories int          `json:"remaining_categories" yaml:"remaining_categories"`
}

func emptyCategorical(missing int) *CategoricalStats {
	return &CategoricalStats{Missing: missing, Diversity: NotAvailable, ValueCounts: []ValueCount{}}
}

// Categorical builds the frequency table of col, truncated by cardinality tier.
func Categorical(col *table.Column) *CategoricalStats {
	counts := valueCounts(col.Values)
	if len(counts) == 0 {
		return emptyCategorical(col.NullCount())
	}
	count := col.Len() - col.NullCount()
	unique := len(counts)
	display, chart, level := displayLimits(unique)

	mode := counts[0].Value
	return &CategoricalStats{
		Count:               count,
		Unique:              unique,
		Missing:             col.NullCount(),
		Mode:                &mode,
		ModeFreq:            counts[0].Count,
		ModePct:             pct(counts[0].Count, count),
		Diversity:           diversity(float64(unique) / float64(count)),
		CardinalityLevel:    level,
		ChartLimit:          chart,
		ValueCounts:         counts[:display],
		RemainingCategories: max(unique-display, 0),
	}
}

// displayLimits never returns limits above unique.
func displayLimits(unique int) (display, chart int, level string) {
	switch {
	case unique <= 10:
		display, chart, level = unique, unique, CardinalityLow
	case unique <= 30:
		display, chart, level = 15, 12, CardinalityMedium
	case unique <= 100:
		display, chart, level = 10, 10, CardinalityHigh
	default:
		display, chart, level = 10, 10, CardinalityVeryHigh
	}
	return min(display, unique), min(chart, unique), level
}

func diversity(ratio float64) string {
	switch {
	case ratio < 0.1:
		return "Low diversity"
	case ratio < 0.5:
		return "Medium diversity"
	case ratio < 0.9:
		return "High diversity"
	default:
		return "Very high diversity (might be ID/text)"
	}
}
