package profile

import (
	"time"

	"github.com/KaramelBytes/tablescope/internal/table"
)

// DatetimeStats summarises a temporal column.
type DatetimeStats struct {
	Count      int     `json:"count" yaml:"count"`
	Unique     int     `json:"unique" yaml:"unique"`
	Missing    int     `json:"missing" yaml:"missing"`
	MinDate    *string `json:"min_date" yaml:"min_date"`
	MaxDate    *string `json:"max_date" yaml:"max_date"`
	RangeDays  int     `json:"range_days" yaml:"range_days"`
	MostCommon *string `json:"most_common" yaml:"most_common"`
}

// Times returns the temporal values of a column in row order.
func Times(values []any) []time.Time {
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		if t, ok := v.(time.Time); ok {
			out = append(out, t)
		}
	}
	return out
}

// Datetime reports the span of the temporal values in col. Non-temporal
// values are not counted.
func Datetime(col *table.Column) *DatetimeStats {
	missing := col.NullCount()
	times := Times(col.Values)
	if len(times) == 0 {
		return &DatetimeStats{Missing: missing}
	}
	lo, hi := times[0], times[0]
	asAny := make([]any, len(times))
	for i, t := range times {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
		asAny[i] = t
	}
	counts := valueCounts(asAny)
	minDate, maxDate := lo.Format(table.DateTimeLayout), hi.Format(table.DateTimeLayout)
	common := counts[0].Value
	return &DatetimeStats{
		Count:      len(times),
		Unique:     len(counts),
		Missing:    missing,
		MinDate:    &minDate,
		MaxDate:    &maxDate,
		RangeDays:  int(hi.Sub(lo) / (24 * time.Hour)),
		MostCommon: &common,
	}
}
