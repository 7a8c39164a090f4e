// Package profile computes type-specific statistics for a classified column.
package profile

import (
	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/table"
)

// NotAvailable labels a descriptive field that could not be computed.
const NotAvailable = "N/A"

// Bundle is the statistics record for one column. Exactly one of the
// per-type fields is set, matching Kind.
type Bundle struct {
	Kind        classify.BaseType `json:"kind" yaml:"kind"`
	Numeric     *NumericStats     `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty" yaml:"categorical,omitempty"`
	Text        *TextStats        `json:"text,omitempty" yaml:"text,omitempty"`
	Datetime    *DatetimeStats    `json:"datetime,omitempty" yaml:"datetime,omitempty"`
	ID          *IDStats          `json:"id,omitempty" yaml:"id,omitempty"`
}

// Count returns the number of non-null values profiled.
func (b *Bundle) Count() int {
	switch {
	case b == nil:
		return 0
	case b.Numeric != nil:
		return b.Numeric.Count
	case b.Categorical != nil:
		return b.Categorical.Count
	case b.Text != nil:
		return b.Text.Count
	case b.Datetime != nil:
		return b.Datetime.Count
	case b.ID != nil:
		return b.ID.Count
	}
	return 0
}

// Missing returns the null count of the profiled column.
func (b *Bundle) Missing() int {
	switch {
	case b == nil:
		return 0
	case b.Numeric != nil:
		return b.Numeric.Missing
	case b.Categorical != nil:
		return b.Categorical.Missing
	case b.Text != nil:
		return b.Text.Missing
	case b.Datetime != nil:
		return b.Datetime.Missing
	case b.ID != nil:
		return b.ID.Missing
	}
	return 0
}

// Unique returns the distinct non-null count where the bundle tracks it.
func (b *Bundle) Unique() int {
	switch {
	case b == nil:
		return 0
	case b.Categorical != nil:
		return b.Categorical.Unique
	case b.Text != nil:
		return b.Text.Unique
	case b.Datetime != nil:
		return b.Datetime.Unique
	case b.ID != nil:
		return b.ID.Unique
	}
	return 0
}

// Profiler dispatches a column to the routine for its base type.
type Profiler struct {
	logger *zap.Logger
}

// New returns a profiler; a nil logger discards output.
func New(logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{logger: logger.Named("profile")}
}

// Profile computes the bundle for col under cls. It never panics: a failure
// inside a routine yields the empty bundle for that type.
func (p *Profiler) Profile(col *table.Column, cls classify.Classification) (b *Bundle) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("profiling recovered from panic",
				zap.String("column", col.Name),
				zap.String("type", string(cls.BaseType)),
				zap.Any("panic", r))
			b = Empty(cls.BaseType, col.NullCount())
		}
	}()
	switch cls.BaseType {
	case classify.Numeric:
		return &Bundle{Kind: cls.BaseType, Numeric: Numeric(col)}
	case classify.Categorical:
		return &Bundle{Kind: cls.BaseType, Categorical: Categorical(col)}
	case classify.Datetime:
		return &Bundle{Kind: cls.BaseType, Datetime: Datetime(col)}
	case classify.ID:
		return &Bundle{Kind: cls.BaseType, ID: Identifier(col)}
	default:
		return &Bundle{Kind: classify.Text, Text: Text(col)}
	}
}

// Empty returns the zero-data bundle for a base type.
func Empty(kind classify.BaseType, missing int) *Bundle {
	switch kind {
	case classify.Numeric:
		return &Bundle{Kind: kind, Numeric: emptyNumeric(missing)}
	case classify.Categorical:
		return &Bundle{Kind: kind, Categorical: emptyCategorical(missing)}
	case classify.Datetime:
		return &Bundle{Kind: kind, Datetime: &DatetimeStats{Missing: missing}}
	case classify.ID:
		return &Bundle{Kind: kind, ID: emptyIdentifier(missing)}
	default:
		return &Bundle{Kind: classify.Text, Text: emptyText(missing)}
	}
}
