// Package analysis classifies and profiles every column of a table.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tablescope/internal/chart"
	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/profile"
	"github.com/KaramelBytes/tablescope/internal/table"
)

// Analyzer owns a table and one classification per column. It is safe for
// concurrent use.
type Analyzer struct {
	mu      sync.RWMutex
	name    string
	columns []*table.Column
	// loaded holds each column as read; every reinterpretation starts here.
	loaded  []*table.Column
	index   map[string]int
	records []classify.Classification

	classifier   *classify.Classifier
	profiler     *profile.Profiler
	charts       chart.Builder
	workers      int
	correlations bool
	logger       *zap.Logger
}

type Option func(*Analyzer)

func WithName(name string) Option { return func(a *Analyzer) { a.name = name } }

func WithClassifier(c *classify.Classifier) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.classifier = c
		}
	}
}

func WithProfiler(p *profile.Profiler) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.profiler = p
		}
	}
}

// WithCharts attaches chart specs to column reports. nil disables charts.
func WithCharts(b chart.Builder) Option { return func(a *Analyzer) { a.charts = b } }

// WithWorkers bounds concurrent profiling in AnalyzeAll.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithCorrelations toggles the Pearson matrix in AnalyzeAll.
func WithCorrelations(on bool) Option { return func(a *Analyzer) { a.correlations = on } }

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New classifies every column of t once. Columns are copied, so replacement
// values never reach the caller's table.
func New(t *table.Table, opts ...Option) *Analyzer {
	a := &Analyzer{
		charts:       chart.DefaultBuilder{},
		workers:      runtime.NumCPU(),
		correlations: true,
		logger:       zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.Named("analysis")
	if a.classifier == nil {
		a.classifier = classify.New(nil, nil, classify.WithLogger(a.logger))
	}
	if a.profiler == nil {
		a.profiler = profile.New(a.logger)
	}
	if t == nil {
		t = &table.Table{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.columns = make([]*table.Column, len(t.Columns))
	a.loaded = make([]*table.Column, len(t.Columns))
	a.records = make([]classify.Classification, len(t.Columns))
	a.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		col := c.Clone()
		a.loaded[i] = col
		res := a.classifier.Classify(col)
		if res.Replacement != nil {
			col = table.NewColumn(col.Name, res.Replacement)
		}
		a.columns[i] = col
		a.records[i] = res.Classification
		a.index[col.Name] = i
	}
	a.logger.Debug("table classified", zap.String("name", a.name), zap.Int("columns", len(a.columns)))
	return a
}

// Name is the dataset label, usually the source filename.
func (a *Analyzer) Name() string { return a.name }

// Overview reports table-level counts and the current classifications.
func (a *Analyzer) Overview() Overview {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.overview()
}

func (a *Analyzer) overview() Overview {
	t := &table.Table{Columns: a.columns}
	ov := Overview{
		Rows:          t.RowCount(),
		Columns:       len(a.columns),
		ColumnNames:   t.Names(),
		ColumnTypes:   make(map[string]classify.Classification, len(a.columns)),
		MissingValues: t.MissingCounts(),
		Duplicates:    t.DuplicateRows(),
	}
	for i, c := range a.columns {
		ov.ColumnTypes[c.Name] = a.records[i]
	}
	return ov
}

// Classification returns the current record for a column.
func (a *Analyzer) Classification(column string) (classify.Classification, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i, ok := a.index[column]
	if !ok {
		return classify.Classification{}, false
	}
	return a.records[i], true
}

// AnalyzeColumn profiles a single column under its current classification.
func (a *Analyzer) AnalyzeColumn(column string) (*ColumnReport, error) {
	a.mu.RLock()
	i, ok := a.index[column]
	if !ok {
		a.mu.RUnlock()
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	col, cls := a.columns[i], a.records[i]
	a.mu.RUnlock()
	r := a.columnReport(col, cls)
	return &r, nil
}

func (a *Analyzer) columnReport(col *table.Column, cls classify.Classification) ColumnReport {
	b := a.profiler.Profile(col, cls)
	r := ColumnReport{
		Type:         cls.BaseType,
		SemanticType: cls.SemanticType,
		Confidence:   cls.Confidence,
		Analysis:     b,
	}
	if a.charts != nil {
		r.Chart = a.buildChart(col, cls, b)
	}
	return r
}

// buildChart drops the chart of a column whose builder panics.
func (a *Analyzer) buildChart(col *table.Column, cls classify.Classification, b *profile.Bundle) (spec *chart.Spec) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("chart build panicked", zap.String("column", col.Name), zap.Any("panic", r))
			spec = nil
		}
	}()
	return a.charts.Build(col, cls, b)
}

// AnalyzeAll profiles every column concurrently and assembles the report.
// It works on a snapshot, so a concurrent Override affects the next call only.
func (a *Analyzer) AnalyzeAll(ctx context.Context) (*Report, error) {
	a.mu.RLock()
	cols := append([]*table.Column(nil), a.columns...)
	recs := append([]classify.Classification(nil), a.records...)
	ov := a.overview()
	a.mu.RUnlock()

	reports := make([]ColumnReport, len(cols))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range cols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = a.columnReport(cols[i], recs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze columns: %w", err)
	}

	rep := &Report{Name: a.name, Overview: ov, Columns: make(map[string]ColumnReport, len(cols))}
	for i, c := range cols {
		rep.Columns[c.Name] = reports[i]
	}
	rep.Correlations = a.correlate(cols, recs)
	a.logger.Debug("analysis complete", zap.String("name", a.name), zap.Int("columns", len(cols)))
	return rep, nil
}

// Correlations recomputes the matrix under the current classifications.
// It is nil when disabled or when fewer than two columns are numeric.
func (a *Analyzer) Correlations() *Correlations {
	a.mu.RLock()
	cols := append([]*table.Column(nil), a.columns...)
	recs := append([]classify.Classification(nil), a.records...)
	a.mu.RUnlock()
	return a.correlate(cols, recs)
}

func (a *Analyzer) correlate(cols []*table.Column, recs []classify.Classification) *Correlations {
	if !a.correlations {
		return nil
	}
	c := correlate(cols, recs)
	if c != nil && a.charts != nil {
		c.Chart = chart.CorrelationHeatmap(c.Columns, c.Values)
	}
	return c
}

// Override forces a column to baseType. The classification record and the
// column values are replaced together; on error neither changes. Values are
// always reinterpreted from the column as loaded, so overrides do not compound.
func (a *Analyzer) Override(column, baseType string) (*ColumnReport, error) {
	target, err := classify.ParseBaseType(baseType)
	if err != nil {
		return nil, &OverrideError{Column: column, Type: baseType, Err: err}
	}

	a.mu.Lock()
	i, ok := a.index[column]
	if !ok {
		a.mu.Unlock()
		return nil, &OverrideError{Column: column, Type: baseType, Err: ErrColumnNotFound}
	}
	res, err := a.classifier.Override(a.loaded[i], a.records[i], target)
	if err != nil {
		a.mu.Unlock()
		return nil, &OverrideError{Column: column, Type: baseType, Err: err}
	}
	switch {
	case res.Replacement != nil:
		a.columns[i] = table.NewColumn(column, res.Replacement)
	case res.Classification.BaseType != a.records[i].BaseType:
		a.columns[i] = a.loaded[i]
	}
	a.records[i] = res.Classification
	col, cls := a.columns[i], a.records[i]
	a.mu.Unlock()

	a.logger.Info("column type overridden",
		zap.String("column", column),
		zap.String("type", string(cls.BaseType)))
	r := a.columnReport(col, cls)
	return &r, nil
}

// IsOverrideError reports whether err came from a rejected Override.
func IsOverrideError(err error) bool {
	var oe *OverrideError
	return errors.As(err, &oe)
}
