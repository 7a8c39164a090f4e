// Package chart turns a profiled column into a renderer-neutral chart spec.
package chart

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/profile"
	"github.com/KaramelBytes/tablescope/internal/table"
)

// Kind names the chart shape.
type Kind string

const (
	Histogram Kind = "histogram"
	Bar       Kind = "bar"
	Heatmap   Kind = "heatmap"
)

// MaxBins caps histogram resolution.
const MaxBins = 30

// Spec is a chart description any front end can draw. Labels and Values are
// parallel; Matrix is used by heatmaps only.
type Spec struct {
	Kind   Kind        `json:"kind" yaml:"kind"`
	Title  string      `json:"title" yaml:"title"`
	XLabel string      `json:"x_label" yaml:"x_label"`
	YLabel string      `json:"y_label" yaml:"y_label"`
	Labels []string    `json:"labels" yaml:"labels"`
	Values []float64   `json:"values,omitempty" yaml:"values,omitempty"`
	Matrix [][]float64 `json:"matrix,omitempty" yaml:"matrix,omitempty"`
}

// Builder produces a chart for a column, or nil when the type has none.
type Builder interface {
	Build(col *table.Column, cls classify.Classification, b *profile.Bundle) *Spec
}

// DefaultBuilder draws histograms for numeric and datetime columns and a
// bar chart of the leading categories.
type DefaultBuilder struct{}

func (DefaultBuilder) Build(col *table.Column, cls classify.Classification, b *profile.Bundle) *Spec {
	if b == nil || b.Count() == 0 {
		return nil
	}
	switch cls.BaseType {
	case classify.Numeric:
		return numericHistogram(col)
	case classify.Categorical:
		if b.Categorical == nil {
			return nil
		}
		return categoryBar(col.Name, b.Categorical)
	case classify.Datetime:
		return dateHistogram(col)
	}
	return nil
}

func numericHistogram(col *table.Column) *Spec {
	vals := make([]float64, 0, col.Len())
	for _, f := range table.Floats(col.Values) {
		if !math.IsInf(f, 0) {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	edges, counts := bin(vals, binCount(vals))
	labels := make([]string, len(counts))
	for i := range counts {
		labels[i] = fmt.Sprintf("%.4g to %.4g", edges[i], edges[i+1])
	}
	return &Spec{
		Kind:   Histogram,
		Title:  "Distribution of " + col.Name,
		XLabel: col.Name,
		YLabel: "Count",
		Labels: labels,
		Values: counts,
	}
}

func categoryBar(name string, st *profile.CategoricalStats) *Spec {
	n := min(st.ChartLimit, len(st.ValueCounts))
	s := &Spec{
		Kind:   Bar,
		Title:  "Top values of " + name,
		XLabel: name,
		YLabel: "Count",
		Labels: make([]string, n),
		Values: make([]float64, n),
	}
	if st.Unique <= n {
		s.Title = "Distribution of " + name
	}
	for i := 0; i < n; i++ {
		s.Labels[i] = st.ValueCounts[i].Value
		s.Values[i] = float64(st.ValueCounts[i].Count)
	}
	return s
}

func dateHistogram(col *table.Column) *Spec {
	times := profile.Times(col.Values)
	if len(times) == 0 {
		return nil
	}
	secs := make([]float64, len(times))
	for i, t := range times {
		secs[i] = float64(t.Unix())
	}
	edges, counts := bin(secs, binCount(secs))
	labels := make([]string, len(counts))
	for i := range counts {
		labels[i] = time.Unix(int64(edges[i]), 0).UTC().Format("2006-01-02")
	}
	return &Spec{
		Kind:   Histogram,
		Title:  "Distribution of " + col.Name,
		XLabel: col.Name,
		YLabel: "Count",
		Labels: labels,
		Values: counts,
	}
}

// CorrelationHeatmap draws a symmetric matrix over the named columns.
func CorrelationHeatmap(names []string, matrix [][]float64) *Spec {
	if len(names) < 2 {
		return nil
	}
	return &Spec{
		Kind:   Heatmap,
		Title:  "Correlation Heatmap",
		Labels: append([]string(nil), names...),
		Matrix: matrix,
	}
}

func binCount(vals []float64) int {
	seen := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
		if len(seen) >= MaxBins {
			return MaxBins
		}
	}
	return len(seen)
}

// bin splits [min, max] into n equal-width bins. The last bin is closed.
func bin(vals []float64, n int) ([]float64, []float64) {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if n < 1 || lo == hi {
		return []float64{lo, hi}, []float64{float64(len(vals))}
	}
	// Scale before subtracting so spans near the float limits stay finite.
	width := hi/float64(n) - lo/float64(n)
	if width <= 0 || math.IsInf(width, 0) || math.IsNaN(width) {
		return []float64{lo, hi}, []float64{float64(len(vals))}
	}
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = lo + width*float64(i)
	}
	edges[0], edges[n] = lo, hi
	counts := make([]float64, n)
	for _, v := range sorted {
		pos := v/width - lo/width
		i := 0
		if !math.IsNaN(pos) && pos > 0 {
			i = int(math.Min(pos, float64(n-1)))
		}
		counts[i]++
	}
	return edges, counts
}
