package analysis

import (
	"fmt"

	"github.com/KaramelBytes/tablescope/internal/chart"
	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/profile"
	"github.com/KaramelBytes/tablescope/internal/semantic"
)

// Overview summarises the table as a whole.
type Overview struct {
	Rows          int                                `json:"rows" yaml:"rows"`
	Columns       int                                `json:"columns" yaml:"columns"`
	ColumnNames   []string                           `json:"column_names" yaml:"column_names"`
	ColumnTypes   map[string]classify.Classification `json:"column_types" yaml:"column_types"`
	MissingValues map[string]int                     `json:"missing_values" yaml:"missing_values"`
	Duplicates    int                                `json:"duplicates" yaml:"duplicates"`
}

// ColumnReport is the classification and statistics of one column.
type ColumnReport struct {
	Type         classify.BaseType `json:"type" yaml:"type"`
	SemanticType semantic.Type     `json:"semantic_type" yaml:"semantic_type"`
	Confidence   float64           `json:"confidence" yaml:"confidence"`
	Analysis     *profile.Bundle   `json:"analysis" yaml:"analysis"`
	Chart        *chart.Spec       `json:"chart,omitempty" yaml:"chart,omitempty"`
}

// Correlations is a symmetric Pearson matrix across numeric columns.
type Correlations struct {
	Columns []string    `json:"columns" yaml:"columns"`
	Values  [][]float64 `json:"values" yaml:"values"`
	Chart   *chart.Spec `json:"chart,omitempty" yaml:"chart,omitempty"`
}

// Report is the complete analysis of a table.
type Report struct {
	Name         string                  `json:"name,omitempty" yaml:"name,omitempty"`
	Overview     Overview                `json:"overview" yaml:"overview"`
	Columns      map[string]ColumnReport `json:"columns" yaml:"columns"`
	Correlations *Correlations           `json:"correlations,omitempty" yaml:"correlations,omitempty"`
	// Insight is an optional model-written description of the dataset.
	Insight string `json:"insight,omitempty" yaml:"insight,omitempty"`
}

// Headline returns the single most telling statistic of a column.
func Headline(c ColumnReport) string {
	b := c.Analysis
	if b == nil || b.Count() == 0 {
		return "no values"
	}
	switch {
	case b.Numeric != nil:
		return "mean " + num(b.Numeric.Mean)
	case b.Categorical != nil:
		return fmt.Sprintf("%d unique values", b.Categorical.Unique)
	case b.Datetime != nil:
		return fmt.Sprintf("%s to %s", str(b.Datetime.MinDate), str(b.Datetime.MaxDate))
	case b.ID != nil:
		return fmt.Sprintf("%d unique, %s", b.ID.Unique, b.ID.FormatType)
	case b.Text != nil:
		return fmt.Sprintf("%d unique", b.Text.Unique)
	}
	return "no values"
}

func num(f *float64) string {
	if f == nil {
		return profile.NotAvailable
	}
	return fmt.Sprintf("%.4g", *f)
}

func str(s *string) string {
	if s == nil {
		return profile.NotAvailable
	}
	return *s
}
