package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tablescope/internal/classify"
)

const maxCorrPairs = 10

// Markdown renders a compact report suitable for terminals or prompts.
func (r *Report) Markdown() string {
	var b strings.Builder
	ov := r.Overview
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", ov.Rows)
	fmt.Fprintf(&b, "Columns: %d\n", ov.Columns)
	fmt.Fprintf(&b, "Duplicate rows: %d\n\n", ov.Duplicates)

	b.WriteString("[SCHEMA]\n")
	var notes []string
	for _, name := range ov.ColumnNames {
		c, ok := r.Columns[name]
		if !ok {
			continue
		}
		missPct := 0.0
		if ov.Rows > 0 {
			missPct = float64(ov.MissingValues[name]) * 100 / float64(ov.Rows)
		}
		kind := string(c.Type)
		if c.SemanticType != "" {
			kind += "/" + string(c.SemanticType)
		}
		fmt.Fprintf(&b, "- %s: %s (confidence %.2f, missing %.1f%%); %s\n",
			safeName(name), kind, c.Confidence, missPct, safeVal(Headline(c)))
		notes = append(notes, columnNotes(name, c)...)
	}

	if cr := r.Correlations; cr != nil && len(cr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range topPairs(cr, maxCorrPairs) {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.a, p.b, p.r)
		}
	}
	if ov.Duplicates > 0 {
		notes = append(notes, fmt.Sprintf("%d duplicate rows", ov.Duplicates))
	}
	if len(notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	if r.Insight != "" {
		b.WriteString("\n[INSIGHT]\n")
		b.WriteString(strings.TrimSpace(r.Insight))
		b.WriteString("\n")
	}
	return b.String()
}

func columnNotes(name string, c ColumnReport) []string {
	var out []string
	if c.Type != classify.ID && c.Confidence > 0 && c.Confidence < 0.8 {
		out = append(out, fmt.Sprintf("%s: low confidence classification (%.2f)", safeName(name), c.Confidence))
	}
	if b := c.Analysis; b != nil {
		if b.Numeric != nil && b.Numeric.Outliers > 0 {
			out = append(out, fmt.Sprintf("%s: %d outliers (%.1f%%)", safeName(name), b.Numeric.Outliers, b.Numeric.OutlierPct))
		}
		if b.Categorical != nil && b.Categorical.RemainingCategories > 0 {
			out = append(out, fmt.Sprintf("%s: %d more categories not shown", safeName(name), b.Categorical.RemainingCategories))
		}
		if b.ID != nil && b.ID.PotentialPrimaryKey {
			out = append(out, fmt.Sprintf("%s: potential primary key", safeName(name)))
		}
	}
	return out
}

type corrPair struct {
	a, b string
	r    float64
}

func topPairs(cr *Correlations, limit int) []corrPair {
	var pairs []corrPair
	for i := range cr.Columns {
		for j := i + 1; j < len(cr.Columns); j++ {
			pairs = append(pairs, corrPair{a: cr.Columns[i], b: cr.Columns[j], r: cr.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].r) > math.Abs(pairs[j].r)
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
