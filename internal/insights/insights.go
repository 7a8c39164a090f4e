// Package insights asks a local language model what a dataset is about.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/ai"
	"github.com/KaramelBytes/tablescope/internal/analysis"
	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/utils"
)

const (
	// DefaultModel is a small model that answers in well under a second on CPU.
	DefaultModel = "qwen2.5:0.5b"

	systemPrompt = "You are a data analyst. Given information about a dataset, provide a brief 2-3 sentence insight about what the dataset appears to be about and its likely purpose. Be concise and specific."

	maxPromptColumns = 20
	temperature      = 0.3
	maxTokens        = 150
)

// ErrDisabled is returned by a Generator built without a runtime.
var ErrDisabled = errors.New("insight generation disabled")

// Generator turns a report into a short natural language description.
type Generator struct {
	runtime ai.Runtime
	model   string
	logger  *zap.Logger
}

// New returns a Generator. A nil runtime yields a Generator whose Generate
// always fails with ErrDisabled.
func New(rt ai.Runtime, model string, logger *zap.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{runtime: rt, model: model, logger: logger.Named("insights")}
}

// Model returns the model name sent with each request.
func (g *Generator) Model() string { return g.model }

// Available reports whether the runtime is reachable and has the model.
// Runtimes that cannot list models are assumed available.
func (g *Generator) Available(ctx context.Context) bool {
	if g.runtime == nil {
		return false
	}
	lister, ok := g.runtime.(interface {
		HasModel(ctx context.Context, model string) (bool, error)
	})
	if !ok {
		return true
	}
	has, err := lister.HasModel(ctx, g.model)
	if err != nil {
		g.logger.Debug("model check failed", zap.String("model", g.model), zap.Error(err))
		return false
	}
	return has
}

// Generate returns the model's description of the dataset.
func (g *Generator) Generate(ctx context.Context, rep *analysis.Report) (string, error) {
	if g.runtime == nil {
		return "", ErrDisabled
	}
	if rep == nil {
		return "", errors.New("nil report")
	}
	prompt := BuildPrompt(rep)
	est := utils.TokenBreakdown(map[string]string{"system": systemPrompt, "user": prompt})
	g.logger.Debug("requesting insight", zap.String("model", g.model),
		zap.Int("system_tokens", est["system"]), zap.Int("prompt_tokens", est["user"]))
	resp, err := g.runtime.Generate(ctx, ai.GenerateRequest{
		Model: g.model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		g.logger.Warn("insight generation failed", zap.String("model", g.model), zap.Error(err))
		return "", fmt.Errorf("generate insight: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// BuildPrompt summarises the report in a compact form: the shape, then one
// line per column (first 20) with its type and a key statistic.
func BuildPrompt(rep *analysis.Report) string {
	ov := rep.Overview
	lines := []string{
		fmt.Sprintf("Dataset: %d rows, %d columns", ov.Rows, ov.Columns),
		"\nColumns:",
	}
	for i, name := range ov.ColumnNames {
		if i == maxPromptColumns {
			break
		}
		typ := "unknown"
		if cls, ok := ov.ColumnTypes[name]; ok {
			typ = string(cls.BaseType)
		}
		lines = append(lines, fmt.Sprintf("  - %s [%s] %s", name, typ, keyStat(classify.BaseType(typ), rep.Columns[name])))
	}
	if n := len(ov.ColumnNames); n > maxPromptColumns {
		lines = append(lines, fmt.Sprintf("  ... and %d more columns", n-maxPromptColumns))
	}
	lines = append(lines, "\nWhat is this dataset likely about and what might it be used for?")
	return strings.Join(lines, "\n")
}

func keyStat(typ classify.BaseType, c analysis.ColumnReport) string {
	b := c.Analysis
	switch typ {
	case classify.Numeric:
		if b != nil && b.Numeric != nil && b.Numeric.Mean != nil {
			return fmt.Sprintf("(mean: %.4g)", *b.Numeric.Mean)
		}
		return "(mean: N/A)"
	case classify.Categorical:
		return fmt.Sprintf("(%d unique values)", b.Unique())
	}
	return fmt.Sprintf("(%d unique)", b.Unique())
}
