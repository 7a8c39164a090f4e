package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tablescope/internal/ai"
	"github.com/KaramelBytes/tablescope/internal/analysis"
	"github.com/KaramelBytes/tablescope/internal/classify"
	cfgpkg "github.com/KaramelBytes/tablescope/internal/config"
	"github.com/KaramelBytes/tablescope/internal/insights"
	"github.com/KaramelBytes/tablescope/internal/parser"
	"github.com/KaramelBytes/tablescope/internal/profile"
	"github.com/KaramelBytes/tablescope/internal/semantic"
	"github.com/KaramelBytes/tablescope/internal/table"
	"github.com/KaramelBytes/tablescope/internal/timeparse"
	"github.com/KaramelBytes/tablescope/internal/utils"
)

// engineFlags are the analysis knobs shared by analyze, analyze-batch and analyze-db.
type engineFlags struct {
	policy         string
	overrides      []string
	noCharts       bool
	noCorrelations bool
	insights       bool
	format         string
}

func (f *engineFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.policy, "policy", "", "identifier policy: semantic_only | name_aware_id (default from config)")
	fs.StringArrayVar(&f.overrides, "override", nil, "force a column type, as column=type (repeatable)")
	fs.BoolVar(&f.noCharts, "no-charts", false, "omit chart specifications")
	fs.BoolVar(&f.noCorrelations, "no-correlations", false, "skip the numeric correlation matrix")
	fs.BoolVar(&f.insights, "insights", false, "ask the local model for a short description of the dataset")
	fs.StringVar(&f.format, "format", "markdown", "output format: markdown | json | yaml")
}

func settings() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	return cfg
}

// newClassifier wires the configured pattern order, sampling and policy.
func newClassifier(policyName string) (*classify.Classifier, error) {
	c := settings()
	if policyName == "" {
		policyName = c.Policy
	}
	policy, err := classify.ParsePolicy(policyName)
	if err != nil {
		return nil, err
	}
	order, err := semantic.ParseOrder(c.PatternOrder)
	if err != nil {
		return nil, fmt.Errorf("pattern_order: %w", err)
	}
	lib, err := semantic.NewLibrary(order)
	if err != nil {
		return nil, fmt.Errorf("pattern_order: %w", err)
	}
	det := semantic.NewDetector(lib,
		semantic.WithSampleSize(c.SampleSize),
		semantic.WithThreshold(c.ConfidenceThreshold),
		semantic.WithLogger(logger))
	tp := timeparse.New(
		timeparse.WithSampleSize(c.SampleSize),
		timeparse.WithLogger(logger))
	return classify.New(det, tp, classify.WithPolicy(policy), classify.WithLogger(logger)), nil
}

// analyzerFactory returns a constructor applying flags on top of config.
func analyzerFactory(f *engineFlags) (func(name string, t *table.Table) *analysis.Analyzer, error) {
	cl, err := newClassifier(f.policy)
	if err != nil {
		return nil, err
	}
	c := settings()
	prof := profile.New(logger)
	return func(name string, t *table.Table) *analysis.Analyzer {
		opts := []analysis.Option{
			analysis.WithName(name),
			analysis.WithClassifier(cl),
			analysis.WithProfiler(prof),
			analysis.WithLogger(logger),
			analysis.WithWorkers(c.Workers),
			analysis.WithCorrelations(c.Correlations && !f.noCorrelations),
		}
		if f.noCharts || !c.Charts {
			opts = append(opts, analysis.WithCharts(nil))
		}
		return analysis.New(t, opts...)
	}, nil
}

// runAnalysis analyses t, applies overrides, and optionally adds an insight.
func runAnalysis(ctx context.Context, f *engineFlags, name string, t *table.Table) (*analysis.Report, error) {
	factory, err := analyzerFactory(f)
	if err != nil {
		return nil, err
	}
	a := factory(name, t)
	for _, o := range f.overrides {
		col, typ, ok := strings.Cut(o, "=")
		if !ok || col == "" || typ == "" {
			return nil, fmt.Errorf("invalid --override %q (use column=type)", o)
		}
		if _, err := a.Override(col, typ); err != nil {
			return nil, err
		}
	}
	rep, err := a.AnalyzeAll(ctx)
	if err != nil {
		return nil, err
	}
	if f.insights {
		gen := newInsightGenerator()
		text, err := gen.Generate(ctx, rep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: unable to generate insight: %v\n", err)
		} else {
			rep.Insight = text
		}
	}
	return rep, nil
}

// newInsightGenerator builds a generator for the configured provider; the
// "none" provider yields a disabled generator.
func newInsightGenerator() *insights.Generator {
	c := settings()
	provider := c.InsightProvider
	if provider == "" {
		provider = ai.ProviderOllama
	}
	rt, ok := ai.GetRuntime(provider, ai.RuntimeConfig{
		Host:        c.OllamaHost,
		HTTPTimeout: time.Duration(c.OllamaTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	})
	if !ok {
		if provider != ai.ProviderNone {
			logger.Warn("unknown insight provider", zap.String("provider", provider))
		}
		return insights.New(nil, c.InsightModel, logger)
	}
	return insights.New(rt, c.InsightModel, logger)
}

// writeReport renders rep in the requested format.
func writeReport(w io.Writer, rep *analysis.Report, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		_, err := io.WriteString(w, rep.Markdown())
		return err
	case "json":
		b, err := utils.PrettyJSON(rep)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported --format: %s (use markdown|json|yaml)", format)
}

// formatExt maps an output format to a file extension.
func formatExt(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return ".json"
	case "yaml", "yml":
		return ".yaml"
	}
	return ".md"
}

// decodeFlags are the parser options shared by file-reading commands.
type decodeFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheet      string
	sheetIndex int
	table      string
	maxRows    int
}

func (d *decodeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&d.delimiter, "delimiter", "", "delimiter for text files: ',' | ';' | 'tab' | '|' (sniffed if omitted)")
	fs.StringVar(&d.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	fs.StringVar(&d.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	fs.StringVar(&d.sheet, "sheet", "", "XLSX: sheet name to analyze")
	fs.IntVar(&d.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet not provided)")
	fs.StringVar(&d.table, "table", "", "SQLite files: table to analyze (first table if omitted)")
	fs.IntVar(&d.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
}

func (d *decodeFlags) options() (parser.Options, error) {
	opt := parser.Options{Sheet: d.sheet, SheetIndex: d.sheetIndex, Table: d.table, MaxRows: d.maxRows}
	switch d.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", d.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(d.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", d.decimal)
	}
	switch strings.ToLower(d.thousands) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", d.thousands)
	}
	return opt, nil
}
