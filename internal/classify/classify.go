// Package classify decides the base type and semantic label of a column.
package classify

import (
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/semantic"
	"github.com/KaramelBytes/tablescope/internal/table"
	"github.com/KaramelBytes/tablescope/internal/timeparse"
)

// Cardinality limits used when no semantic type settles the question.
const (
	categoricalUniqueLimit = 50
	categoricalRatioLimit  = 0.5
	mediumUniqueLimit      = 100
	mediumRatioLimit       = 0.3
)

// Result is a classification plus, for columns reinterpreted as datetime,
// the parsed values that must replace the column's contents before profiling.
type Result struct {
	Classification
	Replacement []any
}

// Classifier combines native kind inspection, semantic detection, datetime
// parsing and cardinality heuristics.
type Classifier struct {
	detector *semantic.Detector
	parser   *timeparse.Parser
	policy   Policy
	logger   *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

func WithPolicy(p Policy) Option {
	return func(c *Classifier) { c.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l.Named("classify")
		}
	}
}

// New returns a classifier. Nil collaborators are replaced by defaults.
func New(d *semantic.Detector, p *timeparse.Parser, opts ...Option) *Classifier {
	if d == nil {
		d = semantic.NewDetector(nil)
	}
	if p == nil {
		p = timeparse.New()
	}
	c := &Classifier{detector: d, parser: p, policy: SemanticOnly, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Policy returns the identifier policy in effect.
func (c *Classifier) Policy() Policy { return c.policy }

// Classify never fails: a panic anywhere in the pipeline yields text with
// zero confidence.
func (c *Classifier) Classify(col *table.Column) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("classification recovered from panic",
				zap.String("column", col.Name), zap.Any("panic", r))
			res = Result{Classification: Classification{BaseType: Text}}
		}
	}()
	res = c.classify(col)
	c.logger.Debug("column classified",
		zap.String("column", col.Name),
		zap.String("type", string(res.BaseType)),
		zap.String("semantic_type", string(res.SemanticType)),
		zap.Float64("confidence", res.Confidence))
	return res
}

func (c *Classifier) classify(col *table.Column) Result {
	kind := col.Kind()
	switch kind {
	case table.KindEmpty:
		return Result{Classification: Classification{BaseType: Text}}
	case table.KindBool:
		return result(Categorical, semantic.Boolean, 1.0)
	case table.KindTime:
		return result(Datetime, semantic.None, 1.0)
	}

	if c.policy == NameAwareID && isIDName(col.Name) {
		return result(ID, semantic.None, 1.0)
	}

	nonNull := col.NonNull()
	if kind == table.KindNumeric {
		if isBinary(nonNull) {
			return result(Categorical, semantic.Boolean, 1.0)
		}
		if st, conf := c.detector.Detect(nonNull); st == semantic.PostalCodeUS {
			return result(Categorical, st, conf)
		}
		return result(Numeric, semantic.None, 1.0)
	}

	st, conf := c.detector.Detect(nonNull)
	switch {
	case st.IsDate():
		parsed, pconf := c.parser.Parse(col.Values)
		if parsed != nil {
			r := result(Datetime, st, pconf)
			r.Replacement = parsed
			return r
		}
		return result(Text, st, conf)
	case st == semantic.BooleanText:
		return result(Categorical, st, conf)
	case st != semantic.None:
		unique, ratio := cardinality(nonNull)
		if unique < categoricalUniqueLimit || ratio < categoricalRatioLimit {
			return result(Categorical, st, conf)
		}
		return result(Text, st, conf)
	}

	unique, ratio := cardinality(nonNull)
	if unique < categoricalUniqueLimit || ratio < categoricalRatioLimit ||
		(unique < mediumUniqueLimit && ratio < mediumRatioLimit) {
		return result(Categorical, semantic.None, 1.0)
	}
	return result(Text, semantic.None, 1.0)
}

// Override reclassifies col as target. Keeping the current base type keeps
// the current record. Reinterpretation as datetime parses the values and
// reinterpretation as numeric requires at least one numeric reading; both
// return replacement values.
func (c *Classifier) Override(col *table.Column, current Classification, target BaseType) (Result, error) {
	if !target.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownBaseType, target)
	}
	if current.BaseType == target {
		return Result{Classification: current}, nil
	}
	res := result(target, semantic.None, 1.0)
	switch target {
	case Datetime:
		parsed, _ := c.parser.Parse(col.Values)
		if parsed == nil {
			return Result{}, fmt.Errorf("%w: %q is not date-like", ErrNotConvertible, col.Name)
		}
		res.Replacement = parsed
	case Numeric:
		out := make([]any, len(col.Values))
		converted := 0
		for i, v := range col.Values {
			if f, ok := table.ToFloat(v); ok {
				out[i] = f
				converted++
			}
		}
		if converted == 0 && len(col.NonNull()) > 0 {
			return Result{}, fmt.Errorf("%w: %q has no numeric values", ErrNotConvertible, col.Name)
		}
		if !allNumbers(col.Values) {
			res.Replacement = out
		}
	}
	return res, nil
}

func result(b BaseType, st semantic.Type, conf float64) Result {
	return Result{Classification: Classification{BaseType: b, SemanticType: st, Confidence: conf}}
}

func isBinary(nonNull []any) bool {
	distinct := table.Distinct(nonNull)
	if len(distinct) == 0 || len(distinct) > 2 {
		return false
	}
	for _, v := range distinct {
		f, ok := table.Float(v)
		if !ok || (f != 0 && f != 1) {
			return false
		}
	}
	return true
}

func allNumbers(values []any) bool {
	for _, v := range values {
		if v != nil && !table.IsNumber(v) {
			return false
		}
	}
	return true
}

func cardinality(nonNull []any) (int, float64) {
	if len(nonNull) == 0 {
		return 0, 0
	}
	u := len(table.Distinct(nonNull))
	return u, float64(u) / float64(len(nonNull))
}

// isIDName reports whether the first or last token of name is "id".
func isIDName(name string) bool {
	toks := nameTokens(name)
	if len(toks) == 0 {
		return false
	}
	return toks[0] == "id" || toks[len(toks)-1] == "id"
}

// nameTokens splits on separators and lower-to-upper case transitions, so
// "userID" and "user_id" both end in "id".
func nameTokens(name string) []string {
	var toks []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			toks = append(toks, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	var prev rune
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return toks
}
