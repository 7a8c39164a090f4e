// Package timeparse converts date-like column values into time.Time.
package timeparse

import (
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/table"
)

const (
	DefaultSampleSize = 500
	MaxSampleSize     = 500
	DefaultThreshold  = 0.70
)

// Layouts are the explicit formats tried after the generic parser, in order.
var Layouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z",
	"1/2/2006",
	"1-2-2006",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"1/2/06",
	"1-2-06",
	"2/1/06",
	"2-1-06",
	"2.1.06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006/01/02",
}

// Parser picks the best parsing strategy for a column.
type Parser struct {
	sampleSize int
	threshold  float64
	layouts    []string
	loc        *time.Location
	logger     *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithSampleSize sets how many values choose the layout, at most MaxSampleSize.
func WithSampleSize(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.sampleSize = min(n, MaxSampleSize)
		}
	}
}

func WithThreshold(f float64) Option {
	return func(p *Parser) {
		if f > 0 && f <= 1 {
			p.threshold = f
		}
	}
}

// WithLayouts replaces the explicit layout list.
func WithLayouts(layouts []string) Option {
	return func(p *Parser) {
		if len(layouts) > 0 {
			p.layouts = append([]string(nil), layouts...)
		}
	}
}

// WithLocation sets the zone assumed for values without an offset.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l.Named("timeparse")
		}
	}
}

// New returns a parser with default sampling and layouts.
func New(opts ...Option) *Parser {
	p := &Parser{
		sampleSize: DefaultSampleSize,
		threshold:  DefaultThreshold,
		layouts:    Layouts,
		loc:        time.UTC,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type candidate struct {
	name  string
	parse func(string) (time.Time, error)
}

func (p *Parser) candidates() []candidate {
	out := make([]candidate, 0, len(p.layouts)+1)
	out = append(out, candidate{name: "generic", parse: func(s string) (time.Time, error) {
		return cast.ToTimeInDefaultLocationE(s, p.loc)
	}})
	for _, l := range p.layouts {
		layout := l
		out = append(out, candidate{name: layout, parse: func(s string) (time.Time, error) {
			return time.ParseInLocation(layout, s, p.loc)
		}})
	}
	return out
}

// Parse converts values into times. The strategy is chosen on a bounded
// sample of non-null values; the winner then parses the whole column and
// confidence is the parsed fraction of all non-null values. Parsed values
// (nil where parsing failed) are returned only when confidence reaches the
// threshold; otherwise the result is nil with the best confidence seen.
func (p *Parser) Parse(values []any) ([]any, float64) {
	nonNull := 0
	allTimes := true
	for _, v := range values {
		if v == nil {
			continue
		}
		nonNull++
		if _, ok := v.(time.Time); !ok {
			allTimes = false
		}
	}
	if nonNull == 0 {
		return nil, 0
	}
	if allTimes {
		out := make([]any, len(values))
		copy(out, values)
		return out, 1.0
	}

	sample := make([]string, 0, min(nonNull, p.sampleSize))
	for _, v := range values {
		if v == nil {
			continue
		}
		sample = append(sample, strings.TrimSpace(table.Format(v)))
		if len(sample) == p.sampleSize {
			break
		}
	}

	var best *candidate
	bestHits := 0
	cands := p.candidates()
	for i := range cands {
		hits := countParsed(cands[i], sample)
		if hits > bestHits {
			best = &cands[i]
			bestHits = hits
		}
	}
	if best == nil {
		return nil, 0
	}

	out := make([]any, len(values))
	parsed := 0
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case time.Time:
			out[i] = x
			parsed++
			continue
		}
		if t, ok := safeParse(*best, strings.TrimSpace(table.Format(v))); ok {
			out[i] = t
			parsed++
		}
	}
	confidence := float64(parsed) / float64(nonNull)
	p.logger.Debug("datetime candidate chosen",
		zap.String("layout", best.name),
		zap.Int("parsed", parsed),
		zap.Int("non_null", nonNull),
		zap.Float64("confidence", confidence))
	if confidence >= p.threshold {
		return out, confidence
	}
	return nil, confidence
}

func countParsed(c candidate, sample []string) int {
	n := 0
	for _, s := range sample {
		if _, ok := safeParse(c, s); ok {
			n++
		}
	}
	return n
}

func safeParse(c candidate, s string) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	if s == "" {
		return time.Time{}, false
	}
	t, err := c.parse(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

