package semantic

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/table"
)

const (
	// DefaultSampleSize bounds how many non-null values are inspected.
	DefaultSampleSize = 500
	// MaxSampleSize is the largest sample any option may request.
	MaxSampleSize = 500
	// DefaultThreshold is the minimum match fraction for a pattern to win.
	DefaultThreshold = 0.70
)

// Detector assigns a semantic type to a column by sampling its values.
type Detector struct {
	lib        *Library
	sampleSize int
	threshold  float64
	logger     *zap.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithSampleSize overrides the sample bound. Non-positive values are ignored
// and values above MaxSampleSize are clamped.
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = min(n, MaxSampleSize)
		}
	}
}

// WithThreshold overrides the acceptance threshold. Values outside (0,1] are ignored.
func WithThreshold(f float64) Option {
	return func(d *Detector) {
		if f > 0 && f <= 1 {
			d.threshold = f
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l.Named("semantic")
		}
	}
}

// NewDetector returns a detector over lib; a nil lib selects the default library.
func NewDetector(lib *Library, opts ...Option) *Detector {
	if lib == nil {
		lib = DefaultLibrary()
	}
	d := &Detector{
		lib:        lib,
		sampleSize: DefaultSampleSize,
		threshold:  DefaultThreshold,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Library returns the pattern library used by the detector.
func (d *Detector) Library() *Library { return d.lib }

// Detect returns the first pattern, in priority order, matching at least the
// threshold fraction of the sampled values, together with that fraction.
// It returns (None, 0) when nothing qualifies or there is nothing to sample.
func (d *Detector) Detect(values []any) (Type, float64) {
	sample := d.sample(values)
	if len(sample) == 0 {
		return None, 0
	}
	for _, p := range d.lib.patterns {
		matches, err := countMatches(p, sample)
		if err != nil {
			d.logger.Debug("pattern skipped", zap.String("pattern", string(p.Name)), zap.Error(err))
			continue
		}
		confidence := float64(matches) / float64(len(sample))
		if confidence >= d.threshold {
			return p.Name, confidence
		}
	}
	return None, 0
}

// sample takes the first sampleSize non-null values as strings.
func (d *Detector) sample(values []any) []string {
	out := make([]string, 0, min(len(values), d.sampleSize))
	for _, v := range values {
		if v == nil {
			continue
		}
		out = append(out, table.Format(v))
		if len(out) == d.sampleSize {
			break
		}
	}
	return out
}

func countMatches(p Pattern, sample []string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("matcher %s panicked: %v", p.Name, r)
		}
	}()
	if p.Match == nil {
		return 0, fmt.Errorf("matcher %s is nil", p.Name)
	}
	for _, s := range sample {
		if p.Match(s) {
			n++
		}
	}
	return n, nil
}
