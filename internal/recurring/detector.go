package recurring

import (
	"log/slog"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// Detector runs grouping, pattern analysis and projection with one validated
// configuration. It holds no mutable state, so a single Detector can serve
// concurrent callers.
type Detector struct {
	logger *slog.Logger
	cfg    Config
}

// Option customizes a Detector.
type Option func(*Detector)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector validates cfg and returns a detector. Invalid configuration is
// reported here, before any transaction is processed.
func NewDetector(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:    cfg,
		logger: slog.Default().With("component", "recurring"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Result is the full output of a detection run.
type Result struct {
	Patterns []model.RecurringPattern
	Residual []model.Transaction
}

// Predictable returns the patterns that can be projected.
func (r Result) Predictable() []model.RecurringPattern {
	var out []model.RecurringPattern
	for _, p := range r.Patterns {
		if p.Period.IsPredictable() {
			out = append(out, p)
		}
	}
	return out
}

// Irregular returns patterns that were grouped but have no stable interval.
func (r Result) Irregular() []model.RecurringPattern {
	var out []model.RecurringPattern
	for _, p := range r.Patterns {
		if !p.Period.IsPredictable() {
			out = append(out, p)
		}
	}
	return out
}

// Detect groups transactions and analyzes the groups. Patterns and Residual
// together contain every input transaction exactly once.
func (d *Detector) Detect(transactions []model.Transaction) Result {
	analysis := d.Analyze(d.Group(transactions))

	d.logger.Debug("Detected recurring patterns",
		"transactions", len(transactions),
		"patterns", len(analysis.Patterns),
		"residual", len(analysis.Residual))

	return Result{
		Patterns: analysis.Patterns,
		Residual: analysis.Residual,
	}
}
