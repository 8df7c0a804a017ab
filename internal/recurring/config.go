// Package recurring detects recurring obligations in transaction history,
// projects their future occurrences, and flags the ones that are overdue.
//
// Detection is a greedy single pass over the history sorted by date: each
// transaction joins the most similar open group or starts a new one. Ties
// on the same day are broken by amount, description, account and ID, so the
// result does not depend on input order. It is not an optimal clustering; two merchants with near-identical descriptions can be merged
// under a loose similarity threshold. Tune MerchantSimilarity and
// AmountTolerance when that happens.
package recurring

import (
	"fmt"
	"math"

	"github.com/Veraticus/spice-cadence/internal/common"
)

// ToleranceMode selects how AmountTolerance is interpreted.
type ToleranceMode string

const (
	// ToleranceAbsolute compares amounts in currency units.
	ToleranceAbsolute ToleranceMode = "absolute"
	// ToleranceRelative compares amounts as a fraction of the running average.
	ToleranceRelative ToleranceMode = "relative"
)

// Config holds the tunable thresholds of the detector.
type Config struct {
	ToleranceMode      ToleranceMode
	MinOccurrences     int
	MonthsAhead        int
	GracePeriodDays    int
	MaxGapDays         int // a group stops accepting members after this many idle days; 0 disables
	AmountTolerance    float64
	MerchantSimilarity float64
	MaxIntervalCV      float64 // interval coefficient of variation above which a group is irregular
	IntervalWeight     float64
	AmountWeight       float64
	ProjectAmountTrend bool
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		MinOccurrences:     3,
		AmountTolerance:    0.10,
		ToleranceMode:      ToleranceRelative,
		MerchantSimilarity: 0.80,
		MonthsAhead:        3,
		GracePeriodDays:    5,
		MaxIntervalCV:      0.30,
		IntervalWeight:     0.6,
		AmountWeight:       0.4,
		MaxGapDays:         400,
	}
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Unwrap lets callers match any ConfigError with errors.Is(err, common.ErrInvalidConfig).
func (e *ConfigError) Unwrap() error {
	return common.ErrInvalidConfig
}

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	if c.MinOccurrences < 2 {
		return configErr("min_occurrences", "must be at least 2, got %d", c.MinOccurrences)
	}
	if !isFinite(c.AmountTolerance) || c.AmountTolerance < 0 {
		return configErr("amount_tolerance", "must be non-negative, got %v", c.AmountTolerance)
	}
	switch c.ToleranceMode {
	case ToleranceAbsolute, ToleranceRelative:
	default:
		return configErr("tolerance_mode", "must be %q or %q, got %q", ToleranceAbsolute, ToleranceRelative, c.ToleranceMode)
	}
	if !isFinite(c.MerchantSimilarity) || c.MerchantSimilarity < 0 || c.MerchantSimilarity > 1 {
		return configErr("merchant_similarity", "must be within [0,1], got %v", c.MerchantSimilarity)
	}
	if err := validateMonthsAhead(c.MonthsAhead); err != nil {
		return err
	}
	if err := validateGracePeriod(c.GracePeriodDays); err != nil {
		return err
	}
	if c.MaxGapDays < 0 {
		return configErr("max_gap_days", "must be non-negative, got %d", c.MaxGapDays)
	}
	if !isFinite(c.MaxIntervalCV) || c.MaxIntervalCV <= 0 {
		return configErr("max_interval_cv", "must be positive, got %v", c.MaxIntervalCV)
	}
	if !isFinite(c.IntervalWeight) || c.IntervalWeight < 0 || c.IntervalWeight > 1 {
		return configErr("interval_weight", "must be within [0,1], got %v", c.IntervalWeight)
	}
	if !isFinite(c.AmountWeight) || c.AmountWeight < 0 || c.AmountWeight > 1 {
		return configErr("amount_weight", "must be within [0,1], got %v", c.AmountWeight)
	}
	if math.Abs(c.IntervalWeight+c.AmountWeight-1) > 1e-9 {
		return configErr("interval_weight", "and amount_weight must sum to 1, got %v", c.IntervalWeight+c.AmountWeight)
	}
	return nil
}

func validateMonthsAhead(months int) error {
	if months <= 0 {
		return configErr("months_ahead", "must be positive, got %d", months)
	}
	return nil
}

func validateGracePeriod(days int) error {
	if days < 0 {
		return configErr("grace_period_days", "must be non-negative, got %d", days)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
