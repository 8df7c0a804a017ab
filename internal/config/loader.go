package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-cadence/internal/classification"
	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/plaid"
	"github.com/Veraticus/spice-cadence/internal/recurring"
	"github.com/Veraticus/spice-cadence/internal/report"
)

// LoadDetectorConfig builds the detector configuration from the recurring.*
// keys of v. Keys that are not set keep their defaults. The result is
// validated, so a bad value in the config file fails here rather than at
// detection time.
func LoadDetectorConfig(v *viper.Viper) (recurring.Config, error) {
	cfg := recurring.DefaultConfig()

	if key := "recurring.min_occurrences"; v.IsSet(key) {
		cfg.MinOccurrences = v.GetInt(key)
	}
	if key := "recurring.amount_tolerance"; v.IsSet(key) {
		cfg.AmountTolerance = v.GetFloat64(key)
	}
	if key := "recurring.tolerance_mode"; v.IsSet(key) {
		cfg.ToleranceMode = recurring.ToleranceMode(v.GetString(key))
	}
	if key := "recurring.merchant_similarity"; v.IsSet(key) {
		cfg.MerchantSimilarity = v.GetFloat64(key)
	}
	if key := "recurring.months_ahead"; v.IsSet(key) {
		cfg.MonthsAhead = v.GetInt(key)
	}
	if key := "recurring.grace_period_days"; v.IsSet(key) {
		cfg.GracePeriodDays = v.GetInt(key)
	}
	if key := "recurring.max_gap_days"; v.IsSet(key) {
		cfg.MaxGapDays = v.GetInt(key)
	}
	if key := "recurring.max_interval_cv"; v.IsSet(key) {
		cfg.MaxIntervalCV = v.GetFloat64(key)
	}
	if key := "recurring.interval_weight"; v.IsSet(key) {
		cfg.IntervalWeight = v.GetFloat64(key)
	}
	if key := "recurring.amount_weight"; v.IsSet(key) {
		cfg.AmountWeight = v.GetFloat64(key)
	}
	if key := "recurring.project_amount_trend"; v.IsSet(key) {
		cfg.ProjectAmountTrend = v.GetBool(key)
	}

	if err := cfg.Validate(); err != nil {
		return recurring.Config{}, err
	}
	return cfg, nil
}

// LoadPlaidConfig loads Plaid credentials. It follows this precedence:
// 1. Viper configuration (config file or CADENCE_PLAID_* env vars)
// 2. Direct environment variables (PLAID_*)
// 3. The sandbox environment
func LoadPlaidConfig(v *viper.Viper) (plaid.Config, error) {
	cfg := plaid.Config{
		ClientID:    v.GetString("plaid.client_id"),
		Secret:      v.GetString("plaid.secret"),
		Environment: v.GetString("plaid.environment"),
		AccessToken: v.GetString("plaid.access_token"),
	}

	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv("PLAID_SECRET")
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("PLAID_ACCESS_TOKEN")
	}
	if cfg.Environment == "" {
		cfg.Environment = os.Getenv("PLAID_ENV")
	}
	if cfg.Environment == "" {
		cfg.Environment = "sandbox"
	}

	if err := cfg.Validate(); err != nil {
		return plaid.Config{}, err
	}
	return cfg, nil
}

// LoadCategoryRules returns the rules under the categories key, or the
// built-in rules when none are configured.
func LoadCategoryRules(v *viper.Viper) ([]model.CategoryRule, error) {
	if !v.IsSet("categories") {
		return classification.DefaultRules(), nil
	}

	var rules []model.CategoryRule
	if err := v.UnmarshalKey("categories", &rules); err != nil {
		return nil, fmt.Errorf("%w: categories: %w", common.ErrInvalidConfig, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: categories must list at least one rule", common.ErrInvalidConfig)
	}
	return rules, nil
}

// LoadBudgets returns the budgets under the budgets key. No budgets is not
// an error; budget reports then show spending only.
func LoadBudgets(v *viper.Viper) ([]model.Budget, error) {
	if !v.IsSet("budgets") {
		return nil, nil
	}

	var budgets []model.Budget
	if err := v.UnmarshalKey("budgets", &budgets); err != nil {
		return nil, fmt.Errorf("%w: budgets: %w", common.ErrInvalidConfig, err)
	}
	if err := report.ValidateBudgets(budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

// LoadAlertConfig reads the alerts.* thresholds over their defaults.
func LoadAlertConfig(v *viper.Viper) (report.AlertConfig, error) {
	cfg := report.DefaultAlertConfig()

	if key := "alerts.spike_factor"; v.IsSet(key) {
		cfg.SpikeFactor = v.GetFloat64(key)
	}
	if key := "alerts.std_dev_threshold"; v.IsSet(key) {
		cfg.StdDevThreshold = v.GetFloat64(key)
	}
	if key := "alerts.min_months"; v.IsSet(key) {
		cfg.MinMonths = v.GetInt(key)
	}

	if err := cfg.Validate(); err != nil {
		return report.AlertConfig{}, err
	}
	return cfg, nil
}
