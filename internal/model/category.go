package model

// DefaultCategory is assigned when no rule matches a transaction.
const DefaultCategory = "Other"

// CategoryRule maps description keywords to a category.
// Rules with a lower Priority value are evaluated first.
type CategoryRule struct {
	Name            string   `mapstructure:"name"`
	Keywords        []string `mapstructure:"keywords"`
	Priority        int      `mapstructure:"priority"`
	RequireNegative bool     `mapstructure:"require_negative"` // only match incoming money
}

// Budget is a spending limit for one category. Monthly takes precedence
// over Annual when both are set; either is prorated by day to the
// reporting period.
type Budget struct {
	Category string  `mapstructure:"category"`
	Monthly  float64 `mapstructure:"monthly"`
	Annual   float64 `mapstructure:"annual"`
}
