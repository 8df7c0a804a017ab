package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-cadence/internal/common"
)

// Severity ranks an alert.
type Severity string

// Alert severities, most urgent first.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// AlertKind names the check that raised an alert.
type AlertKind string

// Alert kinds.
const (
	AlertBudgetThreshold AlertKind = "budget_threshold"
	AlertUnusualSpending AlertKind = "unusual_spending"
	AlertSpendingSpike   AlertKind = "spending_spike"
)

// Alert is one spending warning.
type Alert struct {
	Kind     AlertKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Category string    `json:"category"`
	Month    string    `json:"month,omitempty"`
	Message  string    `json:"message"`
	Amount   float64   `json:"amount"`
}

// AlertConfig holds the alert thresholds.
type AlertConfig struct {
	SpikeFactor     float64 // month-over-month multiplier that counts as a spike
	StdDevThreshold float64 // z-score above which a month is unusual
	MinMonths       int     // months of data a category needs for the unusual check
}

// DefaultAlertConfig returns the default thresholds.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		SpikeFactor:     1.5,
		StdDevThreshold: 2.0,
		MinMonths:       3,
	}
}

// Validate checks the thresholds.
func (c AlertConfig) Validate() error {
	switch {
	case c.SpikeFactor <= 1:
		return fmt.Errorf("%w: alerts.spike_factor must be greater than 1, got %g", common.ErrInvalidConfig, c.SpikeFactor)
	case c.StdDevThreshold <= 0:
		return fmt.Errorf("%w: alerts.std_dev_threshold must be positive, got %g", common.ErrInvalidConfig, c.StdDevThreshold)
	case c.MinMonths < 2:
		return fmt.Errorf("%w: alerts.min_months must be at least 2, got %d", common.ErrInvalidConfig, c.MinMonths)
	}
	return nil
}

// BudgetAlerts flags categories at 80% (info), 100% (warning) and 120%
// (critical) of their budget.
func BudgetAlerts(lines []BudgetLine) []Alert {
	var alerts []Alert
	for _, line := range lines {
		if line.Budget <= 0 {
			continue
		}

		var severity Severity
		var state string
		switch u := line.Utilization; {
		case u >= 120:
			severity, state = SeverityCritical, "is significantly over budget"
		case u >= 100:
			severity, state = SeverityWarning, "is over budget"
		case u >= 80:
			severity, state = SeverityInfo, "is approaching its budget"
		default:
			continue
		}

		alerts = append(alerts, Alert{
			Kind:     AlertBudgetThreshold,
			Severity: severity,
			Category: line.Category,
			Amount:   line.Actual,
			Message: fmt.Sprintf("%s %s (%s%% used)",
				line.Category, state, decimal.NewFromFloat(line.Utilization).StringFixed(1)),
		})
	}
	return alerts
}

// UnusualSpending flags the first month in which a category's spending is
// more than threshold standard deviations from its monthly mean. Only
// months with spending in the category count, and categories need at least
// minMonths of them.
func UnusualSpending(months []MonthSummary, threshold float64, minMonths int) []Alert {
	var alerts []Alert
	for _, cat := range spendingCategories(months) {
		var amounts []float64
		var labels []string
		for _, m := range months {
			if amount, ok := m.Categories[cat]; ok {
				amounts = append(amounts, amount)
				labels = append(labels, m.Month)
			}
		}
		if len(amounts) < minMonths {
			continue
		}

		mean, stdDev := meanStdDev(amounts)
		if stdDev == 0 {
			continue
		}

		for i, amount := range amounts {
			z := math.Abs(amount-mean) / stdDev
			if z <= threshold {
				continue
			}
			alerts = append(alerts, Alert{
				Kind:     AlertUnusualSpending,
				Severity: SeverityWarning,
				Category: cat,
				Month:    labels[i],
				Amount:   amount,
				Message: fmt.Sprintf("Unusual spending in %s: %s in %s (average %s, %s std dev)",
					cat, money(amount), labels[i], money(mean), decimal.NewFromFloat(z).StringFixed(1)),
			})
			break
		}
	}
	return alerts
}

// SpendingSpikes flags a category whenever its spending in one month
// exceeds factor times the previous month's.
func SpendingSpikes(months []MonthSummary, factor float64) []Alert {
	var alerts []Alert
	for _, cat := range spendingCategories(months) {
		for i := 1; i < len(months); i++ {
			prev := months[i-1].Categories[cat]
			curr := months[i].Categories[cat]
			if prev <= 0 || curr <= prev*factor {
				continue
			}
			increase := (curr - prev) / prev * 100
			alerts = append(alerts, Alert{
				Kind:     AlertSpendingSpike,
				Severity: SeverityWarning,
				Category: cat,
				Month:    months[i].Month,
				Amount:   curr,
				Message: fmt.Sprintf("Spending spike in %s: %s in %s (%s%% more than %s)",
					cat, money(curr), months[i].Month, decimal.NewFromFloat(increase).StringFixed(1), months[i-1].Month),
			})
		}
	}
	return alerts
}

// Alerts runs every check and orders the result by severity, keeping the
// order of the checks within a severity.
func Alerts(months []MonthSummary, lines []BudgetLine, cfg AlertConfig) []Alert {
	var alerts []Alert
	alerts = append(alerts, BudgetAlerts(lines)...)
	alerts = append(alerts, UnusualSpending(months, cfg.StdDevThreshold, cfg.MinMonths)...)
	alerts = append(alerts, SpendingSpikes(months, cfg.SpikeFactor)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.rank() < alerts[j].Severity.rank()
	})
	return alerts
}

// spendingCategories returns every category with spending, sorted.
func spendingCategories(months []MonthSummary) []string {
	seen := make(map[string]bool)
	var cats []string
	for _, m := range months {
		for cat := range m.Categories {
			if !seen[cat] {
				seen[cat] = true
				cats = append(cats, cat)
			}
		}
	}
	sort.Strings(cats)
	return cats
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var squares float64
	for _, v := range values {
		squares += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(squares / float64(len(values)))
}

func money(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
