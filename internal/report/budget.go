package report

import (
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
)

const (
	daysPerMonth = 30.44
	daysPerYear  = 365.25
)

// BudgetLine compares one category's spending with its budget.
type BudgetLine struct {
	Category    string  `json:"category"`
	Budget      float64 `json:"budget"`
	Actual      float64 `json:"actual"`
	Difference  float64 `json:"difference"`  // budget minus actual; negative when over
	Utilization float64 `json:"utilization"` // percent of budget used; 0 without a budget
}

// ValidateBudgets rejects unnamed, duplicated and negative budgets.
func ValidateBudgets(budgets []model.Budget) error {
	seen := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		name := strings.TrimSpace(b.Category)
		if name == "" {
			return fmt.Errorf("%w: budget without a category", common.ErrInvalidConfig)
		}
		if seen[strings.ToLower(name)] {
			return fmt.Errorf("%w: duplicate budget for %s", common.ErrInvalidConfig, name)
		}
		seen[strings.ToLower(name)] = true
		if b.Monthly < 0 || b.Annual < 0 {
			return fmt.Errorf("%w: budget for %s cannot be negative", common.ErrInvalidConfig, name)
		}
	}
	return nil
}

// BudgetForPeriod prorates a budget to the inclusive period start..end.
// A monthly amount wins over an annual one.
func BudgetForPeriod(b model.Budget, start, end civil.Date) float64 {
	days := end.DaysSince(start) + 1
	if days <= 0 {
		return 0
	}
	switch {
	case b.Monthly > 0:
		return b.Monthly * float64(days) / daysPerMonth
	case b.Annual > 0:
		return b.Annual * float64(days) / daysPerYear
	default:
		return 0
	}
}

// BudgetVsActual compares expenses in txns with budgets over start..end.
// Every budgeted category and every category with spending gets a line.
// Budget categories match case-insensitively. Lines are sorted by category.
func BudgetVsActual(txns []model.Transaction, budgets []model.Budget, start, end civil.Date) []BudgetLine {
	actual := make(map[string]decimal.Decimal)
	names := make(map[string]string)
	for i := range txns {
		txn := &txns[i]
		d := txn.CalendarDate()
		if !txn.IsExpense() || d.Before(start) || d.After(end) {
			continue
		}
		cat := categoryOf(txn)
		key := strings.ToLower(cat)
		actual[key] = actual[key].Add(decimal.NewFromFloat(txn.Amount))
		if _, ok := names[key]; !ok {
			names[key] = cat
		}
	}

	planned := make(map[string]float64, len(budgets))
	for _, b := range budgets {
		key := strings.ToLower(strings.TrimSpace(b.Category))
		planned[key] = BudgetForPeriod(b, start, end)
		if _, ok := names[key]; !ok {
			names[key] = strings.TrimSpace(b.Category)
		}
	}

	lines := make([]BudgetLine, 0, len(names))
	for key, name := range names {
		line := BudgetLine{
			Category: name,
			Budget:   planned[key],
			Actual:   actual[key].InexactFloat64(),
		}
		line.Difference = line.Budget - line.Actual
		if line.Budget > 0 {
			line.Utilization = line.Actual / line.Budget * 100
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Category < lines[j].Category })
	return lines
}

// Period resolves a reporting period: the given bounds where set, else the
// first and last transaction dates, else fallback for both ends.
func Period(txns []model.Transaction, start, end *civil.Date, fallback civil.Date) (civil.Date, civil.Date) {
	from, to := fallback, fallback
	if first, last, ok := bounds(txns); ok {
		from, to = first, last
	}
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	return from, to
}
