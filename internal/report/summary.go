// Package report aggregates transaction history into spending summaries,
// budget comparisons and spending alerts.
//
// Amounts follow the import convention: positive values are expenses and
// negative values are income. Totals are accumulated as decimals so sums of
// many cents do not drift.
package report

import (
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/recurring"
)

// Totals is income against expenses over a set of transactions.
// Income and Expenses are both reported as positive amounts.
type Totals struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
	Count    int     `json:"count"`
}

// MonthSummary is the activity of one calendar month.
type MonthSummary struct {
	Categories map[string]float64 `json:"categories"` // expenses per category
	Month      string             `json:"month"`      // YYYY-MM
	Totals
}

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Share    float64 `json:"share"` // fraction of all expenses
	Count    int     `json:"count"`
}

// MerchantTotal is the expense total of one merchant.
type MerchantTotal struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

// Summary is the spending report over a period.
type Summary struct {
	Start  civil.Date     `json:"start"`
	End    civil.Date     `json:"end"`
	Months []MonthSummary `json:"months"`
	Totals
}

// Summarize builds the income, expense and monthly breakdown of txns.
// Start and End are the first and last transaction dates.
func Summarize(txns []model.Transaction) Summary {
	s := Summary{
		Totals: IncomeVsExpenses(txns),
		Months: MonthlySummary(txns),
	}
	if start, end, ok := bounds(txns); ok {
		s.Start, s.End = start, end
	}
	return s
}

// IncomeVsExpenses totals incoming and outgoing money.
func IncomeVsExpenses(txns []model.Transaction) Totals {
	var acc totalsAccumulator
	for i := range txns {
		acc.add(&txns[i])
	}
	return acc.totals()
}

// MonthlySummary groups txns by calendar month, oldest first.
func MonthlySummary(txns []model.Transaction) []MonthSummary {
	type month struct {
		categories map[string]decimal.Decimal
		acc        totalsAccumulator
	}

	months := make(map[string]*month)
	for i := range txns {
		txn := &txns[i]
		key := monthKey(txn.CalendarDate())
		m, ok := months[key]
		if !ok {
			m = &month{categories: make(map[string]decimal.Decimal)}
			months[key] = m
		}
		m.acc.add(txn)
		if txn.IsExpense() {
			cat := categoryOf(txn)
			m.categories[cat] = m.categories[cat].Add(decimal.NewFromFloat(txn.Amount))
		}
	}

	summaries := make([]MonthSummary, 0, len(months))
	for key, m := range months {
		categories := make(map[string]float64, len(m.categories))
		for cat, amount := range m.categories {
			categories[cat] = amount.InexactFloat64()
		}
		summaries = append(summaries, MonthSummary{
			Month:      key,
			Totals:     m.acc.totals(),
			Categories: categories,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Month < summaries[j].Month })
	return summaries
}

// CategoryTotals sums expenses per category, largest first.
func CategoryTotals(txns []model.Transaction) []CategoryTotal {
	amounts := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	total := decimal.Zero

	for i := range txns {
		txn := &txns[i]
		if !txn.IsExpense() {
			continue
		}
		cat := categoryOf(txn)
		amount := decimal.NewFromFloat(txn.Amount)
		amounts[cat] = amounts[cat].Add(amount)
		counts[cat]++
		total = total.Add(amount)
	}

	totals := make([]CategoryTotal, 0, len(amounts))
	for cat, amount := range amounts {
		ct := CategoryTotal{
			Category: cat,
			Amount:   amount.InexactFloat64(),
			Count:    counts[cat],
		}
		if total.IsPositive() {
			ct.Share = amount.Div(total).InexactFloat64()
		}
		totals = append(totals, ct)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Amount != totals[j].Amount {
			return totals[i].Amount > totals[j].Amount
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

// TopMerchants sums expenses per merchant, largest first, keeping at most
// limit entries (all of them when limit <= 0). Descriptions that differ only
// in store numbers or reference codes count as one merchant.
func TopMerchants(txns []model.Transaction, limit int) []MerchantTotal {
	amounts := make(map[string]decimal.Decimal)
	counts := make(map[string]int)

	for i := range txns {
		txn := &txns[i]
		if !txn.IsExpense() {
			continue
		}
		name := txn.MerchantName
		if strings.TrimSpace(name) == "" {
			name = txn.Description
		}
		key := recurring.Normalize(name)
		amounts[key] = amounts[key].Add(decimal.NewFromFloat(txn.Amount))
		counts[key]++
	}

	merchants := make([]MerchantTotal, 0, len(amounts))
	for key, amount := range amounts {
		merchants = append(merchants, MerchantTotal{
			Merchant: key,
			Amount:   amount.InexactFloat64(),
			Count:    counts[key],
		})
	}
	sort.Slice(merchants, func(i, j int) bool {
		if merchants[i].Amount != merchants[j].Amount {
			return merchants[i].Amount > merchants[j].Amount
		}
		return merchants[i].Merchant < merchants[j].Merchant
	})

	if limit > 0 && len(merchants) > limit {
		merchants = merchants[:limit]
	}
	return merchants
}

type totalsAccumulator struct {
	income   decimal.Decimal
	expenses decimal.Decimal
	count    int
}

func (a *totalsAccumulator) add(txn *model.Transaction) {
	a.count++
	amount := decimal.NewFromFloat(txn.Amount)
	switch {
	case txn.IsIncome():
		a.income = a.income.Add(amount.Neg())
	case txn.IsExpense():
		a.expenses = a.expenses.Add(amount)
	}
}

func (a *totalsAccumulator) totals() Totals {
	return Totals{
		Income:   a.income.InexactFloat64(),
		Expenses: a.expenses.InexactFloat64(),
		Net:      a.income.Sub(a.expenses).InexactFloat64(),
		Count:    a.count,
	}
}

func categoryOf(txn *model.Transaction) string {
	if txn.Category == "" {
		return model.DefaultCategory
	}
	return txn.Category
}

func monthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// bounds returns the first and last transaction dates.
func bounds(txns []model.Transaction) (civil.Date, civil.Date, bool) {
	if len(txns) == 0 {
		return civil.Date{}, civil.Date{}, false
	}
	first, last := txns[0].CalendarDate(), txns[0].CalendarDate()
	for i := range txns[1:] {
		d := txns[i+1].CalendarDate()
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last, true
}
