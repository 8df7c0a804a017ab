package cli

import (
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/spice-cadence/internal/report"
)

// Summary writes income, expenses and the monthly breakdown.
func (r *Renderer) Summary(s report.Summary) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(s)
	case FormatCSV:
		rows := make([][]string, len(s.Months))
		for i, m := range s.Months {
			rows[i] = []string{m.Month, formatMoney(m.Income), formatMoney(m.Expenses), formatMoney(m.Net), strconv.Itoa(m.Count)}
		}
		return r.writeCSV([]string{"month", "income", "expenses", "net", "transactions"}, rows)
	}

	if s.Count == 0 {
		return r.println(FormatInfo("No transactions in the selected period."))
	}

	rows := make([][]string, len(s.Months))
	for i, m := range s.Months {
		rows[i] = []string{m.Month, formatMoney(m.Income), formatMoney(m.Expenses), formatMoney(m.Net), strconv.Itoa(m.Count)}
	}

	if err := r.println(FormatTitle(fmt.Sprintf("Spending summary %s to %s", s.Start, s.End))); err != nil {
		return err
	}
	if err := r.println(renderTable([]string{"Month", "Income", "Expenses", "Net", "Transactions"}, rows, 1, 2, 3, 4)); err != nil {
		return err
	}
	return r.println(SubtleStyle.Render(fmt.Sprintf("Income %s  Expenses %s  Net %s",
		formatMoney(s.Income), formatMoney(s.Expenses), formatMoney(s.Net))))
}

// Categories writes expense totals per category, largest first.
func (r *Renderer) Categories(totals []report.CategoryTotal) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(totals)
	case FormatCSV:
		rows := make([][]string, len(totals))
		for i, ct := range totals {
			rows[i] = []string{ct.Category, formatMoney(ct.Amount), strconv.Itoa(ct.Count), formatFloat(ct.Share, 3)}
		}
		return r.writeCSV([]string{"category", "amount", "transactions", "share"}, rows)
	}

	if len(totals) == 0 {
		return r.println(FormatInfo("No spending in the selected period."))
	}

	rows := make([][]string, len(totals))
	for i, ct := range totals {
		rows[i] = []string{ct.Category, formatMoney(ct.Amount), strconv.Itoa(ct.Count), formatPercent(ct.Share)}
	}
	if err := r.println(FormatTitle(fmt.Sprintf("Spending by category (%d)", len(totals)))); err != nil {
		return err
	}
	return r.println(renderTable([]string{"Category", "Amount", "Transactions", "Share"}, rows, 1, 2, 3))
}

// Merchants writes the merchants with the most spending.
func (r *Renderer) Merchants(merchants []report.MerchantTotal) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(merchants)
	case FormatCSV:
		rows := make([][]string, len(merchants))
		for i, m := range merchants {
			rows[i] = []string{m.Merchant, formatMoney(m.Amount), strconv.Itoa(m.Count)}
		}
		return r.writeCSV([]string{"merchant", "amount", "transactions"}, rows)
	}

	if len(merchants) == 0 {
		return r.println(FormatInfo("No spending in the selected period."))
	}

	rows := make([][]string, len(merchants))
	for i, m := range merchants {
		rows[i] = []string{strconv.Itoa(i + 1), m.Merchant, formatMoney(m.Amount), strconv.Itoa(m.Count)}
	}
	if err := r.println(FormatTitle(fmt.Sprintf("Top merchants (%d)", len(merchants)))); err != nil {
		return err
	}
	return r.println(renderTable([]string{"#", "Merchant", "Amount", "Transactions"}, rows, 0, 2, 3))
}

// Budget writes budget against actual spending for start..end.
func (r *Renderer) Budget(lines []report.BudgetLine, start, end civil.Date) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(lines)
	case FormatCSV:
		rows := make([][]string, len(lines))
		for i, l := range lines {
			rows[i] = []string{l.Category, formatMoney(l.Budget), formatMoney(l.Actual), formatMoney(l.Difference), formatFloat(l.Utilization, 1)}
		}
		return r.writeCSV([]string{"category", "budget", "actual", "difference", "utilization"}, rows)
	}

	if len(lines) == 0 {
		return r.println(FormatInfo("No budgets or spending in the selected period."))
	}

	rows := make([][]string, len(lines))
	for i, l := range lines {
		used := "-"
		if l.Budget > 0 {
			used = formatFloat(l.Utilization, 1) + "%"
		}
		rows[i] = []string{l.Category, formatMoney(l.Budget), formatMoney(l.Actual), formatMoney(l.Difference), used}
	}
	if err := r.println(FormatTitle(fmt.Sprintf("Budget vs actual %s to %s", start, end))); err != nil {
		return err
	}
	return r.println(renderTable([]string{"Category", "Budget", "Actual", "Remaining", "Used"}, rows, 1, 2, 3, 4))
}

// Alerts writes spending alerts, most severe first.
func (r *Renderer) Alerts(alerts []report.Alert) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(alerts)
	case FormatCSV:
		rows := make([][]string, len(alerts))
		for i, a := range alerts {
			rows[i] = []string{string(a.Severity), string(a.Kind), a.Category, a.Month, formatMoney(a.Amount), a.Message}
		}
		return r.writeCSV([]string{"severity", "kind", "category", "month", "amount", "message"}, rows)
	}

	if len(alerts) == 0 {
		return r.println(FormatSuccess("No spending alerts."))
	}

	if err := r.println(FormatTitle(fmt.Sprintf("Spending alerts (%d)", len(alerts)))); err != nil {
		return err
	}
	for _, a := range alerts {
		var line string
		switch a.Severity {
		case report.SeverityCritical:
			line = FormatError(a.Message)
		case report.SeverityWarning:
			line = FormatWarning(a.Message)
		default:
			line = FormatInfo(a.Message)
		}
		if err := r.println(line); err != nil {
			return err
		}
	}
	return nil
}
