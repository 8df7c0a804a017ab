package main

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/report"
	"github.com/Veraticus/spice-cadence/internal/testutil/history"
)

const januaryBudgets = `budgets:
  - category: Housing
    monthly: 1500
  - category: restaurants
    monthly: 20
`

func TestReportSummary_January(t *testing.T) {
	db := seedDB(t, history.FixtureHousehold)

	out, err := executeCommand(t, "--db", db, "report", "summary", "--format", "json",
		"--start-date", "2024-01-01", "--end-date", "2024-01-31")
	require.NoError(t, err)

	var got report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2024-01-01", got.Start.String())
	assert.Equal(t, "2024-01-19", got.End.String())
	assert.Equal(t, 7, got.Count)
	assert.InDelta(t, 4200, got.Income, 1e-9)
	assert.InDelta(t, 1628.49, got.Expenses, 1e-9)
	assert.InDelta(t, 2571.51, got.Net, 1e-9)
	require.Len(t, got.Months, 1)
	assert.InDelta(t, 31.5, got.Months[0].Categories["Restaurants"], 1e-9)
}

func TestReportSummary_Table(t *testing.T) {
	db := seedDB(t, history.FixtureHousehold)

	out, err := executeCommand(t, "--db", db, "report", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Spending summary 2024-01-01 to 2024-06-21")
	assert.Contains(t, out, "2024-06")

	out, err = executeCommand(t, "--db", tempDB(t), "report", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions in the selected period.")
}

func TestReportCategories(t *testing.T) {
	db := seedDB(t, history.FixtureHousehold)

	out, err := executeCommand(t, "--db", db, "report", "categories", "--format", "json")
	require.NoError(t, err)

	var got []report.CategoryTotal
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 4)

	names := make([]string, len(got))
	for i, ct := range got {
		names[i] = ct.Category
	}
	assert.Equal(t, []string{"Housing", "Shopping", "Entertainment", "Restaurants"}, names)
	assert.InDelta(t, 9000, got[0].Amount, 1e-9)
	assert.Equal(t, 6, got[0].Count)
	assert.InDelta(t, 101.94, got[2].Amount, 1e-9)
}

func TestReportMerchants(t *testing.T) {
	db := seedDB(t, history.FixtureHousehold)

	out, err := executeCommand(t, "--db", db, "report", "merchants", "--top", "2", "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"merchant", "amount", "transactions"},
		{"rent payment", "9000.00", "6"},
		{"home hardware", "200.00", "5"},
	}, records)
}

func TestReportMerchants_FromFile(t *testing.T) {
	out, err := executeCommand(t, "report", "merchants", "--format", "json",
		"--file", filepath.Join("testdata", "chequing.csv"))
	require.NoError(t, err)

	var got []report.MerchantTotal
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "spotify", got[0].Merchant)
	assert.Equal(t, 4, got[0].Count)
	assert.InDelta(t, 47.96, got[0].Amount, 1e-9)
	assert.Equal(t, "local barber", got[1].Merchant)
}

func TestReportBudget(t *testing.T) {
	db := seedDB(t, history.FixtureHousehold)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfg, januaryBudgets)

	out, err := executeCommand(t, "--config", cfg, "--db", db, "report", "budget", "--format", "json",
		"--start-date", "2024-01-01", "--end-date", "2024-01-31")
	require.NoError(t, err)

	var lines []report.BudgetLine
	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 4)

	byCategory := make(map[string]report.BudgetLine, len(lines))
	for _, l := range lines {
		byCategory[l.Category] = l
	}

	housing := byCategory["Housing"]
	assert.InDelta(t, 1527.60, housing.Budget, 0.01)
	assert.InDelta(t, 1500, housing.Actual, 1e-9)
	assert.InDelta(t, 98.19, housing.Utilization, 0.01)

	restaurants := byCategory["Restaurants"]
	assert.InDelta(t, 20.37, restaurants.Budget, 0.01)
	assert.InDelta(t, 154.65, restaurants.Utilization, 0.01)

	assert.Zero(t, byCategory["Shopping"].Budget)
	assert.InDelta(t, 80, byCategory["Shopping"].Actual, 1e-9)
}

func TestReportBudget_InvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfg, "budgets:\n  - category: Housing\n    monthly: -5\n")

	_, err := executeCommand(t, "--config", cfg, "--db", tempDB(t), "report", "budget")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestReportAlerts(t *testing.T) {
	db := seedDB(t, history.FixtureHousehold)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfg, januaryBudgets)

	out, err := executeCommand(t, "--config", cfg, "--db", db, "report", "alerts", "--format", "json",
		"--start-date", "2024-01-01", "--end-date", "2024-01-31")
	require.NoError(t, err)

	var alerts []report.Alert
	require.NoError(t, json.Unmarshal([]byte(out), &alerts))
	require.Len(t, alerts, 2)

	assert.Equal(t, report.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Restaurants is significantly over budget (154.7% used)", alerts[0].Message)
	assert.Equal(t, report.SeverityInfo, alerts[1].Severity)
	assert.Equal(t, "Housing is approaching its budget (98.2% used)", alerts[1].Message)
}

func TestReportAlerts_NoBudgets(t *testing.T) {
	db := seedDB(t, history.FixtureHousehold)

	// Steady monthly spending raises nothing.
	out, err := executeCommand(t, "--db", db, "report", "alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "No spending alerts.")
}

func TestReport_BadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "bad format", args: []string{"report", "summary", "--format", "xml"}},
		{name: "reversed range", args: []string{"report", "categories", "--start-date", "2024-03-01", "--end-date", "2024-01-01"}},
		{name: "negative top", args: []string{"report", "merchants", "--top", "-1"}},
		{name: "spike too small", args: []string{"report", "alerts", "--spike", "0.5"}},
		{name: "zero std dev", args: []string{"report", "alerts", "--std-dev", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, append([]string{"--db", tempDB(t)}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}
