package main

import (
	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-cadence/internal/cli"
	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/config"
	"github.com/Veraticus/spice-cadence/internal/csvimport"
	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize spending, budgets and alerts",
		Long: `Report on imported transactions: income against expenses, spending per
category and merchant, budgets from the budgets config key, and alerts for
months that stand out.`,
	}

	flags := cmd.PersistentFlags()
	flags.String("start-date", "", "Only report on transactions on or after this date")
	flags.String("end-date", "", "Only report on transactions on or before this date")
	flags.String("format", "table", "Output format (table, csv, json)")
	flags.String("file", "", "Read history from a CSV export instead of the database")
	flags.String("file-format", string(csvimport.FormatDebit), "Format of --file (debit, visa)")

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Income, expenses and net per month",
		Args:  cobra.NoArgs,
		RunE:  runReportSummary,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "Spending per category",
		Args:  cobra.NoArgs,
		RunE:  runReportCategories,
	})

	merchants := &cobra.Command{
		Use:   "merchants",
		Short: "Merchants with the most spending",
		Args:  cobra.NoArgs,
		RunE:  runReportMerchants,
	}
	merchants.Flags().Int("top", 20, "Number of merchants to show (0 for all)")
	cmd.AddCommand(merchants)

	cmd.AddCommand(&cobra.Command{
		Use:   "budget",
		Short: "Compare spending with the configured budgets",
		Args:  cobra.NoArgs,
		RunE:  runReportBudget,
	})

	alerts := &cobra.Command{
		Use:   "alerts",
		Short: "Flag budget overruns and unusual months",
		Args:  cobra.NoArgs,
		RunE:  runReportAlerts,
	}
	alerts.Flags().Float64("spike", 0, "Month-over-month growth factor that counts as a spike (default: alerts.spike_factor)")
	alerts.Flags().Float64("std-dev", 0, "Standard deviations that make a month unusual (default: alerts.std_dev_threshold)")
	cmd.AddCommand(alerts)

	return cmd
}

// reportInput is the history and renderer shared by the report subcommands.
type reportInput struct {
	renderer *cli.Renderer
	history  []model.Transaction
}

func loadReportInput(cmd *cobra.Command) (*reportInput, error) {
	format, _ := cmd.Flags().GetString("format")
	outFormat, err := cli.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	history, err := loadHistory(cmd)
	if err != nil {
		return nil, err
	}
	common.LogDebug("Loaded history for report", common.Fields{
		"command": cmd.Name(),
		"history": len(history),
	})

	return &reportInput{
		renderer: cli.NewRenderer(cmd.OutOrStdout(), outFormat),
		history:  history,
	}, nil
}

func runReportSummary(cmd *cobra.Command, _ []string) error {
	in, err := loadReportInput(cmd)
	if err != nil {
		return err
	}
	return in.renderer.Summary(report.Summarize(in.history))
}

func runReportCategories(cmd *cobra.Command, _ []string) error {
	in, err := loadReportInput(cmd)
	if err != nil {
		return err
	}
	return in.renderer.Categories(report.CategoryTotals(in.history))
}

func runReportMerchants(cmd *cobra.Command, _ []string) error {
	top, _ := cmd.Flags().GetInt("top")
	if top < 0 {
		return common.NewUserError("--top must not be negative", common.ErrInvalidConfig)
	}

	in, err := loadReportInput(cmd)
	if err != nil {
		return err
	}
	return in.renderer.Merchants(report.TopMerchants(in.history, top))
}

func runReportBudget(cmd *cobra.Command, _ []string) error {
	budgets, err := config.LoadBudgets(viper.GetViper())
	if err != nil {
		return err
	}

	in, err := loadReportInput(cmd)
	if err != nil {
		return err
	}

	lines, start, end, err := budgetLines(cmd, in.history, budgets)
	if err != nil {
		return err
	}
	return in.renderer.Budget(lines, start, end)
}

func runReportAlerts(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadAlertConfig(viper.GetViper())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("spike") {
		cfg.SpikeFactor, _ = flags.GetFloat64("spike")
	}
	if flags.Changed("std-dev") {
		cfg.StdDevThreshold, _ = flags.GetFloat64("std-dev")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	budgets, err := config.LoadBudgets(viper.GetViper())
	if err != nil {
		return err
	}

	in, err := loadReportInput(cmd)
	if err != nil {
		return err
	}

	lines, _, _, err := budgetLines(cmd, in.history, budgets)
	if err != nil {
		return err
	}
	return in.renderer.Alerts(report.Alerts(report.MonthlySummary(in.history), lines, cfg))
}

// budgetLines compares history with budgets over the --start-date/--end-date
// period, defaulting to the span of the history.
func budgetLines(cmd *cobra.Command, history []model.Transaction, budgets []model.Budget) ([]report.BudgetLine, civil.Date, civil.Date, error) {
	start, end, err := dateRange(cmd)
	if err != nil {
		return nil, civil.Date{}, civil.Date{}, err
	}
	from, to := report.Period(history, start, end, today())
	return report.BudgetVsActual(history, budgets, from, to), from, to, nil
}
