package main

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-cadence/internal/cli"
	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/config"
	"github.com/Veraticus/spice-cadence/internal/csvimport"
	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/recurring"
	"github.com/Veraticus/spice-cadence/internal/service"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Detect, predict and check recurring transactions",
		Long: `Group imported transactions into recurring patterns, project their
next occurrences, and flag the ones that have not shown up on time.

Thresholds come from the recurring.* config keys; the flags below override
them for one run.`,
	}

	flags := cmd.PersistentFlags()
	flags.String("now", "", "Treat this date as today (format: 2006-01-02)")
	flags.String("start-date", "", "Only use history on or after this date")
	flags.String("end-date", "", "Only use history on or before this date")
	flags.String("format", "table", "Output format (table, csv, json)")
	flags.Int("min-occurrences", 0, "Minimum transactions for a pattern")
	flags.Float64("similarity", 0, "Description similarity threshold in [0,1]")
	flags.Float64("tolerance", 0, "Amount tolerance (fraction or currency units, see --tolerance-mode)")
	flags.String("tolerance-mode", "", "Amount tolerance mode (relative, absolute)")
	flags.String("file", "", "Read history from a CSV export instead of the database")
	flags.String("file-format", string(csvimport.FormatDebit), "Format of --file (debit, visa)")

	cmd.AddCommand(&cobra.Command{
		Use:   "detect",
		Short: "List recurring patterns",
		Args:  cobra.NoArgs,
		RunE:  runDetect,
	})

	predict := &cobra.Command{
		Use:   "predict",
		Short: "Project upcoming occurrences of recurring patterns",
		Args:  cobra.NoArgs,
		RunE:  runPredict,
	}
	predict.Flags().Int("months", 0, "Calendar months to project (default: recurring.months_ahead)")
	predict.Flags().Bool("by-pattern", false, "Group upcoming occurrences under their pattern")
	cmd.AddCommand(predict)

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "Flag recurring patterns that are late",
		Args:  cobra.NoArgs,
		RunE:  runOverdue,
	}
	overdue.Flags().Int("grace", 0, "Days of lateness to tolerate (default: recurring.grace_period_days)")
	cmd.AddCommand(overdue)

	return cmd
}

// detection is the shared setup of every recurring subcommand.
type detection struct {
	detector *recurring.Detector
	renderer *cli.Renderer
	result   recurring.Result
	now      civil.Date
}

func runDetection(cmd *cobra.Command) (*detection, error) {
	format, _ := cmd.Flags().GetString("format")
	outFormat, err := cli.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	detector, err := newDetector(cmd)
	if err != nil {
		return nil, err
	}

	now := today()
	if d, err := dateFlag(cmd, "now"); err != nil {
		return nil, err
	} else if d != nil {
		now = *d
	}

	history, err := loadHistory(cmd)
	if err != nil {
		return nil, err
	}

	result := detector.Detect(history)
	common.LogDebug("Detection complete", common.Fields{
		"history":     len(history),
		"patterns":    len(result.Patterns),
		"predictable": len(result.Predictable()),
		"irregular":   len(result.Irregular()),
	})

	return &detection{
		detector: detector,
		renderer: cli.NewRenderer(cmd.OutOrStdout(), outFormat),
		result:   result,
		now:      now,
	}, nil
}

func runDetect(cmd *cobra.Command, _ []string) error {
	d, err := runDetection(cmd)
	if err != nil {
		return err
	}
	return d.renderer.Patterns(d.result.Patterns)
}

func runPredict(cmd *cobra.Command, _ []string) error {
	d, err := runDetection(cmd)
	if err != nil {
		return err
	}

	months := d.detector.Config().MonthsAhead
	if cmd.Flags().Changed("months") {
		months, _ = cmd.Flags().GetInt("months")
	}

	predictions, err := d.detector.PredictFuture(d.result.Predictable(), months, d.now)
	if err != nil {
		return err
	}

	if byPattern, _ := cmd.Flags().GetBool("by-pattern"); byPattern {
		return d.renderer.PredictionsByPattern(recurring.GroupPredictions(predictions))
	}
	return d.renderer.Predictions(predictions)
}

func runOverdue(cmd *cobra.Command, _ []string) error {
	d, err := runDetection(cmd)
	if err != nil {
		return err
	}

	grace := d.detector.Config().GracePeriodDays
	if cmd.Flags().Changed("grace") {
		grace, _ = cmd.Flags().GetInt("grace")
	}

	flags, err := d.detector.FindMissing(d.result.Predictable(), d.now, grace)
	if err != nil {
		return err
	}
	return d.renderer.Overdue(flags)
}

// newDetector loads the configured thresholds and applies flag overrides.
func newDetector(cmd *cobra.Command) (*recurring.Detector, error) {
	cfg, err := config.LoadDetectorConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("min-occurrences") {
		cfg.MinOccurrences, _ = flags.GetInt("min-occurrences")
	}
	if flags.Changed("similarity") {
		cfg.MerchantSimilarity, _ = flags.GetFloat64("similarity")
	}
	if flags.Changed("tolerance") {
		cfg.AmountTolerance, _ = flags.GetFloat64("tolerance")
	}
	if flags.Changed("tolerance-mode") {
		mode, _ := flags.GetString("tolerance-mode")
		cfg.ToleranceMode = recurring.ToleranceMode(mode)
	}

	return recurring.NewDetector(cfg, recurring.WithLogger(slog.Default().With("component", "recurring")))
}

// loadHistory reads the transaction history from --file or the database,
// restricted to --start-date/--end-date.
func loadHistory(cmd *cobra.Command) ([]model.Transaction, error) {
	ctx := cmd.Context()

	start, end, err := dateRange(cmd)
	if err != nil {
		return nil, err
	}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		format, _ := cmd.Flags().GetString("file-format")
		result, err := csvimport.NewParser().ParseFile(ctx, path, csvimport.Format(format))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return filterByDate(result.Transactions, start, end), nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	return store.GetTransactions(ctx, service.TransactionFilter{
		StartDate: utcTime(start),
		EndDate:   utcTime(end),
	})
}

func filterByDate(transactions []model.Transaction, start, end *civil.Date) []model.Transaction {
	if start == nil && end == nil {
		return transactions
	}

	filtered := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		d := txn.CalendarDate()
		if start != nil && d.Before(*start) {
			continue
		}
		if end != nil && d.After(*end) {
			continue
		}
		filtered = append(filtered, txn)
	}
	return filtered
}
