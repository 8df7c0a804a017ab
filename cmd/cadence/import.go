package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-cadence/internal/classification"
	"github.com/Veraticus/spice-cadence/internal/cli"
	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/storage"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions into the local database",
		Long: `Import transactions from bank exports or from Plaid.

Transactions are categorized with the configured keyword rules and
deduplicated by content, so importing the same export twice is harmless.`,
	}

	cmd.PersistentFlags().Bool("dry-run", false, "Parse and summarize without saving")

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())
	cmd.AddCommand(importPlaidCmd())

	return cmd
}

// importer categorizes parsed transactions and saves them.
type importer struct {
	out         io.Writer
	store       *storage.SQLiteStorage
	categorizer *classification.Categorizer
	dryRun      bool
}

func newImporter(cmd *cobra.Command) (*importer, error) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	categorizer, err := newCategorizer()
	if err != nil {
		return nil, fmt.Errorf("failed to load category rules: %w", err)
	}

	imp := &importer{
		out:         cmd.OutOrStdout(),
		categorizer: categorizer,
		dryRun:      dryRun,
	}
	if dryRun {
		return imp, nil
	}

	if imp.store, err = initStorage(cmd.Context()); err != nil {
		return nil, err
	}
	return imp, nil
}

func (imp *importer) Close() {
	if imp.store != nil {
		_ = imp.store.Close()
	}
}

// save categorizes transactions and writes them, then prints a summary.
func (imp *importer) save(ctx context.Context, source string, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		fmt.Fprintln(imp.out, cli.FormatWarning(fmt.Sprintf("No transactions found in %s", source)))
		return nil
	}

	if err := imp.categorizer.CategorizeAll(ctx, transactions); err != nil {
		return err
	}

	saved := 0
	if !imp.dryRun {
		var err error
		if saved, err = imp.store.SaveTransactions(ctx, transactions); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
	}

	common.LogInfo("Imported transactions", common.Fields{
		"source":  source,
		"parsed":  len(transactions),
		"saved":   saved,
		"dry_run": imp.dryRun,
	})

	first, last := transactions[0].CalendarDate(), transactions[0].CalendarDate()
	categories := make(map[string]int)
	for i := range transactions {
		d := transactions[i].CalendarDate()
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
		categories[transactions[i].Category]++
	}

	msg := fmt.Sprintf("%s: %d transactions from %s to %s", source, len(transactions), first, last)
	if imp.dryRun {
		fmt.Fprintln(imp.out, cli.FormatInfo(msg+" (dry run, nothing saved)"))
	} else {
		fmt.Fprintln(imp.out, cli.FormatSuccess(fmt.Sprintf("%s, %d new, %d already imported",
			msg, saved, len(transactions)-saved)))
	}

	for _, name := range imp.categorizer.Categories() {
		if n := categories[name]; n > 0 {
			fmt.Fprintln(imp.out, cli.SubtleStyle.Render(fmt.Sprintf("  %-20s %d", name, n)))
		}
	}
	return nil
}
