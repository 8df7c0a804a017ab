package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-cadence/internal/cli"
	"github.com/Veraticus/spice-cadence/internal/csvimport"
	"github.com/Veraticus/spice-cadence/internal/model"
)

func importCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Import chequing and Visa CSV exports",
		Long: `Import CSV exports from online banking.

The debit export has the columns Date, Transaction Details, Funds Out and
Funds In. The Visa export adds a Credit Card column. Card payments in the
Visa export are skipped because the debit export already records them.

Examples:
  cadence import csv --debit ~/Downloads/chequing.csv
  cadence import csv --debit chequing.csv --visa visa.csv`,
		Args: cobra.NoArgs,
		RunE: runImportCSV,
	}

	cmd.Flags().String("debit", "", "Path to the chequing account export")
	cmd.Flags().String("visa", "", "Path to the Visa export")

	return cmd
}

func runImportCSV(cmd *cobra.Command, _ []string) error {
	debitPath, _ := cmd.Flags().GetString("debit")
	visaPath, _ := cmd.Flags().GetString("visa")
	if debitPath == "" && visaPath == "" {
		return fmt.Errorf("at least one of --debit or --visa is required")
	}

	imp, err := newImporter(cmd)
	if err != nil {
		return err
	}
	defer imp.Close()

	type job struct {
		result *csvimport.Result
		path   string
		format csvimport.Format
	}
	var jobs []*job
	if debitPath != "" {
		jobs = append(jobs, &job{path: debitPath, format: csvimport.FormatDebit})
	}
	if visaPath != "" {
		jobs = append(jobs, &job{path: visaPath, format: csvimport.FormatVisa})
	}

	parser := csvimport.NewParser()
	g, ctx := errgroup.WithContext(cmd.Context())
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			result, err := parser.ParseFile(ctx, j.path, j.format)
			if err != nil {
				return err
			}
			j.result = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to parse csv: %w", err)
	}

	var all []model.Transaction
	for _, j := range jobs {
		if n := len(j.result.Skipped); n > 0 {
			slog.Warn("Skipped unreadable rows", "file", j.path, "rows", n)
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(fmt.Sprintf("%s: skipped %d unreadable rows", j.path, n)))
		}
		all = append(all, j.result.Transactions...)
	}

	return imp.save(cmd.Context(), "csv", all)
}
