package main

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-cadence/internal/cli"
	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/config"
	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/plaid"
)

// newPlaidFetcher is replaced in tests.
var newPlaidFetcher = func() (plaid.TransactionFetcher, error) {
	cfg, err := config.LoadPlaidConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return plaid.NewClient(cfg)
}

func importPlaidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plaid",
		Short: "Import transactions from Plaid",
		Long: `Import financial transactions from your connected Plaid accounts.

Credentials come from the plaid.* config keys or the PLAID_CLIENT_ID,
PLAID_SECRET, PLAID_ACCESS_TOKEN and PLAID_ENV environment variables.
Pending transactions are skipped until they post.`,
		Args: cobra.NoArgs,
		RunE: runImportPlaid,
	}

	cmd.Flags().String("start-date", "", "Start date for transaction import (format: 2006-01-02)")
	cmd.Flags().String("end-date", "", "End date for transaction import (format: 2006-01-02)")
	cmd.Flags().Int("days", 90, "Number of days to import (default: since the newest stored transaction, or 90)")
	cmd.Flags().StringSlice("accounts", nil, "Filter by specific account IDs (comma-separated)")
	cmd.Flags().Bool("list-accounts", false, "List available accounts without importing")

	return cmd
}

func runImportPlaid(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fetcher, err := newPlaidFetcher()
	if err != nil {
		return fmt.Errorf("failed to create Plaid client: %w", err)
	}

	if list, _ := cmd.Flags().GetBool("list-accounts"); list {
		accounts, err := fetcher.GetAccounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		if len(accounts) == 0 {
			fmt.Fprintln(out, cli.FormatWarning("No accounts found"))
			return nil
		}
		fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Found %d accounts", len(accounts))))
		for i, a := range accounts {
			fmt.Fprintf(out, "%d. %s  %s (%s)\n", i+1, a.ID, a.Name, a.Type)
		}
		return nil
	}

	imp, err := newImporter(cmd)
	if err != nil {
		return err
	}
	defer imp.Close()

	startDate, endDate, err := plaidRange(cmd, imp)
	if err != nil {
		return err
	}

	transactions, err := fetcher.GetTransactions(ctx, startDate.In(time.UTC), endDate.In(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if accountIDs, _ := cmd.Flags().GetStringSlice("accounts"); len(accountIDs) > 0 {
		transactions = filterTransactionsByAccount(transactions, accountIDs)
	}

	return imp.save(ctx, "plaid", transactions)
}

// plaidRange resolves the import window. Without --start-date or --days the
// import resumes from the newest stored transaction; duplicates from the
// overlapping day are ignored on save.
func plaidRange(cmd *cobra.Command, imp *importer) (civil.Date, civil.Date, error) {
	start, end, err := dateRange(cmd)
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}

	endDate := today()
	if end != nil {
		endDate = *end
	}
	if start != nil {
		return *start, endDate, nil
	}

	if !cmd.Flags().Changed("days") && imp.store != nil {
		latest, err := imp.store.GetLatestTransactionDate(cmd.Context())
		switch {
		case err == nil:
			if from := civil.DateOf(latest); !from.After(endDate) {
				return from, endDate, nil
			}
		case !errors.Is(err, common.ErrNoTransactions):
			return civil.Date{}, civil.Date{}, err
		}
	}

	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		return civil.Date{}, civil.Date{}, fmt.Errorf("--days must be positive, got %d", days)
	}
	return endDate.AddDays(-days), endDate, nil
}

func filterTransactionsByAccount(transactions []model.Transaction, accountIDs []string) []model.Transaction {
	accountSet := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		accountSet[id] = true
	}

	filtered := make([]model.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if accountSet[tx.AccountID] {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
