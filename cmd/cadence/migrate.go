package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-cadence/internal/cli"
	"github.com/Veraticus/spice-cadence/internal/config"
	"github.com/Veraticus/spice-cadence/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup, so this is only needed to
prepare a database ahead of time or to inspect its version.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	dbPath := config.DatabasePath(viper.GetViper())
	out := cmd.OutOrStdout()

	slog.Debug("Starting database migration", "database", dbPath, "status_only", status)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	if status {
		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Database: %s", dbPath)))
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Schema version: %d (latest %d)", current, storage.ExpectedSchemaVersion)))
		if current < storage.ExpectedSchemaVersion {
			fmt.Fprintln(out, cli.FormatWarning("Migrations pending. Run: cadence migrate"))
			return nil
		}
		return printHistorySummary(cmd, store)
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database migrations completed (%s)", dbPath)))
	return nil
}

func printHistorySummary(cmd *cobra.Command, store *storage.SQLiteStorage) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	count, err := store.GetTransactionCount(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Fprintln(out, cli.FormatInfo("History: empty"))
		return nil
	}

	earliest, err := store.GetEarliestTransactionDate(ctx)
	if err != nil {
		return err
	}
	latest, err := store.GetLatestTransactionDate(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("History: %d transactions from %s to %s",
		count, earliest.Format("2006-01-02"), latest.Format("2006-01-02"))))
	return nil
}
