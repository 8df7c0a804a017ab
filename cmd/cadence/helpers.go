package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-cadence/internal/classification"
	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/config"
	"github.com/Veraticus/spice-cadence/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath(viper.GetViper()))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newCategorizer builds the categorizer from the categories config key.
func newCategorizer() (*classification.Categorizer, error) {
	rules, err := config.LoadCategoryRules(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return classification.NewCategorizer(rules)
}

// parseDate parses a YYYY-MM-DD flag value.
func parseDate(flag, value string) (civil.Date, error) {
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, common.NewUserError(
			fmt.Sprintf("--%s must be a date like 2024-01-31, got %q", flag, value), err)
	}
	return d, nil
}

// dateFlag returns the parsed value of a date flag, or nil when it is unset.
func dateFlag(cmd *cobra.Command, name string) (*civil.Date, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return nil, nil
	}
	d, err := parseDate(name, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// dateRange reads --start-date and --end-date. Either may be unset.
func dateRange(cmd *cobra.Command) (start, end *civil.Date, err error) {
	if start, err = dateFlag(cmd, "start-date"); err != nil {
		return nil, nil, err
	}
	if end, err = dateFlag(cmd, "end-date"); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, common.NewUserError("--end-date is before --start-date", common.ErrInvalidConfig)
	}
	return start, end, nil
}

// today returns the current local calendar date.
func today() civil.Date {
	return civil.DateOf(time.Now())
}

func utcTime(d *civil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.In(time.UTC)
	return &t
}
