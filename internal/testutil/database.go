// Package testutil provides test utilities for packages that need a seeded
// transaction store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/storage"
	"github.com/Veraticus/spice-cadence/internal/testutil/history"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage      *storage.SQLiteStorage
	t            *testing.T
	Transactions []model.Transaction
}

// SetupTestDB creates a new in-memory test database seeded with txns.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		history.NewBuilder(t).
//			WithFixture(history.FixtureHousehold).
//			Build()...,
//	)
func SetupTestDB(t *testing.T, txns ...model.Transaction) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Transactions: txns})
}

// SetupTestDBWithBuilder creates a test database using a history builder.
// This is a convenience method that combines building and setup.
//
// Example:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b history.Builder) history.Builder {
//		return b.WithFixture(history.FixtureLapsedRent)
//	})
func SetupTestDBWithBuilder(t *testing.T, configure func(history.Builder) history.Builder) *TestDB {
	t.Helper()

	builder := history.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	return SetupTestDB(t, builder.Build()...)
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Path           string // defaults to :memory:
	Transactions   []model.Transaction
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	path := opts.Path
	if path == "" {
		path = ":memory:"
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if len(opts.Transactions) > 0 {
		if opts.SkipMigrations {
			t.Fatalf("cannot seed transactions without migrations")
		}
		if _, err := store.SaveTransactions(ctx, opts.Transactions); err != nil {
			t.Fatalf("failed to seed transactions: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage:      store,
		Transactions: opts.Transactions,
		t:            t,
	}
}

// MustCount returns the number of stored transactions or fails the test.
func (db *TestDB) MustCount() int {
	db.t.Helper()
	n, err := db.Storage.GetTransactionCount(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
