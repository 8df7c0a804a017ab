package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-cadence/internal/service"
	"github.com/Veraticus/spice-cadence/internal/storage"
	"github.com/Veraticus/spice-cadence/internal/testutil/history"
)

func TestSetupTestDBWithBuilder(t *testing.T) {
	db := SetupTestDBWithBuilder(t, func(b history.Builder) history.Builder {
		return b.WithFixture(history.FixtureHousehold)
	})

	assert.Equal(t, 32, db.MustCount())

	txns, err := db.Storage.GetTransactions(context.Background(), service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 32)
	assert.Equal(t, history.HouseholdStart, txns[0].CalendarDate())
}

func TestSetupTestDB_Empty(t *testing.T) {
	db := SetupTestDB(t)
	assert.Equal(t, 0, db.MustCount())
}

func TestSetupTestDBWithOptions(t *testing.T) {
	t.Run("file path and custom setup", func(t *testing.T) {
		called := false
		db := SetupTestDBWithOptions(t, TestDBOptions{
			Path:         filepath.Join(t.TempDir(), "cadence.db"),
			Transactions: history.NewBuilder(t).WithFixture(history.FixtureLapsedRent).Build(),
			CustomSetup: func(ctx context.Context, s *storage.SQLiteStorage) error {
				called = true
				n, err := s.GetTransactionCount(ctx)
				assert.Equal(t, 4, n)
				return err
			},
		})

		assert.True(t, called)
		assert.Equal(t, 4, db.MustCount())
	})

	t.Run("skip migrations", func(t *testing.T) {
		db := SetupTestDBWithOptions(t, TestDBOptions{SkipMigrations: true})
		version, err := db.Storage.SchemaVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, version)
	})
}
