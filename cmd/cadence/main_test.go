package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-cadence/internal/storage"
	"github.com/Veraticus/spice-cadence/internal/testutil/history"
)

// executeCommand runs the CLI with fresh global state and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cadence.db")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "cadence dev\n", out)
}

func TestMigrateCommand(t *testing.T) {
	db := tempDB(t)

	out, err := executeCommand(t, "--db", db, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 0 (latest 3)")
	assert.Contains(t, out, "Migrations pending")

	out, err = executeCommand(t, "--db", db, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Database migrations completed")

	out, err = executeCommand(t, "--db", db, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 3 (latest 3)")
	assert.NotContains(t, out, "Migrations pending")
	assert.Contains(t, out, "History: empty")

	store, err := storage.NewSQLiteStorage(db)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.ExpectedSchemaVersion, version)
}

func TestMigrateStatus_History(t *testing.T) {
	db := seedDB(t, history.FixtureLapsedRent)

	out, err := executeCommand(t, "--db", db, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "History: 4 transactions from 2024-01-01 to 2024-03-31")
}

func TestInvalidLogLevel(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "loud", "version"})

	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	writeFile(t, cfg, "recurring:\n  min_occurrences: 5\n")

	// With five required occurrences the four-month Spotify history no
	// longer forms a pattern.
	out, err := executeCommand(t, "--config", cfg, "recurring", "detect",
		"--file", filepath.Join("testdata", "chequing.csv"), "--format", "csv")
	require.NoError(t, err)
	assert.NotContains(t, out, "spotify")
}
