// Package config turns viper settings into the typed configuration of each
// cadence component and resolves the paths cadence reads and writes.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName      = "cadence"
	databaseFile = "cadence.db"
	memoryDB     = ":memory:"
)

// ConfigDir is where config.yaml is looked up: $XDG_CONFIG_HOME/cadence,
// falling back to ~/.config/cadence.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir holds the database: $XDG_DATA_HOME/cadence, falling back to
// ~/.local/share/cadence.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// DatabasePath returns the database.path key of v with ~ and environment
// variables expanded, or cadence.db under DataDir when it is unset.
// ":memory:" is returned as is.
func DatabasePath(v *viper.Viper) string {
	path := strings.TrimSpace(v.GetString("database.path"))
	switch path {
	case "":
		return filepath.Join(DataDir(), databaseFile)
	case memoryDB:
		return path
	}
	return expandPath(path)
}

func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); filepath.IsAbs(base) {
		return filepath.Join(base, appName)
	}
	return filepath.Join(homeDir(), fallback, appName)
}

// expandPath expands a leading ~ and $VAR references.
func expandPath(path string) string {
	switch {
	case path == "~":
		path = homeDir()
	case strings.HasPrefix(path, "~/"):
		path = filepath.Join(homeDir(), path[2:])
	}
	return filepath.Clean(os.ExpandEnv(path))
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
