package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-cadence/internal/cli"
	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/ofx"
)

// maxParallelFiles bounds concurrent OFX parsing.
const maxParallelFiles = 4

func importOFXCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import financial transactions from OFX or QFX (Quicken) files exported from your bank.

Examples:
  # Import single file
  cadence import ofx ~/Downloads/chequing_jan_2024.qfx

  # Import all QFX files in a directory
  cadence import ofx ~/Downloads/*.qfx

  # Import from multiple directories
  cadence import ofx ~/Downloads/Chequing/*.qfx ~/Downloads/Visa/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	imp, err := newImporter(cmd)
	if err != nil {
		return err
	}
	defer imp.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Parsing files...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	parser := ofx.NewParser()
	results := make([][]model.Transaction, len(files))
	failures := make([]error, len(files))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxParallelFiles)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			defer func() {
				if err := bar.Add(1); err != nil {
					slog.Warn("Failed to update progress bar", "error", err)
				}
			}()

			f, err := os.Open(path) //nolint:gosec // path comes from the command line
			if err != nil {
				failures[i] = err
				return nil
			}
			defer func() { _ = f.Close() }()

			txns, err := parser.ParseFile(ctx, f)
			if err != nil {
				// A bad file is reported and skipped; cancellation stops everything.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failures[i] = err
				return nil
			}
			results[i] = txns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var (
		all    []model.Transaction
		seen   = make(map[string]bool)
		failed int
	)
	for i, path := range files {
		if failures[i] != nil {
			failed++
			common.LogError(failures[i], "Failed to parse OFX file", common.Fields{"file": path})
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(fmt.Sprintf("%s: %v", filepath.Base(path), failures[i])))
			continue
		}
		for _, txn := range results[i] {
			if seen[txn.Hash] {
				continue
			}
			seen[txn.Hash] = true
			all = append(all, txn)
		}
	}

	if failed == len(files) {
		return fmt.Errorf("none of the %d files could be parsed", len(files))
	}

	return imp.save(cmd.Context(), "ofx", all)
}

// expandFiles resolves glob patterns. A pattern with no matches is kept when
// it names an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
