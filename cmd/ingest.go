package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/claimdeck/claimdeck/internal/claims"
	"github.com/claimdeck/claimdeck/internal/config"
	"github.com/claimdeck/claimdeck/internal/db"
	"github.com/claimdeck/claimdeck/internal/progress"
)

var ingestPattern string

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Load assessment snapshot files into the claim store",
	Long: `Scans a directory for snapshot JSON files and ingests each one.
A snapshot file carries the claim identity and one full run snapshot;
existing runs with the same ID are replaced atomically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		dir := args[0]
		matches, err := doublestar.Glob(os.DirFS(dir), ingestPattern)
		if err != nil {
			return fmt.Errorf("globbing %s: %w", ingestPattern, err)
		}
		if len(matches) == 0 {
			fmt.Fprintf(os.Stderr, "No files matching %s under %s\n", ingestPattern, dir)
			return nil
		}

		dbPath := filepath.Join(cfg.DataDir, "claimdeck.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := claims.NewStore(database, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		ctx := context.Background()

		reporter := progress.NewReporter()
		reporter.Start(len(matches))

		ingested, failed := 0, 0
		for i, match := range matches {
			reporter.Update(i+1, match)

			if err := ingestFile(ctx, store, filepath.Join(dir, match)); err != nil {
				failed++
				if verbose {
					fmt.Fprintf(os.Stderr, "  %s: %v\n", match, err)
				}
				continue
			}
			ingested++
		}
		reporter.Finish()

		fmt.Fprintf(os.Stderr, "Ingested %d snapshots (%d failed) into %s\n", ingested, failed, dbPath)
		if failed > 0 && !verbose {
			fmt.Fprintln(os.Stderr, "Re-run with --verbose for per-file errors.")
		}
		return nil
	},
}

func ingestFile(ctx context.Context, store *claims.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var f claims.IngestFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if f.Claim.ClaimNumber == "" {
		return fmt.Errorf("%s: claim.claim_number is required", path)
	}

	claim, err := store.EnsureClaim(ctx, f.Claim)
	if err != nil {
		return err
	}
	_, err = store.IngestSnapshot(ctx, claim.ID, f.Snapshot)
	return err
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPattern, "pattern", "**/*.json", "glob pattern for snapshot files")
	rootCmd.AddCommand(ingestCmd)
}
