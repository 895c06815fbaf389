package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "claimdeck",
	Short: "Decision-support backend for insurance claim review",
	Long: `Claimdeck serves the claims-review dashboard: it ingests assessment
run snapshots (facts, checks, assumptions, conflicts, service history)
and exposes the derived views reviewers work with, including decision
readiness, the cost ledger, and the service timeline.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".claimdeck.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
