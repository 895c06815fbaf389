package cmd

import (
	"github.com/spf13/cobra"

	"github.com/claimdeck/claimdeck/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize claimdeck configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the review server and generates a .claimdeck.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
