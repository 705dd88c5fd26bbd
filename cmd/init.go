package cmd

import (
	"github.com/spf13/cobra"

	"github.com/claimlens/claimlens/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize claimlens configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure claimlens and generates a .claimlens.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
