package commands

import (
	"github.com/spf13/cobra"
)

// Execute runs the casedesk CLI.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "casedesk",
		Short: "CaseDesk - case management back office",
		Long: `CaseDesk serves the case-management back office: a websocket-driven
single page whose navigation, authentication gate and access rules run on
the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "casedesk.yaml", "configuration file")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newRoutesCmd())
	rootCmd.AddCommand(newResolveCmd(&configPath))
	rootCmd.AddCommand(newTokenCmd(&configPath))
	rootCmd.AddCommand(newHashPasswordCmd())

	return rootCmd
}
