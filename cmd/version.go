package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the gh-backport version, git commit, build date, Go version and
platform. Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetVersion()

		if GetJSON() {
			jsonOutput, err := info.JSON()
			if err != nil {
				return fmt.Errorf("failed to format version as JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), jsonOutput)
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
