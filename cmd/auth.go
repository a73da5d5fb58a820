package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/logger"
)

// AuthStatus represents the authentication status
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user,omitempty"`
	Remaining     string `json:"rateLimit,omitempty"`
	Error         string `json:"error,omitempty"`
}

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Verify GitHub authentication status",
	Long: `Check that gh-backport can reach the GitHub API with the configured
credentials and show the authenticated user and remaining request budget.

Credentials come from github.tokenFile when set, otherwise from the GitHub
CLI (gh auth login).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		logger.Debug().Msg("Checking GitHub authentication status")

		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return outputAuthStatus(cmd.OutOrStdout(), AuthStatus{Error: err.Error()})
		}

		user, err := client.CurrentUser(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to get authenticated user")
			return outputAuthStatus(cmd.OutOrStdout(), AuthStatus{
				Error: "Not authenticated or unable to reach GitHub API",
			})
		}

		logger.Info().Str("user", user.GetLogin()).Msg("Successfully authenticated")

		return outputAuthStatus(cmd.OutOrStdout(), AuthStatus{
			Authenticated: true,
			User:          user.GetLogin(),
			Remaining:     client.RateLimit().String(),
		})
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}

// outputAuthStatus outputs the authentication status based on the JSON flag
func outputAuthStatus(w io.Writer, status AuthStatus) error {
	if GetJSON() {
		output, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(output))
	} else if status.Authenticated {
		fmt.Fprintf(w, "✓ Authenticated as %s\n", status.User)
		if status.Remaining != "" {
			fmt.Fprintln(w, status.Remaining)
		}
	} else {
		fmt.Fprintln(w, "✗ Not authenticated")
		if status.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", status.Error)
		}
		fmt.Fprintln(w, "\nPlease authenticate using: gh auth login")
	}

	// Return error if not authenticated (for exit code)
	if !status.Authenticated {
		return fmt.Errorf("not authenticated")
	}

	return nil
}
