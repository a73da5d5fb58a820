package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/github"
	"github.com/serpro69/gh-backport/internal/logger"
)

// searchResult is the --json output of the search command
type searchResult struct {
	Labels    map[string][]int `json:"labels"`
	Found     []int            `json:"found"`
	Remaining int              `json:"remaining,omitempty"`
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find merged pull requests labelled for backporting",
	Long: `Search the main development branch for merged pull requests carrying any of
the backport labels and record them in the metadata cache of the current
target branch.

Labels come from --label or search.labels; PRs created before
search.createdAfter are not considered.

Examples:
  # Search with the configured labels, targeting the current branch
  gh backport search

  # Search a specific label
  gh backport search --label needs-backport-1.x`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	if len(a.labels) == 0 {
		return errors.New("no backport labels: pass --label or set search.labels")
	}

	createdAfter, err := a.cfg.SearchCreatedAfter()
	if err != nil {
		return err
	}

	log := logger.WithCommand("search")
	result := searchResult{Labels: map[string][]int{}}
	var found []int
	for _, label := range a.labels {
		numbers, err := a.client.SearchMergedPullRequests(ctx, github.SearchQuery{
			Label:        label,
			Base:         a.cfg.Branches.Main,
			CreatedAfter: createdAfter,
			Limit:        a.cfg.Search.Limit,
		})
		if err != nil {
			return err
		}
		log.Info().Str("label", label).Int("count", len(numbers)).Msg("Search finished")
		result.Labels[label] = numbers
		if !GetJSON() {
			fmt.Fprintf(a.out, "found for label %s: %v\n", label, numbers)
		}
		for _, n := range numbers {
			if !slices.Contains(found, n) {
				found = append(found, n)
			}
		}
	}

	for _, n := range found {
		if _, err := a.resolver.Resolve(ctx, n); err != nil {
			return err
		}
	}
	result.Found = found

	rate := a.client.RateLimit()
	if rate.Known() {
		result.Remaining = rate.Remaining
	}

	if GetJSON() {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}

	fmt.Fprintf(a.out, "found %d issues\n", len(found))
	fmt.Fprintln(a.out, rate.String())
	return nil
}
