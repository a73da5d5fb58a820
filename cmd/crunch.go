package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/format"
	"github.com/serpro69/gh-backport/internal/logger"
)

// crunchCmd represents the crunch command
var crunchCmd = &cobra.Command{
	Use:   "crunch [pr-number...]",
	Short: "Report which pull requests are already backported",
	Long: `Report, for each pull request, whether all of its commits are already in the
current target branch. Without arguments every PR in the metadata cache is
reported.

Checks never fail this command; their findings are only logged at debug level.

Examples:
  # Report every cached PR
  gh backport crunch

  # Report specific PRs as JSON
  gh backport crunch 1234 1240 --json`,
	RunE: runCrunch,
}

func init() {
	rootCmd.AddCommand(crunchCmd)
}

func runCrunch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	numbers, err := parsePRNumbers(args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, appOptions{silent: true})
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		numbers = a.store.PullRequestNumbers()
	}

	prs, err := a.resolver.ResolveAll(ctx, numbers)
	if err != nil {
		return err
	}

	rows := make([]format.CrunchRow, 0, len(prs))
	for _, pr := range prs {
		backported, err := a.resolver.IsFullyBackported(ctx, pr)
		if err != nil {
			return err
		}
		log := logger.WithPR(pr.Number)
		log.Debug().Bool("backported", backported).Msg("Crunched")
		rows = append(rows, format.CrunchRow{
			Number:     pr.Number,
			Title:      pr.Title,
			Backported: backported,
			Merged:     pr.Merged,
			MergedAt:   pr.MergedAt,
			URL:        pr.URL,
		})
	}

	if GetJSON() {
		out, err := format.FormatCrunchJSON(rows)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, out)
		return nil
	}

	fmt.Fprintln(a.out, format.FormatCrunchTable(rows, format.CrunchOptions{
		UseColor:      useColor(),
		MaxTitleWidth: 72,
	}))
	return nil
}
