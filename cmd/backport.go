package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/backport"
	"github.com/serpro69/gh-backport/internal/format"
	"github.com/serpro69/gh-backport/internal/logger"
	"github.com/serpro69/gh-backport/internal/version"
)

var (
	// backportCmd flags
	backportDryRun bool
)

// backportCmd represents the backport command
var backportCmd = &cobra.Command{
	Use:   "backport <pr-number>...",
	Short: "Cherry-pick merged pull requests onto a new backport branch",
	Long: `Cherry-pick the commits of the given merged pull requests onto a new branch
created from the current target branch.

PRs are processed in merge order. Commits already in the target branch fail
the commit-not-merged check (or are skipped with --ignore-commit-not-merged).
The remaining commits are applied in ancestry order with 'git cherry-pick -x'.

The work tree must be clean and the target branch checked out. The target is
updated from the upstream remote before the backport branch is created.

On a conflict the cherry-pick is left in progress; the command that abandons
the attempt is printed before any change is made.

Examples:
  # Backport two PRs onto the checked out release branch
  git checkout release-1.x
  gh backport backport 1234 1240

  # Show the plan without touching the work tree
  gh backport backport 1234 1240 --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBackport,
}

func init() {
	rootCmd.AddCommand(backportCmd)

	backportCmd.Flags().BoolVar(&backportDryRun, "dry-run", false, "Print the cherry-pick plan and stop")
}

func runBackport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	numbers, err := parsePRNumbers(args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}

	log := logger.WithCommand("backport")
	log.Debug().Ints("prs", numbers).Str("target", a.target).Bool("dry-run", backportDryRun).Msg("Starting backport")

	prs, err := a.resolver.ResolveAll(ctx, numbers)
	if err != nil {
		return err
	}
	if len(prs) == 0 {
		return fmt.Errorf("none of the given pull requests were merged after %s", a.cfg.Backport.MergedAfter)
	}

	plan, err := a.planner().Plan(ctx, prs)
	if err != nil {
		return err
	}
	if !GetQuiet() {
		fmt.Fprintln(a.out, format.FormatPlan(plan, a.style))
	}
	if backportDryRun {
		return nil
	}

	executor := a.executor()
	if err := executor.Run(ctx, plan); err != nil {
		if errors.Is(err, backport.ErrNothingToPick) {
			fmt.Fprintln(a.out, a.style.Warning(err.Error()))
			return nil
		}
		return err
	}

	fmt.Fprintln(a.out, format.FormatFollowUp(version.Program, a.target, plan, a.style))
	return nil
}
