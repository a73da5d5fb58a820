package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/backport"
	"github.com/serpro69/gh-backport/internal/format"
	"github.com/serpro69/gh-backport/internal/logger"
)

var (
	// createPRCmd flags
	createPRNoPush bool
	createPRYes    bool

	// confirmDraft asks the operator before the PR is opened; replaced in tests
	confirmDraft = confirmWithForm
)

// errAborted is returned when the operator declines to open the PR
var errAborted = errors.New("aborted: backport PR not created")

// createPRCmd represents the create-backport-pr command
var createPRCmd = &cobra.Command{
	Use:   "create-backport-pr <title> <base-branch> <pr-number>...",
	Short: "Push the backport branch and open the backport pull request",
	Long: `Push the backport branch created by 'backport' to the fork remote and open a
pull request against the base branch.

The title is prefixed with "<base-branch>: " and must not already mention the
base branch. The body lists the backported PRs. Labels from the carry list
found on any backported PR are applied, as is backport.milestone when set.

The PR numbers must be the same ones given to 'backport' so the branch name
matches.

Examples:
  gh backport create-backport-pr "Fix parser crash" release-1.x 1234 1240

  # The branch is already pushed; skip the confirmation prompt
  gh backport create-backport-pr "Fix parser crash" release-1.x 1234 --no-push --yes`,
	Args: cobra.MinimumNArgs(3),
	RunE: runCreatePR,
}

func init() {
	rootCmd.AddCommand(createPRCmd)

	createPRCmd.Flags().BoolVar(&createPRNoPush, "no-push", false, "Do not push the backport branch before opening the PR")
	createPRCmd.Flags().BoolVarP(&createPRYes, "yes", "y", false, "Open the PR without asking for confirmation")
}

func runCreatePR(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	title, base := args[0], args[1]
	numbers, err := parsePRNumbers(args[2:])
	if err != nil {
		return err
	}

	a, err := newApp(cmd, appOptions{target: base})
	if err != nil {
		return err
	}

	prs, err := a.resolver.ResolveAll(ctx, numbers)
	if err != nil {
		return err
	}

	forkOwner, err := resolveForkOwner(ctx, a)
	if err != nil {
		return err
	}

	publisher := backport.NewPublisher(a.client, backport.PublisherOptions{
		Target:          a.target,
		ForkOwner:       forkOwner,
		CarryLabels:     a.cfg.CarryLabels(),
		Milestone:       a.cfg.Backport.Milestone,
		BranchNameLimit: a.cfg.Backport.BranchNameLimit,
	})

	draft, err := publisher.Draft(ctx, title, prs)
	if err != nil {
		return err
	}

	if !createPRYes {
		ok, err := confirmDraft(draft)
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	if !createPRNoPush {
		if err := a.executor().Push(ctx, draft.Branch); err != nil {
			return err
		}
	}

	published, err := publisher.Publish(ctx, draft)
	if published != nil {
		log := logger.WithPR(published.Number)
		log.Info().Str("url", published.URL).Msg("Backport PR created")
	}
	if err != nil {
		if published != nil {
			return fmt.Errorf("backport PR %s created but not fully set up: %w", published.URL, err)
		}
		return err
	}

	if GetJSON() {
		data, err := json.MarshalIndent(published, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}
	fmt.Fprintln(a.out, format.FormatPublished(published, a.style))
	return nil
}

// resolveForkOwner returns backport.forkOwner or the authenticated login
func resolveForkOwner(ctx context.Context, a *app) (string, error) {
	if a.cfg.Backport.ForkOwner != "" {
		return a.cfg.Backport.ForkOwner, nil
	}
	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to determine fork owner (set backport.forkOwner): %w", err)
	}
	return user.GetLogin(), nil
}

func describeDraft(d *backport.Draft) string {
	lines := []string{
		"Head:   " + d.Head,
		"Base:   " + d.Base,
		"Body:   " + d.Body,
	}
	if len(d.Labels) > 0 {
		lines = append(lines, "Labels: "+strings.Join(d.Labels, ", "))
	}
	return strings.Join(lines, "\n")
}

func confirmWithForm(d *backport.Draft) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Open %q?", d.Title)).
				Description(describeDraft(d)).
				Affirmative("Create").
				Negative("Cancel").
				Value(&ok),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt failed (use --yes in non-interactive sessions): %w", err)
	}
	return ok, nil
}
