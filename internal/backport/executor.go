package backport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/serpro69/gh-backport/internal/logger"
)

// ErrNothingToPick is returned when a plan has no commits left to apply
var ErrNothingToPick = errors.New("nothing to cherry-pick: every commit is already in the target branch")

// VCS is the version-control collaborator the executor drives
type VCS interface {
	IsClean(ctx context.Context) (bool, error)
	SymbolicRef(ctx context.Context) (string, error)
	Pull(ctx context.Context, remote, branch string) error
	CheckoutNewBranch(ctx context.Context, branch string) error
	CherryPick(ctx context.Context, shas ...string) error
	Push(ctx context.Context, remote, branch string) error
}

// CherryPickError is returned when applying the commits fails, typically
// on a conflict. Conflicts are left for the operator to resolve.
type CherryPickError struct {
	Branch   string
	Recovery string
	Err      error
}

func (e *CherryPickError) Error() string {
	return fmt.Sprintf("cherry-pick onto %s failed: %v", e.Branch, e.Err)
}

func (e *CherryPickError) Unwrap() error {
	return e.Err
}

// ExecutorOptions configures an Executor
type ExecutorOptions struct {
	Target   string
	Upstream string
	Fork     string
	Out      io.Writer
}

// Executor creates the backport branch and cherry-picks onto it
type Executor struct {
	vcs  VCS
	opts ExecutorOptions
}

// NewExecutor creates a new Executor
func NewExecutor(vcs VCS, opts ExecutorOptions) *Executor {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Executor{vcs: vcs, opts: opts}
}

// RecoveryCommand returns the command line that abandons a failed backport
// of branch and returns to the target branch
func (e *Executor) RecoveryCommand(branch string) string {
	return fmt.Sprintf("git cherry-pick --abort ; git reset --hard HEAD && git checkout %s && git branch -D %s",
		e.opts.Target, branch)
}

// CheckWorkTree verifies the work tree is clean and on the target branch
func (e *Executor) CheckWorkTree(ctx context.Context) error {
	clean, err := e.vcs.IsClean(ctx)
	if err != nil {
		return fmt.Errorf("failed to check work tree status: %w", err)
	}
	if !clean {
		return errors.New("work tree has uncommitted changes; commit or stash them first")
	}

	current, err := e.vcs.SymbolicRef(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine current branch: %w", err)
	}
	if current != e.opts.Target {
		return fmt.Errorf("current branch is %s, expected %s: git checkout %s", current, e.opts.Target, e.opts.Target)
	}
	return nil
}

// Run updates the target branch from upstream, creates plan.Branch from it
// and cherry-picks plan.Commits in order with provenance annotations.
func (e *Executor) Run(ctx context.Context, plan *Plan) error {
	if len(plan.Commits) == 0 {
		return ErrNothingToPick
	}
	if err := e.CheckWorkTree(ctx); err != nil {
		return err
	}

	recovery := e.RecoveryCommand(plan.Branch)
	fmt.Fprintln(e.opts.Out, recovery)

	log := logger.Get().With().Str("branch", plan.Branch).Logger()

	log.Info().Str("remote", e.opts.Upstream).Str("target", e.opts.Target).Msg("Updating target branch")
	if err := e.vcs.Pull(ctx, e.opts.Upstream, e.opts.Target); err != nil {
		return fmt.Errorf("failed to update %s from %s: %w", e.opts.Target, e.opts.Upstream, err)
	}

	log.Info().Msg("Creating backport branch")
	if err := e.vcs.CheckoutNewBranch(ctx, plan.Branch); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", plan.Branch, err)
	}

	log.Info().Int("commits", len(plan.Commits)).Msg("Cherry-picking")
	if err := e.vcs.CherryPick(ctx, plan.Commits...); err != nil {
		return &CherryPickError{Branch: plan.Branch, Recovery: recovery, Err: err}
	}
	return nil
}

// Push publishes branch to the operator's fork with upstream tracking
func (e *Executor) Push(ctx context.Context, branch string) error {
	logger.Info().Str("branch", branch).Str("remote", e.opts.Fork).Msg("Pushing backport branch")
	if err := e.vcs.Push(ctx, e.opts.Fork, branch); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", branch, e.opts.Fork, err)
	}
	return nil
}
