// Package backport plans, executes and publishes a backport of merged pull
// requests onto a stabilization branch.
package backport

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/serpro69/gh-backport/internal/cache"
	"github.com/serpro69/gh-backport/internal/logger"
	"github.com/serpro69/gh-backport/internal/provenance"
	"github.com/serpro69/gh-backport/internal/validation"
)

// CommitSource returns the commits of a pull request in PR order
type CommitSource interface {
	Commits(ctx context.Context, pr cache.PullRequest) ([]cache.Commit, error)
}

// Provenance decides whether a commit is already in the target branch
type Provenance interface {
	IsAlreadyInTargetBranch(ctx context.Context, commit cache.Commit) (provenance.Result, error)
}

// Orderer computes a cherry-pick order
type Orderer interface {
	Order(ctx context.Context, shas []string) ([]string, error)
}

// BranchName returns the backport branch name for prs: the target, a
// "-backport-" infix, then the dash-joined PR numbers cut to limit bytes.
func BranchName(target string, prs []cache.PullRequest, limit int) string {
	numbers := make([]string, 0, len(prs))
	for _, pr := range prs {
		numbers = append(numbers, strconv.Itoa(pr.Number))
	}
	joined := strings.Join(numbers, "-")
	if limit > 0 && len(joined) > limit {
		joined = joined[:limit]
	}
	return target + "-backport-" + joined
}

// SkippedCommit is a commit left out of the plan because the target
// branch already has it
type SkippedCommit struct {
	SHA      string
	PR       int
	Detector provenance.Detector
	Evidence []string
}

// Plan is the full set of decisions for one backport run
type Plan struct {
	Target  string
	Branch  string
	PRs     []cache.PullRequest
	Commits []string // cherry-pick order
	Skipped []SkippedCommit
}

// PlannerOptions configures a Planner
type PlannerOptions struct {
	Target          string
	BranchNameLimit int
}

// Planner decides which commits to cherry-pick and in what order
type Planner struct {
	commits CommitSource
	checker Provenance
	orderer Orderer
	gate    *validation.Gate
	opts    PlannerOptions
}

// NewPlanner creates a new Planner
func NewPlanner(commits CommitSource, checker Provenance, orderer Orderer, gate *validation.Gate, opts PlannerOptions) *Planner {
	return &Planner{commits: commits, checker: checker, orderer: orderer, gate: gate, opts: opts}
}

// Plan gathers the commits of prs (already sorted by merge time), checks
// each against the target branch and orders the ones still missing.
// Commits already present fail the commit-not-merged rule; with the rule
// disabled they are skipped.
func (p *Planner) Plan(ctx context.Context, prs []cache.PullRequest) (*Plan, error) {
	if len(prs) == 0 {
		return nil, fmt.Errorf("no pull requests to backport")
	}

	plan := &Plan{
		Target: p.opts.Target,
		Branch: BranchName(p.opts.Target, prs, p.opts.BranchNameLimit),
		PRs:    prs,
	}

	var pending []string
	for _, pr := range prs {
		commits, err := p.commits.Commits(ctx, pr)
		if err != nil {
			return nil, err
		}
		for _, c := range commits {
			res, err := p.checker.IsAlreadyInTargetBranch(ctx, c)
			if err != nil {
				return nil, err
			}
			if err := p.gate.Enforce(validation.CheckNotInTarget(c.SHA, p.opts.Target, res.Present)); err != nil {
				return nil, err
			}
			if res.Present {
				log := logger.WithCommit(c.SHA)
				log.Info().Int("pr", pr.Number).Str("detector", string(res.Detector)).Msg("Skipping commit already in target branch")
				plan.Skipped = append(plan.Skipped, SkippedCommit{
					SHA: c.SHA, PR: pr.Number, Detector: res.Detector, Evidence: res.Evidence,
				})
				continue
			}
			pending = append(pending, c.SHA)
		}
	}

	if len(pending) == 0 {
		return plan, nil
	}

	ordered, err := p.orderer.Order(ctx, pending)
	if err != nil {
		return nil, err
	}
	plan.Commits = ordered
	return plan, nil
}
