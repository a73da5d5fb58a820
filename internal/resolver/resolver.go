// Package resolver turns PR numbers into cached pull request and commit
// records, fetching from GitHub only on a cache miss.
package resolver

import (
	"context"
	"fmt"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/serpro69/gh-backport/internal/cache"
	"github.com/serpro69/gh-backport/internal/filter"
	"github.com/serpro69/gh-backport/internal/logger"
	"github.com/serpro69/gh-backport/internal/provenance"
	"github.com/serpro69/gh-backport/internal/validation"
)

// Source fetches pull request metadata from the hosting platform
type Source interface {
	GetPullRequest(ctx context.Context, number int) (*gh.PullRequest, error)
	ListPullRequestCommits(ctx context.Context, number int) ([]*gh.RepositoryCommit, error)
}

// Store is the metadata cache the resolver reads through
type Store interface {
	PullRequest(number int) (cache.PullRequest, bool)
	PutPullRequest(pr cache.PullRequest)
	Commit(sha string) (cache.Commit, bool)
	PutCommit(c cache.Commit)
	PRCommits(number int) ([]string, bool)
	PutPRCommits(number int, shas []string)
	Save() error
}

// Provenance decides whether a commit is already in the target branch
type Provenance interface {
	IsAlreadyInTargetBranch(ctx context.Context, commit cache.Commit) (provenance.Result, error)
}

// Options configures a Resolver
type Options struct {
	MergedAfter   time.Time
	TrackerPrefix string
}

// Resolver resolves PR numbers to records through the cache
type Resolver struct {
	source  Source
	store   Store
	checker Provenance
	gate    *validation.Gate
	opts    Options
}

// New creates a new Resolver
func New(source Source, store Store, checker Provenance, gate *validation.Gate, opts Options) *Resolver {
	return &Resolver{source: source, store: store, checker: checker, gate: gate, opts: opts}
}

// Resolve returns the record of PR number, from the cache when present
func (r *Resolver) Resolve(ctx context.Context, number int) (cache.PullRequest, error) {
	log := logger.WithPR(number)
	if pr, ok := r.store.PullRequest(number); ok {
		log.Trace().Msg("PR cache hit")
		return pr, nil
	}

	log.Debug().Msg("PR cache miss, fetching")
	remote, err := r.source.GetPullRequest(ctx, number)
	if err != nil {
		return cache.PullRequest{}, err
	}

	pr := pullRequestRecord(remote)
	r.store.PutPullRequest(pr)
	if err := r.store.Save(); err != nil {
		return cache.PullRequest{}, err
	}
	// re-read so a confirmed flag already on disk wins
	pr, _ = r.store.PullRequest(number)
	return pr, nil
}

// ResolveAll resolves every number, drops PRs merged before the cutoff,
// validates the rest and returns them oldest merge first. Duplicate
// numbers are resolved once.
func (r *Resolver) ResolveAll(ctx context.Context, numbers []int) ([]cache.PullRequest, error) {
	seen := make(map[int]bool, len(numbers))
	prs := make([]cache.PullRequest, 0, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			continue
		}
		seen[n] = true

		pr, err := r.Resolve(ctx, n)
		if err != nil {
			return nil, err
		}
		prs = append(prs, pr)
	}

	kept := filter.FilterPullRequests(prs, &filter.PRFilter{MergedAfter: r.opts.MergedAfter})
	if dropped := len(prs) - len(kept); dropped > 0 {
		logger.Info().
			Int("dropped", dropped).
			Time("merged_after", r.opts.MergedAfter).
			Msg("Ignoring PRs merged before the cutoff")
	}

	for _, pr := range kept {
		if err := r.Validate(pr); err != nil {
			return nil, err
		}
	}

	filter.SortByMergedAt(kept)
	return kept, nil
}

// Validate applies the PR-level rules to pr
func (r *Resolver) Validate(pr cache.PullRequest) error {
	if err := r.gate.Enforce(validation.CheckMerged(pr.URL, pr.Merged)); err != nil {
		return err
	}
	return r.gate.Enforce(validation.CheckPRTracker(pr.URL, pr.Body, r.opts.TrackerPrefix))
}

// Commits returns the commits of pr in PR order. The SHA list is cached per
// PR; on first fetch every commit is validated as it is materialized.
func (r *Resolver) Commits(ctx context.Context, pr cache.PullRequest) ([]cache.Commit, error) {
	log := logger.WithPR(pr.Number)
	if shas, ok := r.store.PRCommits(pr.Number); ok {
		if commits, complete := r.cachedCommits(shas); complete {
			return commits, nil
		}
		log.Warn().Msg("Cached commit list references unknown commits, refetching")
	}

	remote, err := r.source.ListPullRequestCommits(ctx, pr.Number)
	if err != nil {
		return nil, err
	}

	commits := make([]cache.Commit, 0, len(remote))
	shas := make([]string, 0, len(remote))
	for _, rc := range remote {
		c := cache.Commit{SHA: rc.GetSHA(), Message: rc.GetCommit().GetMessage()}
		r.store.PutCommit(c)
		stored, _ := r.store.Commit(c.SHA)
		commits = append(commits, stored)
		shas = append(shas, c.SHA)
	}
	r.store.PutPRCommits(pr.Number, shas)
	if err := r.store.Save(); err != nil {
		return nil, err
	}

	for _, c := range commits {
		if err := r.gate.Enforce(validation.CheckCommitTracker(c.SHA, c.Message, r.opts.TrackerPrefix)); err != nil {
			return nil, err
		}
	}

	log.Debug().Int("commits", len(commits)).Msg("Fetched PR commits")
	return commits, nil
}

func (r *Resolver) cachedCommits(shas []string) ([]cache.Commit, bool) {
	commits := make([]cache.Commit, 0, len(shas))
	for _, sha := range shas {
		c, ok := r.store.Commit(sha)
		if !ok {
			return nil, false
		}
		commits = append(commits, c)
	}
	return commits, true
}

// IsFullyBackported reports whether every commit of pr is already in the
// target branch. Unmerged PRs never are. A positive answer is persisted on
// the PR and never re-derived.
func (r *Resolver) IsFullyBackported(ctx context.Context, pr cache.PullRequest) (bool, error) {
	if pr.Backported.Confirmed() {
		return true, nil
	}
	if cached, ok := r.store.PullRequest(pr.Number); ok && cached.Backported.Confirmed() {
		return true, nil
	}
	if !pr.Merged {
		return false, nil
	}

	commits, err := r.Commits(ctx, pr)
	if err != nil {
		return false, err
	}
	for _, c := range commits {
		res, err := r.checker.IsAlreadyInTargetBranch(ctx, c)
		if err != nil {
			return false, fmt.Errorf("PR #%d: %w", pr.Number, err)
		}
		if !res.Present {
			return false, nil
		}
	}

	pr.Backported.Confirm()
	r.store.PutPullRequest(pr)
	if err := r.store.Save(); err != nil {
		return false, err
	}
	log := logger.WithPR(pr.Number)
	log.Info().Msg("PR fully backported")
	return true, nil
}

// pullRequestRecord converts an API pull request into a cache record
func pullRequestRecord(pr *gh.PullRequest) cache.PullRequest {
	return cache.PullRequest{
		Number:   pr.GetNumber(),
		Commits:  pr.GetCommits(),
		Title:    pr.GetTitle(),
		Body:     pr.GetBody(),
		Merged:   pr.GetMerged(),
		MergedAt: pr.GetMergedAt().Time,
		URL:      pr.GetHTMLURL(),
	}
}
