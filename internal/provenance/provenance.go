// Package provenance decides whether a commit is already present in the
// target branch.
//
// Three detectors run in order and the first positive wins:
//
//  1. branch-containment: the commit is reachable from the target branch tip.
//     This is authoritative.
//  2. sha-reference: a non-merge commit on the target branch mentions the SHA,
//     as `git cherry-pick -x` does.
//  3. title-match: a non-merge commit on the target branch contains the
//     normalized title of the commit. This is a heuristic. Two unrelated
//     commits with the same title produce a false positive, which is accepted
//     because duplicate titles are rare in practice.
//
// Positive results are cached per SHA and never re-checked.
package provenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/serpro69/gh-backport/internal/cache"
	"github.com/serpro69/gh-backport/internal/logger"
)

// Detector names a provenance detector
type Detector string

const (
	// DetectorBranchContainment checks ancestry of the target branch tip
	DetectorBranchContainment Detector = "branch-containment"
	// DetectorSHAReference searches target history for the commit's SHA
	DetectorSHAReference Detector = "sha-reference"
	// DetectorTitleMatch searches target history for the normalized title
	DetectorTitleMatch Detector = "title-match"
	// DetectorCached means the result came from a previously confirmed cache entry
	DetectorCached Detector = "cached"
)

// Heuristic reports whether a positive from the detector may be a false positive
func (d Detector) Heuristic() bool {
	return d == DetectorTitleMatch
}

// Repository answers ancestry questions about local branches
type Repository interface {
	IsAncestor(ctx context.Context, sha, branch string) (bool, error)
}

// History searches the non-merge log of a branch for literal text
type History interface {
	LogGrep(ctx context.Context, branch, text string) ([]string, error)
}

// Store persists commit records
type Store interface {
	Commit(sha string) (cache.Commit, bool)
	PutCommit(c cache.Commit)
	Save() error
}

// Result describes a positive or negative provenance decision
type Result struct {
	Present  bool
	Detector Detector
	// Evidence holds the matching log lines for log-based detectors
	Evidence []string
}

// QueryError is returned when the version-control query behind a detector fails
type QueryError struct {
	SHA      string
	Detector Detector
	Guidance string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s check for commit %s failed: %v; %s", e.Detector, logger.ShortSHA(e.SHA), e.Err, e.Guidance)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Options configures a Checker
type Options struct {
	Target   string // branch the commits are backported to
	Main     string // development branch
	Upstream string // remote holding the canonical branches
}

// Checker decides whether commits are already present in the target branch
type Checker struct {
	repo    Repository
	history History
	store   Store
	opts    Options
}

// NewChecker creates a new Checker
func NewChecker(repo Repository, history History, store Store, opts Options) *Checker {
	return &Checker{repo: repo, history: history, store: store, opts: opts}
}

// Target returns the branch the checker inspects
func (c *Checker) Target() string {
	return c.opts.Target
}

// guidance tells the operator how to make the local branches current
func (c *Checker) guidance() string {
	return fmt.Sprintf("make sure %s is up to date: git checkout %s && git pull %s %s && git checkout -",
		c.opts.Target, c.opts.Main, c.opts.Upstream, c.opts.Main)
}

// IsAlreadyInTargetBranch reports whether commit is already present in the
// target branch. A positive result is persisted and short-circuits every
// later call for the same SHA.
func (c *Checker) IsAlreadyInTargetBranch(ctx context.Context, commit cache.Commit) (Result, error) {
	if cached, ok := c.store.Commit(commit.SHA); ok && cached.Backported.Confirmed() {
		return Result{Present: true, Detector: DetectorCached}, nil
	}
	if commit.Backported.Confirmed() {
		return Result{Present: true, Detector: DetectorCached}, nil
	}

	log := logger.WithCommit(commit.SHA)

	res, err := c.detect(ctx, commit)
	if err != nil {
		return Result{}, err
	}
	if !res.Present {
		log.Debug().Msg("Commit not found in target branch")
		return res, nil
	}

	log.Debug().
		Str("detector", string(res.Detector)).
		Bool("heuristic", res.Detector.Heuristic()).
		Strs("evidence", res.Evidence).
		Msg("Commit already in target branch")

	commit.Backported.Confirm()
	c.store.PutCommit(commit)
	if err := c.store.Save(); err != nil {
		return Result{}, fmt.Errorf("failed to persist provenance of %s: %w", logger.ShortSHA(commit.SHA), err)
	}
	return res, nil
}

// detect runs the detectors in order, stopping at the first positive
func (c *Checker) detect(ctx context.Context, commit cache.Commit) (Result, error) {
	contained, err := c.repo.IsAncestor(ctx, commit.SHA, c.opts.Target)
	if err != nil {
		return Result{}, c.queryError(commit.SHA, DetectorBranchContainment, err)
	}
	if contained {
		return Result{Present: true, Detector: DetectorBranchContainment}, nil
	}

	matches, err := c.history.LogGrep(ctx, c.opts.Target, commit.SHA)
	if err != nil {
		return Result{}, c.queryError(commit.SHA, DetectorSHAReference, err)
	}
	if len(matches) > 0 {
		return Result{Present: true, Detector: DetectorSHAReference, Evidence: matches}, nil
	}

	title := NormalizeTitle(commit.Message)
	if strings.TrimSpace(title) == "" {
		// an empty search string matches every commit
		return Result{}, nil
	}
	matches, err = c.history.LogGrep(ctx, c.opts.Target, title)
	if err != nil {
		return Result{}, c.queryError(commit.SHA, DetectorTitleMatch, err)
	}
	if len(matches) > 0 {
		return Result{Present: true, Detector: DetectorTitleMatch, Evidence: matches}, nil
	}
	return Result{}, nil
}

func (c *Checker) queryError(sha string, d Detector, err error) error {
	return &QueryError{SHA: sha, Detector: d, Guidance: c.guidance(), Err: err}
}

// NormalizeTitle returns the first line of message truncated at the first
// of the characters [ ] * ?. Nothing is trimmed, so "Fix [foo] thing"
// becomes "Fix ".
func NormalizeTitle(message string) string {
	title, _, _ := strings.Cut(message, "\n")
	if i := strings.IndexAny(title, "[]*?"); i >= 0 {
		title = title[:i]
	}
	return title
}
