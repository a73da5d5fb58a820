package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/backport"
	"github.com/serpro69/gh-backport/internal/cache"
	"github.com/serpro69/gh-backport/internal/config"
	"github.com/serpro69/gh-backport/internal/format"
	"github.com/serpro69/gh-backport/internal/git"
	"github.com/serpro69/gh-backport/internal/github"
	"github.com/serpro69/gh-backport/internal/logger"
	"github.com/serpro69/gh-backport/internal/order"
	"github.com/serpro69/gh-backport/internal/provenance"
	"github.com/serpro69/gh-backport/internal/resolver"
	"github.com/serpro69/gh-backport/internal/validation"
)

// commandTimeout bounds a whole command; cherry-picks of large sets and
// paginated searches stay well within it
const commandTimeout = 10 * time.Minute

// httpTransport overrides the GitHub client transport in tests
var httpTransport http.RoundTripper

// appOptions selects how a command's collaborators are built
type appOptions struct {
	// target is the backport branch; empty means the current branch
	target string
	// silent swallows validation failures instead of failing or warning
	silent bool
}

// app holds the collaborators shared by the backport commands
type app struct {
	cfg      *config.Config
	client   *github.Client
	repo     *git.Repository
	runner   *git.Runner
	target   string
	labels   []string
	store    *cache.Store
	gate     *validation.Gate
	checker  *provenance.Checker
	resolver *resolver.Resolver
	orderer  *order.Orderer
	style    *format.OutputStyle
	out      io.Writer
}

func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}

	root, err := git.FindRepositoryRoot("")
	if err != nil {
		return nil, err
	}
	repo, err := git.OpenRepository(root)
	if err != nil {
		return nil, err
	}
	runner := git.NewRunner(root)
	runner.Stdout = cmd.ErrOrStderr()
	runner.Stderr = cmd.ErrOrStderr()

	target := opts.target
	if target == "" {
		if target, err = repo.CurrentBranch(); err != nil {
			return nil, fmt.Errorf("failed to determine target branch: %w", err)
		}
	}
	if !cfg.IsAllowedTarget(target) {
		return nil, fmt.Errorf("branch %q is not a backport target (branches.main is %s, branches.targets is %v)",
			target, cfg.Branches.Main, cfg.Branches.Targets)
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	ghRepo := client.Repository()
	if ghRepo == nil {
		return nil, fmt.Errorf("could not determine the GitHub repository; set repository.owner and repository.name")
	}

	a := &app{
		cfg:    cfg,
		client: client,
		repo:   repo,
		runner: runner,
		target: target,
		labels: activeLabels(cfg),
		style:  format.NewOutputStyle(useColor()),
		out:    cmd.OutOrStdout(),
	}

	cacheDir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	a.store, err = cache.Open(cache.DefaultPath(cacheDir, ghRepo.Owner, ghRepo.Name, target, a.labels))
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", a.store.Path()).Str("target", target).Msg("Opened metadata cache")

	disabled, err := cfg.DisabledRules()
	if err != nil {
		return nil, err
	}
	a.gate = validation.NewGate(validation.GateOptions{
		Disabled: append(disabled, ignoredRules()...),
		Silent:   opts.silent,
		Out:      cmd.ErrOrStderr(),
	})

	if cfg.Tracker.URLPrefix == "" && !opts.silent && !a.gate.IsDisabled(validation.RuleTracker) {
		logger.Info().Msg("tracker check inactive: tracker.urlPrefix is not set")
	}

	mergedAfter, err := cfg.MergedAfter()
	if err != nil {
		return nil, err
	}

	a.checker = provenance.NewChecker(runner, runner, a.store, provenance.Options{
		Target:   target,
		Main:     cfg.Branches.Main,
		Upstream: cfg.Remotes.Upstream,
	})
	a.resolver = resolver.New(client, a.store, a.checker, a.gate, resolver.Options{
		MergedAfter:   mergedAfter,
		TrackerPrefix: cfg.Tracker.URLPrefix,
	})
	a.orderer = order.New(runner, a.gate)

	return a, nil
}

func newClient(cfg *config.Config) (*github.Client, error) {
	opts := []github.ClientOption{
		github.WithRepository(cfg.Repository.Owner, cfg.Repository.Name),
	}
	if cfg.GitHub.TokenFile != "" {
		opts = append(opts, github.WithTokenFile(cfg.GitHub.TokenFile))
	}
	if httpTransport != nil {
		opts = append(opts, github.WithTransport(httpTransport))
	}
	return github.NewClient(opts...)
}

// activeLabels returns the backport labels from --label or search.labels
func activeLabels(cfg *config.Config) []string {
	if len(labels) > 0 {
		return labels
	}
	return cfg.Search.Labels
}

func (a *app) planner() *backport.Planner {
	return backport.NewPlanner(a.resolver, a.checker, a.orderer, a.gate, backport.PlannerOptions{
		Target:          a.target,
		BranchNameLimit: a.cfg.Backport.BranchNameLimit,
	})
}

func (a *app) executor() *backport.Executor {
	return backport.NewExecutor(a.runner, backport.ExecutorOptions{
		Target:   a.target,
		Upstream: a.cfg.Remotes.Upstream,
		Fork:     a.cfg.Remotes.Fork,
		Out:      a.out,
	})
}

// parsePRNumbers converts positional arguments into PR numbers
func parsePRNumbers(args []string) ([]int, error) {
	numbers := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid pull request number %q", arg)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}
