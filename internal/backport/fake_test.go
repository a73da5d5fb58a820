package backport

import (
	"context"
	"errors"
	"fmt"
	"slices"

	gh "github.com/google/go-github/v57/github"

	"github.com/serpro69/gh-backport/internal/cache"
	"github.com/serpro69/gh-backport/internal/provenance"
)

type fakeCommits map[int][]cache.Commit

func (f fakeCommits) Commits(_ context.Context, pr cache.PullRequest) ([]cache.Commit, error) {
	commits, ok := f[pr.Number]
	if !ok {
		return nil, fmt.Errorf("no commits for #%d", pr.Number)
	}
	return commits, nil
}

type fakeProvenance struct {
	present map[string]provenance.Detector
}

func (f *fakeProvenance) IsAlreadyInTargetBranch(_ context.Context, c cache.Commit) (provenance.Result, error) {
	if d, ok := f.present[c.SHA]; ok {
		return provenance.Result{Present: true, Detector: d}, nil
	}
	return provenance.Result{}, nil
}

// reverseOrderer returns the commits in reverse to show the plan keeps the
// orderer's decision rather than input order.
type reverseOrderer struct {
	got []string
}

func (o *reverseOrderer) Order(_ context.Context, shas []string) ([]string, error) {
	o.got = slices.Clone(shas)
	out := slices.Clone(shas)
	slices.Reverse(out)
	return out, nil
}

type fakeVCS struct {
	clean     bool
	branch    string
	pickErr   error
	pullErr   error
	calls     []string
	picked    []string
	pushedTo  string
	statusErr error
}

func (f *fakeVCS) IsClean(context.Context) (bool, error) {
	f.calls = append(f.calls, "status")
	return f.clean, f.statusErr
}

func (f *fakeVCS) SymbolicRef(context.Context) (string, error) {
	f.calls = append(f.calls, "symbolic-ref")
	if f.branch == "" {
		return "", errors.New("detached")
	}
	return f.branch, nil
}

func (f *fakeVCS) Pull(_ context.Context, remote, branch string) error {
	f.calls = append(f.calls, "pull "+remote+" "+branch)
	return f.pullErr
}

func (f *fakeVCS) CheckoutNewBranch(_ context.Context, branch string) error {
	f.calls = append(f.calls, "checkout -b "+branch)
	return nil
}

func (f *fakeVCS) CherryPick(_ context.Context, shas ...string) error {
	f.calls = append(f.calls, "cherry-pick")
	f.picked = shas
	return f.pickErr
}

func (f *fakeVCS) Push(_ context.Context, remote, branch string) error {
	f.calls = append(f.calls, "push "+remote+" "+branch)
	f.pushedTo = remote
	return nil
}

type fakePlatform struct {
	labels       map[int][]string
	created      *gh.NewPullRequest
	setLabels    []string
	setMilestone int
	milestones   map[int]string
	createErr    error
}

func (f *fakePlatform) GetPullRequest(_ context.Context, number int) (*gh.PullRequest, error) {
	pr := &gh.PullRequest{Number: gh.Int(number)}
	for _, name := range f.labels[number] {
		pr.Labels = append(pr.Labels, &gh.Label{Name: gh.String(name)})
	}
	return pr, nil
}

func (f *fakePlatform) CreatePullRequest(_ context.Context, req *gh.NewPullRequest) (*gh.PullRequest, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = req
	return &gh.PullRequest{
		Number:  gh.Int(500),
		HTMLURL: gh.String("https://github.com/acme/widgets/pull/500"),
	}, nil
}

func (f *fakePlatform) SetLabels(_ context.Context, _ int, labels []string) ([]*gh.Label, error) {
	f.setLabels = labels
	return nil, nil
}

func (f *fakePlatform) GetMilestone(_ context.Context, number int) (*gh.Milestone, error) {
	title, ok := f.milestones[number]
	if !ok {
		return nil, fmt.Errorf("milestone %d not found", number)
	}
	return &gh.Milestone{Number: gh.Int(number), Title: gh.String(title)}, nil
}

func (f *fakePlatform) SetMilestone(_ context.Context, _, milestone int) error {
	f.setMilestone = milestone
	return nil
}

func prs(numbers ...int) []cache.PullRequest {
	out := make([]cache.PullRequest, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, cache.PullRequest{Number: n, Merged: true})
	}
	return out
}
