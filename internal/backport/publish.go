package backport

import (
	"context"
	"fmt"
	"slices"
	"strings"

	gh "github.com/google/go-github/v57/github"

	"github.com/serpro69/gh-backport/internal/cache"
	"github.com/serpro69/gh-backport/internal/logger"
)

// Platform is the code host the publisher opens pull requests on
type Platform interface {
	GetPullRequest(ctx context.Context, number int) (*gh.PullRequest, error)
	CreatePullRequest(ctx context.Context, req *gh.NewPullRequest) (*gh.PullRequest, error)
	SetLabels(ctx context.Context, number int, labels []string) ([]*gh.Label, error)
	GetMilestone(ctx context.Context, number int) (*gh.Milestone, error)
	SetMilestone(ctx context.Context, number, milestone int) error
}

// PublisherOptions configures a Publisher
type PublisherOptions struct {
	Target          string
	ForkOwner       string
	CarryLabels     []string
	Milestone       int
	BranchNameLimit int
}

// Draft is the pull request a Publisher is about to open
type Draft struct {
	Title  string
	Body   string
	Head   string
	Base   string
	Branch string
	Labels []string
}

// Published describes an opened backport pull request
type Published struct {
	Number    int      `json:"number"`
	URL       string   `json:"url"`
	Labels    []string `json:"labels,omitempty"`
	Milestone string   `json:"milestone,omitempty"`
}

// Publisher opens the backport pull request against the target branch
type Publisher struct {
	platform Platform
	opts     PublisherOptions
}

// NewPublisher creates a new Publisher
func NewPublisher(platform Platform, opts PublisherOptions) *Publisher {
	return &Publisher{platform: platform, opts: opts}
}

// Draft builds the pull request for title and prs. Labels are those of the
// carry allow-list found on any of the backported pull requests.
func (p *Publisher) Draft(ctx context.Context, title string, prs []cache.PullRequest) (*Draft, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}
	if strings.Contains(title, p.opts.Target) {
		return nil, fmt.Errorf("title %q already mentions %s; it is prefixed automatically", title, p.opts.Target)
	}
	if len(prs) == 0 {
		return nil, fmt.Errorf("no pull requests to publish")
	}
	if p.opts.ForkOwner == "" {
		return nil, fmt.Errorf("fork owner is not set")
	}

	refs := make([]string, 0, len(prs))
	for _, pr := range prs {
		refs = append(refs, fmt.Sprintf("#%d", pr.Number))
	}

	labels, err := p.carriedLabels(ctx, prs)
	if err != nil {
		return nil, err
	}

	branch := BranchName(p.opts.Target, prs, p.opts.BranchNameLimit)
	return &Draft{
		Title:  p.opts.Target + ": " + title,
		Body:   "Backport of " + strings.Join(refs, ", "),
		Head:   p.opts.ForkOwner + ":" + branch,
		Base:   p.opts.Target,
		Branch: branch,
		Labels: labels,
	}, nil
}

func (p *Publisher) carriedLabels(ctx context.Context, prs []cache.PullRequest) ([]string, error) {
	if len(p.opts.CarryLabels) == 0 {
		return nil, nil
	}

	var carried []string
	for _, pr := range prs {
		remote, err := p.platform.GetPullRequest(ctx, pr.Number)
		if err != nil {
			return nil, err
		}
		for _, l := range remote.Labels {
			name := l.GetName()
			if slices.Contains(p.opts.CarryLabels, name) && !slices.Contains(carried, name) {
				carried = append(carried, name)
			}
		}
	}
	slices.Sort(carried)
	return carried, nil
}

// Publish opens d, applies its labels and the configured milestone and
// returns the new pull request.
func (p *Publisher) Publish(ctx context.Context, d *Draft) (*Published, error) {
	pr, err := p.platform.CreatePullRequest(ctx, &gh.NewPullRequest{
		Title: gh.String(d.Title),
		Head:  gh.String(d.Head),
		Base:  gh.String(d.Base),
		Body:  gh.String(d.Body),
	})
	if err != nil {
		return nil, err
	}

	out := &Published{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}
	log := logger.WithPR(out.Number)

	if len(d.Labels) > 0 {
		if _, err := p.platform.SetLabels(ctx, out.Number, d.Labels); err != nil {
			return out, err
		}
		out.Labels = d.Labels
		log.Debug().Strs("labels", d.Labels).Msg("Labels applied")
	}

	if p.opts.Milestone > 0 {
		milestone, err := p.platform.GetMilestone(ctx, p.opts.Milestone)
		if err != nil {
			return out, err
		}
		if err := p.platform.SetMilestone(ctx, out.Number, milestone.GetNumber()); err != nil {
			return out, err
		}
		out.Milestone = milestone.GetTitle()
		log.Debug().Str("milestone", out.Milestone).Msg("Milestone applied")
	}

	return out, nil
}
