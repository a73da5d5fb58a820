package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v57/github"

	"github.com/serpro69/gh-backport/internal/logger"
)

// commitsPerPage is the page size for PR commit listings (GitHub's maximum)
const commitsPerPage = 100

// GetPullRequest fetches a pull request by number
func (c *Client) GetPullRequest(ctx context.Context, number int) (*gh.PullRequest, error) {
	path, err := c.repoPath("pulls/%d", number)
	if err != nil {
		return nil, err
	}

	logger.Debug().Int("pr", number).Msg("Fetching pull request")

	var pr gh.PullRequest
	if _, err := c.do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, fmt.Errorf("failed to fetch PR #%d: %w", number, err)
	}
	return &pr, nil
}

// ListPullRequestCommits fetches every commit of a pull request in PR order,
// following the Link header across pages.
func (c *Client) ListPullRequestCommits(ctx context.Context, number int) ([]*gh.RepositoryCommit, error) {
	path, err := c.repoPath("pulls/%d/commits?per_page=%d", number, commitsPerPage)
	if err != nil {
		return nil, err
	}

	var all []*gh.RepositoryCommit
	for page := 1; path != ""; page++ {
		var commits []*gh.RepositoryCommit
		headers, err := c.do(ctx, http.MethodGet, path, nil, &commits)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch commits of PR #%d: %w", number, err)
		}
		all = append(all, commits...)
		path = parseLinkHeader(headers.Get("Link"))["next"]

		logger.Trace().Int("pr", number).Int("page", page).Int("count", len(commits)).Msg("Fetched PR commits page")
	}

	logger.Debug().Int("pr", number).Int("commits", len(all)).Msg("Fetched PR commits")
	return all, nil
}

// CreatePullRequest opens a new pull request
func (c *Client) CreatePullRequest(ctx context.Context, req *gh.NewPullRequest) (*gh.PullRequest, error) {
	path, err := c.repoPath("pulls")
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("title", req.GetTitle()).
		Str("head", req.GetHead()).
		Str("base", req.GetBase()).
		Msg("Creating pull request")

	var pr gh.PullRequest
	if _, err := c.do(ctx, http.MethodPost, path, req, &pr); err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}
	return &pr, nil
}

// SetLabels replaces the labels of an issue or pull request
func (c *Client) SetLabels(ctx context.Context, number int, labels []string) ([]*gh.Label, error) {
	path, err := c.repoPath("issues/%d/labels", number)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []string{}
	}

	var result []*gh.Label
	payload := map[string][]string{"labels": labels}
	if _, err := c.do(ctx, http.MethodPut, path, payload, &result); err != nil {
		return nil, fmt.Errorf("failed to set labels on #%d: %w", number, err)
	}
	return result, nil
}

// SetMilestone assigns a milestone to the issue underlying a pull request
func (c *Client) SetMilestone(ctx context.Context, number, milestone int) error {
	path, err := c.repoPath("issues/%d", number)
	if err != nil {
		return err
	}

	req := &gh.IssueRequest{Milestone: gh.Int(milestone)}
	if _, err := c.do(ctx, http.MethodPatch, path, req, nil); err != nil {
		return fmt.Errorf("failed to set milestone on #%d: %w", number, err)
	}
	return nil
}

// GetMilestone fetches a milestone by its number
func (c *Client) GetMilestone(ctx context.Context, number int) (*gh.Milestone, error) {
	path, err := c.repoPath("milestones/%d", number)
	if err != nil {
		return nil, err
	}

	var milestone gh.Milestone
	if _, err := c.do(ctx, http.MethodGet, path, nil, &milestone); err != nil {
		return nil, fmt.Errorf("failed to fetch milestone %d: %w", number, err)
	}
	return &milestone, nil
}

// parseLinkHeader parses the Link header from GitHub API responses
// It returns a map of rel values to URLs
// Format: <https://api.github.com/...?page=2>; rel="next", <https://api.github.com/...?page=5>; rel="last"
func parseLinkHeader(linkHeader string) map[string]string {
	links := make(map[string]string)

	if linkHeader == "" {
		return links
	}

	for _, part := range strings.Split(linkHeader, ",") {
		sections := strings.Split(strings.TrimSpace(part), ";")
		if len(sections) != 2 {
			continue
		}

		url := strings.TrimSpace(sections[0])
		url = strings.TrimPrefix(url, "<")
		url = strings.TrimSuffix(url, ">")

		rel := strings.TrimSpace(sections[1])
		rel = strings.TrimPrefix(rel, "rel=\"")
		rel = strings.TrimSuffix(rel, "\"")

		links[rel] = url
	}

	return links
}
