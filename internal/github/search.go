package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/serpro69/gh-backport/internal/logger"
)

// searchPerPage is the page size for issue searches (GitHub's maximum)
const searchPerPage = 100

// SearchQuery selects merged pull requests by label
type SearchQuery struct {
	Label        string
	Base         string
	CreatedAfter time.Time
	Limit        int
}

// String renders the query in GitHub search syntax for repo
func (q SearchQuery) String(repo *Repository) string {
	terms := []string{
		"repo:" + repo.String(),
		"is:pr",
		"is:merged",
		"label:" + quoteTerm(q.Label),
		"base:" + quoteTerm(q.Base),
	}
	if !q.CreatedAfter.IsZero() {
		terms = append(terms, "created:>"+q.CreatedAfter.Format("2006-01-02"))
	}
	return strings.Join(terms, " ")
}

func quoteTerm(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, ``) + `"`
	}
	return s
}

// SearchMergedPullRequests returns the numbers of up to q.Limit merged PRs
// matching q, most recently updated first.
func (c *Client) SearchMergedPullRequests(ctx context.Context, q SearchQuery) ([]int, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("no repository context set (configure repository.owner and repository.name)")
	}

	perPage := searchPerPage
	if q.Limit > 0 && q.Limit < perPage {
		perPage = q.Limit
	}

	query := q.String(c.repo)
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "updated")
	params.Set("order", "desc")
	params.Set("per_page", fmt.Sprint(perPage))
	path := "search/issues?" + params.Encode()

	logger.Debug().Str("query", query).Int("limit", q.Limit).Msg("Searching pull requests")

	var numbers []int
	for path != "" && (q.Limit <= 0 || len(numbers) < q.Limit) {
		var result gh.IssuesSearchResult
		headers, err := c.do(ctx, http.MethodGet, path, nil, &result)
		if err != nil {
			return nil, fmt.Errorf("failed to search pull requests with label %s: %w", q.Label, err)
		}
		for _, issue := range result.Issues {
			if q.Limit > 0 && len(numbers) >= q.Limit {
				break
			}
			numbers = append(numbers, issue.GetNumber())
		}
		if result.GetIncompleteResults() {
			logger.Warn().Str("query", query).Msg("GitHub returned incomplete search results")
		}
		path = parseLinkHeader(headers.Get("Link"))["next"]
	}

	return numbers, nil
}
