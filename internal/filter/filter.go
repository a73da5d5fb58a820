package filter

import (
	"sort"
	"time"

	"github.com/serpro69/gh-backport/internal/cache"
)

// PRFilter contains criteria for filtering pull requests
type PRFilter struct {
	MergedAfter time.Time // Drop PRs merged at or before this instant
}

// FilterPullRequests applies filters to a list of pull requests, keeping
// their relative order. PRs without a merge time are kept so that the
// pr-not-merged rule can judge them.
func FilterPullRequests(prs []cache.PullRequest, filter *PRFilter) []cache.PullRequest {
	if filter == nil {
		return prs
	}

	var filtered []cache.PullRequest
	for _, pr := range prs {
		if !matchesFilter(pr, filter) {
			continue
		}
		filtered = append(filtered, pr)
	}

	return filtered
}

// matchesFilter checks if a PR matches all filter criteria
func matchesFilter(pr cache.PullRequest, filter *PRFilter) bool {
	if pr.MergedAt.IsZero() || filter.MergedAfter.IsZero() {
		return true
	}
	return pr.MergedAt.After(filter.MergedAfter)
}

// SortByMergedAt orders PRs by merge time, oldest first. The sort is
// stable, so PRs merged at the same instant keep their input order, and
// PRs without a merge time go last.
func SortByMergedAt(prs []cache.PullRequest) {
	sort.SliceStable(prs, func(i, j int) bool {
		a, b := prs[i].MergedAt, prs[j].MergedAt
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.Before(b)
		}
	})
}
