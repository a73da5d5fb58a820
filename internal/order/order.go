// Package order computes a cherry-pick order for commits drawn from one or
// more pull requests.
//
// The ancestry relation between the requested commits is derived from
// `git rev-list --topo-order --parents`. The result is a topological order
// of the requested commits, oldest ancestor first. Commits with no ancestry
// relation keep their input order, which callers arrange as PR merge time
// followed by the PR's own commit order.
package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/serpro69/gh-backport/internal/git"
	"github.com/serpro69/gh-backport/internal/logger"
	"github.com/serpro69/gh-backport/internal/validation"
)

// Graph lists the ancestry of a set of commits, children before parents
type Graph interface {
	RevList(ctx context.Context, shas []string) ([]git.RevEntry, error)
}

// Result is the outcome of ordering a commit set
type Result struct {
	// Ordered holds the requested SHAs, as given, in cherry-pick order
	Ordered []string
	// Dropped holds requested SHAs the traversal never reached
	Dropped []string
	// Added holds traversal commits that matched an already matched request
	Added []string
}

// Lossless reports whether Ordered is a permutation of the request
func (r Result) Lossless() bool {
	return len(r.Dropped) == 0 && len(r.Added) == 0
}

// Orderer orders commits and reports discrepancies through the gate
type Orderer struct {
	graph Graph
	gate  *validation.Gate
}

// New creates a new Orderer
func New(graph Graph, gate *validation.Gate) *Orderer {
	return &Orderer{graph: graph, gate: gate}
}

// Order returns shas in a safe cherry-pick order. A traversal that loses or
// gains commits is reported under the order-commit-shas-non-equal rule.
func (o *Orderer) Order(ctx context.Context, shas []string) ([]string, error) {
	requested := dedupe(shas)
	if len(requested) == 0 {
		return nil, nil
	}

	entries, err := o.graph.RevList(ctx, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to list commit ancestry: %w", err)
	}

	res := Compute(entries, requested)
	logger.Debug().
		Int("requested", len(requested)).
		Int("traversed", len(entries)).
		Int("ordered", len(res.Ordered)).
		Msg("Ordered commits")

	if err := o.gate.Enforce(validation.CheckOrder(res.Dropped, res.Added)); err != nil {
		return nil, err
	}
	return res.Ordered, nil
}

// Compute orders requested using the traversal entries. Requested SHAs may
// be abbreviated; they match any traversed SHA they prefix.
func Compute(entries []git.RevEntry, requested []string) Result {
	requested = dedupe(requested)
	n := len(requested)

	// map traversed commits to request indices
	match := make(map[string]int, n)
	claimed := make([]bool, n)
	var added []string
	for _, e := range entries {
		i := requestIndex(requested, e.SHA)
		if i < 0 {
			continue
		}
		if claimed[i] {
			added = append(added, e.SHA)
			continue
		}
		claimed[i] = true
		match[e.SHA] = i
	}

	// ancestors[sha] is the set of requested commits reachable from sha,
	// excluding sha itself. Entries are children first, so walk backwards.
	ancestors := make(map[string]bitset, len(entries))
	for k := len(entries) - 1; k >= 0; k-- {
		e := entries[k]
		set := newBitset(n)
		for _, p := range e.Parents {
			if pa, ok := ancestors[p]; ok {
				set.union(pa)
			}
			if i, ok := match[p]; ok {
				set.add(i)
			}
		}
		ancestors[e.SHA] = set
	}

	// requested-to-requested ancestry by index
	anc := make([]bitset, n)
	for sha, i := range match {
		anc[i] = ancestors[sha]
	}

	var dropped []string
	for i, ok := range claimed {
		if !ok {
			dropped = append(dropped, requested[i])
		}
	}

	return Result{
		Ordered: topological(requested, claimed, anc),
		Dropped: dropped,
		Added:   added,
	}
}

// topological runs Kahn's algorithm over the matched requests, always
// taking the ready commit with the lowest input index.
func topological(requested []string, present []bool, anc []bitset) []string {
	n := len(requested)
	pending := make([]int, n)
	for i := range n {
		if !present[i] {
			continue
		}
		for j := range n {
			if j != i && present[j] && anc[i].has(j) {
				pending[i]++
			}
		}
	}

	done := make([]bool, n)
	var ordered []string
	for {
		next := -1
		for i := range n {
			if present[i] && !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		ordered = append(ordered, requested[next])
		for i := range n {
			if present[i] && !done[i] && anc[i].has(next) {
				pending[i]--
			}
		}
	}
	return ordered
}

// requestIndex finds the request that sha satisfies, or -1
func requestIndex(requested []string, sha string) int {
	for i, r := range requested {
		if r == sha {
			return i
		}
	}
	for i, r := range requested {
		if r != "" && strings.HasPrefix(sha, r) {
			return i
		}
	}
	return -1
}

func dedupe(shas []string) []string {
	seen := make(map[string]bool, len(shas))
	out := make([]string, 0, len(shas))
	for _, s := range shas {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) add(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) has(i int) bool {
	if b == nil {
		return false
	}
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) union(o bitset) {
	for i := range b {
		b[i] |= o[i]
	}
}
