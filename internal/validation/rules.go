package validation

import (
	"fmt"
	"strings"
)

// Rule names an independently disable-able precondition
type Rule string

const (
	// RulePRNotMerged fails when a PR has not been merged
	RulePRNotMerged Rule = "pr-not-merged"
	// RuleTracker fails when a PR body or commit message links the issue tracker
	RuleTracker Rule = "tracker"
	// RuleCommitNotMerged fails when a commit slated for cherry-pick is already in the target branch
	RuleCommitNotMerged Rule = "commit-not-merged"
	// RuleOrderMismatch fails when the computed cherry-pick order loses or gains commits
	RuleOrderMismatch Rule = "order-commit-shas-non-equal"
)

// ExitCode is the process status for a fatal rule violation
const ExitCode = 3

// Rules returns every known rule in a stable order
func Rules() []Rule {
	return []Rule{RulePRNotMerged, RuleTracker, RuleCommitNotMerged, RuleOrderMismatch}
}

// ParseRule converts a rule name into a Rule
func ParseRule(name string) (Rule, error) {
	for _, r := range Rules() {
		if string(r) == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown check %q (known: %s)", name, strings.Join(ruleNames(), ", "))
}

// Flag returns the command-line flag that disables the rule
func (r Rule) Flag() string {
	return "--ignore-" + string(r)
}

func ruleNames() []string {
	names := make([]string, 0, len(Rules()))
	for _, r := range Rules() {
		names = append(names, string(r))
	}
	return names
}

// Violation is a failed rule together with a human-readable description
type Violation struct {
	Rule    Rule
	Message string
}

// Result is the outcome of evaluating a single rule. A nil Violation means Ok.
type Result struct {
	Violation *Violation
}

// Ok returns a passing result
func Ok() Result {
	return Result{}
}

// Fail returns a result carrying a violation of rule
func Fail(rule Rule, format string, args ...any) Result {
	return Result{Violation: &Violation{Rule: rule, Message: fmt.Sprintf(format, args...)}}
}

// OK reports whether the rule passed
func (r Result) OK() bool {
	return r.Violation == nil
}

// CheckMerged fails for a PR that has not been merged
func CheckMerged(url string, merged bool) Result {
	if merged {
		return Ok()
	}
	return Fail(RulePRNotMerged, "PR not merged: %s", url)
}

// CheckPRTracker fails when a PR body contains a tracker link.
// PRs without a body are not checked.
func CheckPRTracker(url, body, prefix string) Result {
	if body == "" || !referencesTracker(body, prefix) {
		return Ok()
	}
	return Fail(RuleTracker, "looks like pr contains a link to the tracker %s", url)
}

// CheckCommitTracker fails when a commit message contains a tracker link
func CheckCommitTracker(sha, message, prefix string) Result {
	if !referencesTracker(message, prefix) {
		return Ok()
	}
	return Fail(RuleTracker, "looks like commit %s contains a link to the tracker", sha)
}

// referencesTracker is a plain substring match. An empty prefix never matches.
func referencesTracker(text, prefix string) bool {
	return prefix != "" && strings.Contains(text, prefix)
}

// CheckNotInTarget fails for a commit that is already present in the target branch
func CheckNotInTarget(sha, target string, present bool) Result {
	if !present {
		return Ok()
	}
	return Fail(RuleCommitNotMerged, "Commit %s already in %s", sha, target)
}

// CheckOrder fails when the ordered commits differ from the requested set
func CheckOrder(dropped, added []string) Result {
	if len(dropped) == 0 && len(added) == 0 {
		return Ok()
	}
	return Fail(RuleOrderMismatch, "ordered commits differ from requested commits: dropped [%s] added [%s]",
		strings.Join(dropped, " "), strings.Join(added, " "))
}
