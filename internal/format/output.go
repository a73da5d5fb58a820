package format

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/serpro69/gh-backport/internal/backport"
	"github.com/serpro69/gh-backport/internal/git"
	"github.com/serpro69/gh-backport/internal/github"
	"github.com/serpro69/gh-backport/internal/logger"
	"github.com/serpro69/gh-backport/internal/provenance"
	"github.com/serpro69/gh-backport/internal/validation"
)

// OutputStyle defines the styling configuration for terminal output
type OutputStyle struct {
	useColor       bool
	errorStyle     termenv.Style
	warningStyle   termenv.Style
	successStyle   termenv.Style
	infoStyle      termenv.Style
	highlightStyle termenv.Style
	dimStyle       termenv.Style
}

// NewOutputStyle creates a new OutputStyle with appropriate color profile
func NewOutputStyle(useColor bool) *OutputStyle {
	profile := termenv.ColorProfile()
	if !useColor {
		profile = termenv.Ascii
	}

	return &OutputStyle{
		useColor:       useColor,
		errorStyle:     termenv.Style{}.Foreground(profile.Color("1")),
		warningStyle:   termenv.Style{}.Foreground(profile.Color("3")),
		successStyle:   termenv.Style{}.Foreground(profile.Color("2")),
		infoStyle:      termenv.Style{}.Foreground(profile.Color("4")),
		highlightStyle: termenv.Style{}.Foreground(profile.Color("6")),
		dimStyle:       termenv.Style{}.Faint(),
	}
}

func (s *OutputStyle) styled(st termenv.Style, icon, message string) string {
	if !s.useColor {
		return icon + " " + message
	}
	return st.Styled(icon) + " " + st.Styled(message)
}

// Error formats an error message with styling
func (s *OutputStyle) Error(message string) string {
	return s.styled(s.errorStyle, "✗", message)
}

// Warning formats a warning message with styling
func (s *OutputStyle) Warning(message string) string {
	return s.styled(s.warningStyle, "⚠", message)
}

// Success formats a success message with styling
func (s *OutputStyle) Success(message string) string {
	return s.styled(s.successStyle, "✓", message)
}

// Info formats an info message with styling
func (s *OutputStyle) Info(message string) string {
	return s.styled(s.infoStyle, "ℹ", message)
}

// Highlight highlights text
func (s *OutputStyle) Highlight(text string) string {
	if !s.useColor {
		return text
	}
	return s.highlightStyle.Styled(text)
}

// Dim dims text
func (s *OutputStyle) Dim(text string) string {
	if !s.useColor {
		return text
	}
	return s.dimStyle.Styled(text)
}

// FormatPlan describes what a backport run is about to cherry-pick
func FormatPlan(plan *backport.Plan, style *OutputStyle) string {
	var lines []string

	lines = append(lines, style.Info(fmt.Sprintf("Backporting %d commit(s) from %d PR(s) onto %s",
		len(plan.Commits), len(plan.PRs), style.Highlight(plan.Target))))
	lines = append(lines, fmt.Sprintf("  Branch: %s", style.Highlight(plan.Branch)))

	if len(plan.Commits) > 0 {
		lines = append(lines, "")
		lines = append(lines, "  Cherry-pick order:")
		for i, sha := range plan.Commits {
			lines = append(lines, fmt.Sprintf("    %d. %s", i+1, logger.ShortSHA(sha)))
		}
	}

	if len(plan.Skipped) > 0 {
		lines = append(lines, "")
		lines = append(lines, style.Warning(fmt.Sprintf("%d commit(s) already in %s, skipped:", len(plan.Skipped), plan.Target)))
		for _, s := range plan.Skipped {
			line := fmt.Sprintf("    • %s from #%d %s", logger.ShortSHA(s.SHA), s.PR, style.Dim("("+string(s.Detector)+")"))
			if s.Detector.Heuristic() {
				line += " " + style.Dim("title match, verify manually")
			}
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// FormatFollowUp returns the create-backport-pr invocation to run after a
// successful backport
func FormatFollowUp(program, target string, plan *backport.Plan, style *OutputStyle) string {
	ids := make([]string, 0, len(plan.PRs))
	for _, pr := range plan.PRs {
		ids = append(ids, fmt.Sprintf("%d", pr.Number))
	}
	command := fmt.Sprintf("%s create-backport-pr <title> %s %s", program, target, strings.Join(ids, " "))
	return style.Success("Backport branch "+style.Highlight(plan.Branch)+" is ready") + "\n" +
		"Maybe you now want to run:\n  " + command
}

// FormatPublished describes the opened backport pull request
func FormatPublished(p *backport.Published, style *OutputStyle) string {
	lines := []string{style.Success(fmt.Sprintf("Created backport PR #%d", p.Number))}
	if len(p.Labels) > 0 {
		lines = append(lines, fmt.Sprintf("  Labels:    %s", strings.Join(p.Labels, ", ")))
	}
	if p.Milestone != "" {
		lines = append(lines, fmt.Sprintf("  Milestone: %s", p.Milestone))
	}
	lines = append(lines, p.URL)
	return strings.Join(lines, "\n")
}

// FormatErrorWithContext formats an error with the operator guidance that
// belongs to its type
func FormatErrorWithContext(err error, style *OutputStyle) string {
	var lines []string

	var (
		failed   *validation.FailedError
		pickErr  *backport.CherryPickError
		queryErr *provenance.QueryError
		authErr  *github.AuthenticationError
		rateErr  *github.RateLimitError
		notFound *github.NotFoundError
		gitErr   *git.CommandError
	)

	switch {
	case errors.As(err, &failed):
		lines = append(lines, style.Error("check failed: "+failed.Message))
		lines = append(lines, "")
		lines = append(lines, style.Dim(fmt.Sprintf("Tip: rerun with %s to downgrade this check to a warning", failed.Rule.Flag())))

	case errors.As(err, &pickErr):
		lines = append(lines, style.Error(fmt.Sprintf("Cherry-pick onto %s failed", pickErr.Branch)))
		if pickErr.Err != nil {
			lines = append(lines, "")
			lines = append(lines, "  "+strings.ReplaceAll(strings.TrimSpace(pickErr.Err.Error()), "\n", "\n  "))
		}
		lines = append(lines, "")
		lines = append(lines, "  Resolve the conflict and run: git cherry-pick --continue")
		lines = append(lines, "  Or start over with:")
		lines = append(lines, "    "+style.Highlight(pickErr.Recovery))

	case errors.As(err, &queryErr):
		lines = append(lines, style.Error(fmt.Sprintf("Could not check whether %s is already backported",
			logger.ShortSHA(queryErr.SHA))))
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("  Detector: %s", queryErr.Detector))
		if queryErr.Err != nil {
			lines = append(lines, fmt.Sprintf("  Cause:    %v", queryErr.Err))
		}
		lines = append(lines, "")
		lines = append(lines, style.Dim("Tip: "+queryErr.Guidance))

	case errors.As(err, &authErr):
		lines = append(lines, style.Error(authErr.Error()))
		lines = append(lines, "")
		lines = append(lines, style.Dim("Tip: authenticate with `gh auth login` or set github.tokenFile"))

	case errors.As(err, &rateErr):
		lines = append(lines, style.Error("GitHub API rate limit exhausted"))
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("  Limit:  %d", rateErr.Limit))
		if rateErr.ResetAt > 0 {
			lines = append(lines, fmt.Sprintf("  Resets: %s", style.Highlight(time.Unix(rateErr.ResetAt, 0).Format(time.RFC3339))))
		}
		lines = append(lines, "")
		lines = append(lines, style.Dim("Tip: cached PRs need no API calls; retry once the limit resets"))

	case errors.As(err, &notFound):
		lines = append(lines, style.Error(err.Error()))
		lines = append(lines, "")
		lines = append(lines, style.Dim("Tip: check the PR number and the configured repository"))

	case errors.As(err, &gitErr):
		lines = append(lines, style.Error(fmt.Sprintf("git %s failed", strings.Join(gitErr.Args, " "))))
		if out := strings.TrimSpace(gitErr.Output); out != "" {
			lines = append(lines, "")
			lines = append(lines, "  "+strings.ReplaceAll(out, "\n", "\n  "))
		}

	default:
		lines = append(lines, style.Error(err.Error()))
	}

	return strings.Join(lines, "\n")
}
