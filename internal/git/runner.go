package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/serpro69/gh-backport/internal/logger"
)

// CommandError is returned when a git invocation exits unsuccessfully
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("git %s failed: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s failed: %v\n%s", strings.Join(e.Args, " "), e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError checks if an error is (or wraps) a CommandError
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

// Runner invokes the git CLI in a working directory. Commands that change
// repository state stream their output to Stdout/Stderr so the operator
// sees what git reports.
type Runner struct {
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner creates a Runner for dir, streaming to the process stdout/stderr
func NewRunner(dir string) *Runner {
	return &Runner{Dir: dir, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd
}

// output runs git and returns its stdout
func (r *Runner) output(ctx context.Context, args ...string) (string, error) {
	cmd := r.command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	logger.Trace().Strs("args", args).Str("dir", r.Dir).Msg("git")
	if err := cmd.Run(); err != nil {
		return "", r.fail(ctx, args, stderr.String(), err)
	}
	return stdout.String(), nil
}

// stream runs git with output teed to the runner's writers
func (r *Runner) stream(ctx context.Context, args ...string) error {
	cmd := r.command(ctx, args...)
	var combined bytes.Buffer
	cmd.Stdout = io.MultiWriter(&combined, writerOrDiscard(r.Stdout))
	cmd.Stderr = io.MultiWriter(&combined, writerOrDiscard(r.Stderr))

	logger.Debug().Strs("args", args).Str("dir", r.Dir).Msg("git")
	if err := cmd.Run(); err != nil {
		return r.fail(ctx, args, combined.String(), err)
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, args []string, out string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("git %s cancelled: %w", strings.Join(args, " "), ctxErr)
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	logger.Debug().Strs("args", args).Int("exit_code", code).Str("output", out).Msg("git failed")
	return &CommandError{Args: args, ExitCode: code, Output: out, Err: err}
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// SymbolicRef returns the short name of the branch HEAD points to
func (r *Runner) SymbolicRef(ctx context.Context) (string, error) {
	out, err := r.output(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsAncestor reports whether the commit identified by sha is reachable from
// branch, using git merge-base --is-ancestor
func (r *Runner) IsAncestor(ctx context.Context, sha, branch string) (bool, error) {
	_, err := r.output(ctx, "merge-base", "--is-ancestor", sha, branch)
	if err == nil {
		return true, nil
	}
	var ce *CommandError
	if errors.As(err, &ce) && ce.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// LogGrep searches the non-merge history of branch for commit messages
// containing text literally. It returns the matching --oneline entries.
func (r *Runner) LogGrep(ctx context.Context, branch, text string) ([]string, error) {
	out, err := r.output(ctx, "log", "--no-merges", "--fixed-strings", "--grep", text, "--oneline", branch, "--")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// RevEntry is one commit of a rev-list traversal together with its parents
type RevEntry struct {
	SHA     string
	Parents []string
}

// RevList lists the ancestry of shas in topological order, children first.
// Object names unknown to the repository are ignored rather than fatal.
func (r *Runner) RevList(ctx context.Context, shas []string) ([]RevEntry, error) {
	if len(shas) == 0 {
		return nil, nil
	}
	args := append([]string{"rev-list", "--topo-order", "--parents", "--ignore-missing"}, shas...)
	args = append(args, "--")
	out, err := r.output(ctx, args...)
	if err != nil {
		return nil, err
	}
	return ParseRevList(out), nil
}

// ParseRevList parses `git rev-list --parents` output
func ParseRevList(out string) []RevEntry {
	var entries []RevEntry
	for _, line := range lines(out) {
		fields := strings.Fields(line)
		entries = append(entries, RevEntry{SHA: fields[0], Parents: fields[1:]})
	}
	return entries
}

// IsClean reports whether the work tree has no changes, tracked or untracked
func (r *Runner) IsClean(ctx context.Context) (bool, error) {
	out, err := r.output(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// Pull fetches and merges branch from remote into the current branch
func (r *Runner) Pull(ctx context.Context, remote, branch string) error {
	return r.stream(ctx, "pull", remote, branch)
}

// CheckoutNewBranch creates branch at HEAD and switches to it
func (r *Runner) CheckoutNewBranch(ctx context.Context, branch string) error {
	return r.stream(ctx, "checkout", "-b", branch)
}

// CherryPick applies shas in order, recording their origin in each message
func (r *Runner) CherryPick(ctx context.Context, shas ...string) error {
	if len(shas) == 0 {
		return errors.New("no commits to cherry-pick")
	}
	return r.stream(ctx, append([]string{"cherry-pick", "-x"}, shas...)...)
}

// Push pushes branch to remote and sets it as upstream
func (r *Runner) Push(ctx context.Context, remote, branch string) error {
	if branch == "" {
		return errors.New("branch name cannot be empty")
	}
	return r.stream(ctx, "push", "--set-upstream", remote, branch)
}

func lines(out string) []string {
	var result []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			result = append(result, line)
		}
	}
	return result
}
