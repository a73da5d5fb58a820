package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testRepo is a throwaway repository driven through the git CLI
type testRepo struct {
	t      *testing.T
	dir    string
	runner *Runner
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	r := &testRepo{t: t, dir: dir, runner: testRunner(dir)}
	r.git("init", "--quiet")
	r.git("symbolic-ref", "HEAD", "refs/heads/main")
	return r
}

func testRunner(dir string) *Runner {
	return &Runner{
		Dir: dir,
		Env: []string{
			"GIT_AUTHOR_NAME=Test User",
			"GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test User",
			"GIT_COMMITTER_EMAIL=test@example.com",
			"GIT_CONFIG_NOSYSTEM=1",
			"HOME=" + dir,
		},
	}
}

func (r *testRepo) git(args ...string) string {
	r.t.Helper()
	out, err := r.runner.output(context.Background(), args...)
	require.NoError(r.t, err, "git %s", strings.Join(args, " "))
	return strings.TrimSpace(out)
}

// commit writes content to file and commits it, returning the new SHA
func (r *testRepo) commit(file, content, message string) string {
	r.t.Helper()
	require.NoError(r.t, os.WriteFile(filepath.Join(r.dir, file), []byte(content), 0644))
	r.git("add", file)
	r.git("commit", "--quiet", "-m", message)
	return r.git("rev-parse", "HEAD")
}
