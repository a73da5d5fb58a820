package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/serpro69/gh-backport/internal/cache"
)

// fakeGitHub serves canned API responses keyed by "METHOD /path"
type fakeGitHub struct {
	mu       sync.Mutex
	routes   map[string]string
	requests []apiRequest
}

type apiRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{routes: map[string]string{}}
}

func (f *fakeGitHub) on(method, path, body string) {
	f.routes[method+" "+path] = body
}

func (f *fakeGitHub) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	f.requests = append(f.requests, apiRequest{Method: req.Method, Path: req.URL.Path, Body: body})

	status := http.StatusOK
	resp, ok := f.routes[req.Method+" "+req.URL.Path]
	if !ok {
		status, resp = http.StatusNotFound, `{"message": "Not Found"}`
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(resp)),
		Request:    req,
	}, nil
}

func (f *fakeGitHub) request(method, path string) (apiRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return apiRequest{}, false
}

// workspace is a throwaway checkout with an upstream remote, a config file
// in $HOME and a fake GitHub API
type workspace struct {
	t        *testing.T
	dir      string
	home     string
	cacheDir string
	github   *fakeGitHub
	config   map[string]any
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	home := t.TempDir()
	w := &workspace{
		t:        t,
		dir:      t.TempDir(),
		home:     home,
		cacheDir: filepath.Join(home, "cache"),
		github:   newFakeGitHub(),
	}

	t.Setenv("HOME", home)
	t.Setenv("GH_CONFIG_DIR", filepath.Join(home, "gh"))
	t.Setenv("GH_HOST", "github.com")
	t.Setenv("NO_COLOR", "1")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")

	tokenFile := filepath.Join(home, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("test-token\n"), 0600))

	w.config = map[string]any{
		"repository": map[string]any{"owner": "acme", "name": "widgets"},
		"branches":   map[string]any{"main": "main", "targets": []string{"release-1.x"}},
		"backport":   map[string]any{"forkOwner": "octocat", "carryLabels": []string{"bug"}},
		"search":     map[string]any{"labels": []string{"backport"}},
		"tracker":    map[string]any{"urlPrefix": "https://tracker.example.com/"},
		"cache":      map[string]any{"dir": w.cacheDir},
		"github":     map[string]any{"tokenFile": tokenFile},
	}
	w.writeConfig()

	w.git("init", "--quiet")
	w.git("symbolic-ref", "HEAD", "refs/heads/main")

	httpTransport = w.github
	t.Cleanup(func() { httpTransport = nil })
	t.Chdir(w.dir)
	return w
}

func (w *workspace) writeConfig() {
	w.t.Helper()
	data, err := json.Marshal(w.config)
	require.NoError(w.t, err)
	dir := filepath.Join(w.home, ".config", "gh-backport")
	require.NoError(w.t, os.MkdirAll(dir, 0755))
	require.NoError(w.t, os.WriteFile(filepath.Join(dir, ".backport.json"), data, 0644))
}

func (w *workspace) git(args ...string) string {
	w.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = w.dir
	out, err := cmd.CombinedOutput()
	require.NoError(w.t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

// commit writes content to file and commits it, returning the new SHA
func (w *workspace) commit(file, content, message string) string {
	w.t.Helper()
	require.NoError(w.t, os.WriteFile(filepath.Join(w.dir, file), []byte(content), 0644))
	w.git("add", file)
	w.git("commit", "--quiet", "-m", message)
	return w.git("rev-parse", "HEAD")
}

// addUpstream publishes every branch to a bare "upstream" remote
func (w *workspace) addUpstream() {
	w.t.Helper()
	bare := filepath.Join(w.home, "upstream.git")
	w.git("clone", "--quiet", "--bare", w.dir, bare)
	w.git("remote", "add", "upstream", bare)
	w.git("fetch", "--quiet", "upstream")
}

// store opens the metadata cache the commands use for target
func (w *workspace) store(target string) *cache.Store {
	w.t.Helper()
	store, err := cache.Open(cache.DefaultPath(w.cacheDir, "acme", "widgets", target, []string{"backport"}))
	require.NoError(w.t, err)
	return store
}

// run executes the root command with args and returns stdout, stderr and
// the command error
func (w *workspace) run(args ...string) (string, string, error) {
	w.t.Helper()
	resetFlags(rootCmd)
	cfg, cfgErr = nil, nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag of c and its subcommands to its default
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
