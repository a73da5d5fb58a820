package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serpro69/gh-backport/internal/validation"
)

func TestLoad(t *testing.T) {
	t.Run("load with defaults when no config file exists", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "main", cfg.Branches.Main)
		assert.Equal(t, "upstream", cfg.Remotes.Upstream)
		assert.Equal(t, "origin", cfg.Remotes.Fork)
		assert.Equal(t, 60, cfg.Backport.BranchNameLimit)
		assert.Equal(t, "2020-03-15", cfg.Backport.MergedAfter)
		assert.Equal(t, "2020-10-19", cfg.Search.CreatedAfter)
		assert.Equal(t, 80, cfg.Search.Limit)
		assert.Empty(t, cfg.Tracker.URLPrefix)
		assert.True(t, cfg.Output.Color)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("load from JSON config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)

		configContent := `{
			"repository": {"owner": "acme", "name": "widgets"},
			"branches": {"main": "master", "targets": ["v1.2.x", "v1.3.x"]},
			"backport": {"milestone": 13, "carryLabels": ["bug"]},
			"search": {"labels": ["needs-backport"], "limit": 20},
			"tracker": {"urlPrefix": "https://tracker.example.com/"},
			"checks": {"ignore": ["tracker"]}
		}`
		require.NoError(t, os.WriteFile(".backport.json", []byte(configContent), 0644))

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "acme", cfg.Repository.Owner)
		assert.Equal(t, "widgets", cfg.Repository.Name)
		assert.Equal(t, "master", cfg.Branches.Main)
		assert.Equal(t, []string{"v1.2.x", "v1.3.x"}, cfg.Branches.Targets)
		assert.Equal(t, 13, cfg.Backport.Milestone)
		assert.Equal(t, []string{"bug"}, cfg.CarryLabels())
		assert.Equal(t, 20, cfg.Search.Limit)
		assert.Equal(t, "https://tracker.example.com/", cfg.Tracker.URLPrefix)
		assert.Equal(t, filepath.Join(tmpDir, ".backport.json"), resolve(t, GetConfigFilePath()))

		rules, err := cfg.DisabledRules()
		require.NoError(t, err)
		assert.Equal(t, []validation.Rule{validation.RuleTracker}, rules)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("GHBACKPORT_BRANCHES_MAIN", "trunk")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "trunk", cfg.Branches.Main)
	})

	t.Run("malformed config file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		require.NoError(t, os.WriteFile(".backport.json", []byte("{not json"), 0644))

		_, err := Load()
		assert.ErrorContains(t, err, "failed to read config file")
	})
}

// resolve follows symlinks so temp dirs compare equal on macOS
func resolve(t *testing.T, path string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	require.NoError(t, err)
	return filepath.Join(dir, filepath.Base(path))
}

func validConfig() Config {
	return Config{
		Branches: BranchesConfig{Main: "main"},
		Remotes:  RemotesConfig{Upstream: "upstream", Fork: "origin"},
		Backport: BackportConfig{MergedAfter: "2020-03-15", BranchNameLimit: 60},
		Search:   SearchConfig{CreatedAfter: "2020-10-19", Limit: 80},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "RFC3339 cutoff",
			mutate: func(c *Config) { c.Backport.MergedAfter = "2021-01-02T15:04:05Z" },
		},
		{
			name:   "known ignored rules",
			mutate: func(c *Config) { c.Checks.Ignore = []string{"pr-not-merged", "order-commit-shas-non-equal"} },
		},
		{
			name:    "empty main branch",
			mutate:  func(c *Config) { c.Branches.Main = "" },
			wantErr: true,
			errMsg:  "branches.main",
		},
		{
			name:    "empty fork remote",
			mutate:  func(c *Config) { c.Remotes.Fork = "" },
			wantErr: true,
			errMsg:  "remotes.fork",
		},
		{
			name:    "zero branch name limit",
			mutate:  func(c *Config) { c.Backport.BranchNameLimit = 0 },
			wantErr: true,
			errMsg:  "branchNameLimit",
		},
		{
			name:    "negative milestone",
			mutate:  func(c *Config) { c.Backport.Milestone = -1 },
			wantErr: true,
			errMsg:  "backport.milestone",
		},
		{
			name:    "zero search limit",
			mutate:  func(c *Config) { c.Search.Limit = 0 },
			wantErr: true,
			errMsg:  "search.limit",
		},
		{
			name:    "bad merged-after date",
			mutate:  func(c *Config) { c.Backport.MergedAfter = "15/03/2020" },
			wantErr: true,
			errMsg:  "backport.mergedAfter",
		},
		{
			name:    "bad created-after date",
			mutate:  func(c *Config) { c.Search.CreatedAfter = "yesterday" },
			wantErr: true,
			errMsg:  "search.createdAfter",
		},
		{
			name:    "unknown ignored rule",
			mutate:  func(c *Config) { c.Checks.Ignore = []string{"no-such-rule"} },
			wantErr: true,
			errMsg:  "checks.ignore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorContains(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsAllowedTarget(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.IsAllowedTarget("v1.0.x"))
	assert.False(t, cfg.IsAllowedTarget("main"))

	cfg.Branches.Targets = []string{"v1.0.x"}
	assert.True(t, cfg.IsAllowedTarget("v1.0.x"))
	assert.False(t, cfg.IsAllowedTarget("v2.0.x"))
}

func TestCarryLabels(t *testing.T) {
	cfg := validConfig()
	cfg.Search.Labels = []string{"needs-backport"}
	assert.Equal(t, []string{"needs-backport"}, cfg.CarryLabels())

	cfg.Backport.CarryLabels = []string{"bug", "security"}
	assert.Equal(t, []string{"bug", "security"}, cfg.CarryLabels())
}

func TestCacheDir(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Dir = "/tmp/custom"
	dir, err := cfg.CacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom", dir)

	t.Setenv("HOME", "/home/tester")
	cfg.Cache.Dir = ""
	dir, err = cfg.CacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".cache", "gh-backport"), dir)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2020-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2020-03-15T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = ParseDate("")
	assert.Error(t, err)
}
