package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/serpro69/gh-backport/internal/validation"
)

// DateLayout is the date-only layout accepted for cutoff settings
const DateLayout = "2006-01-02"

// Config represents the application configuration
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Branches   BranchesConfig   `mapstructure:"branches"`
	Remotes    RemotesConfig    `mapstructure:"remotes"`
	Backport   BackportConfig   `mapstructure:"backport"`
	Search     SearchConfig     `mapstructure:"search"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
	Checks     ChecksConfig     `mapstructure:"checks"`
	Cache      CacheConfig      `mapstructure:"cache"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	Output     OutputConfig     `mapstructure:"output"`
}

// RepositoryConfig identifies the hosting project. Empty values are
// detected from the current git remote.
type RepositoryConfig struct {
	Owner string `mapstructure:"owner"`
	Name  string `mapstructure:"name"`
}

// BranchesConfig contains branch settings
type BranchesConfig struct {
	Main    string   `mapstructure:"main"`
	Targets []string `mapstructure:"targets"`
}

// RemotesConfig names the two remotes the tool talks to
type RemotesConfig struct {
	Upstream string `mapstructure:"upstream"`
	Fork     string `mapstructure:"fork"`
}

// BackportConfig contains backport branch and PR settings
type BackportConfig struct {
	ForkOwner       string   `mapstructure:"forkOwner"`
	Milestone       int      `mapstructure:"milestone"`
	CarryLabels     []string `mapstructure:"carryLabels"`
	MergedAfter     string   `mapstructure:"mergedAfter"`
	BranchNameLimit int      `mapstructure:"branchNameLimit"`
}

// SearchConfig contains settings for the search command
type SearchConfig struct {
	Labels       []string `mapstructure:"labels"`
	CreatedAfter string   `mapstructure:"createdAfter"`
	Limit        int      `mapstructure:"limit"`
}

// TrackerConfig describes the issue tracker links that backports must not carry
type TrackerConfig struct {
	URLPrefix string `mapstructure:"urlPrefix"`
}

// ChecksConfig lists validation rules disabled by default
type ChecksConfig struct {
	Ignore []string `mapstructure:"ignore"`
}

// CacheConfig contains metadata cache settings
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// GitHubConfig contains GitHub authentication settings
type GitHubConfig struct {
	TokenFile string `mapstructure:"tokenFile"`
}

// OutputConfig contains output preferences
type OutputConfig struct {
	Verbose bool `mapstructure:"verbose"`
	Quiet   bool `mapstructure:"quiet"`
	JSON    bool `mapstructure:"json"`
	Color   bool `mapstructure:"color"`
}

var (
	// v is the viper instance of the last Load
	v *viper.Viper
)

// Load loads the configuration from files and environment variables
func Load() (*Config, error) {
	v = viper.New()

	setDefaults(v)

	v.SetConfigName(".backport")
	v.SetConfigType("json")

	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gh-backport")
	v.AddConfigPath("/etc/gh-backport")

	// GHBACKPORT_BRANCHES_MAIN overrides branches.main, and so on
	v.SetEnvPrefix("GHBACKPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// GetConfigFilePath returns the path to the config file being used
func GetConfigFilePath() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("repository.owner", "")
	v.SetDefault("repository.name", "")

	v.SetDefault("branches.main", "main")
	v.SetDefault("branches.targets", []string{})

	v.SetDefault("remotes.upstream", "upstream")
	v.SetDefault("remotes.fork", "origin")

	v.SetDefault("backport.forkOwner", "")
	v.SetDefault("backport.milestone", 0)
	v.SetDefault("backport.carryLabels", []string{})
	v.SetDefault("backport.mergedAfter", "2020-03-15")
	v.SetDefault("backport.branchNameLimit", 60)

	v.SetDefault("search.labels", []string{})
	v.SetDefault("search.createdAfter", "2020-10-19")
	v.SetDefault("search.limit", 80)

	v.SetDefault("tracker.urlPrefix", "")
	v.SetDefault("checks.ignore", []string{})
	v.SetDefault("cache.dir", "")
	v.SetDefault("github.tokenFile", "")

	v.SetDefault("output.verbose", false)
	v.SetDefault("output.quiet", false)
	v.SetDefault("output.json", false)
	v.SetDefault("output.color", true)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Branches.Main == "" {
		return fmt.Errorf("branches.main must not be empty")
	}
	if c.Remotes.Upstream == "" || c.Remotes.Fork == "" {
		return fmt.Errorf("remotes.upstream and remotes.fork must not be empty")
	}
	if c.Backport.BranchNameLimit <= 0 {
		return fmt.Errorf("invalid backport.branchNameLimit: %d (must be positive)", c.Backport.BranchNameLimit)
	}
	if c.Backport.Milestone < 0 {
		return fmt.Errorf("invalid backport.milestone: %d", c.Backport.Milestone)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("invalid search.limit: %d (must be positive)", c.Search.Limit)
	}
	if _, err := c.MergedAfter(); err != nil {
		return err
	}
	if _, err := c.SearchCreatedAfter(); err != nil {
		return err
	}
	if _, err := c.DisabledRules(); err != nil {
		return err
	}
	return nil
}

// MergedAfter returns the cutoff below which merged PRs are ignored
func (c *Config) MergedAfter() (time.Time, error) {
	t, err := ParseDate(c.Backport.MergedAfter)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid backport.mergedAfter: %w", err)
	}
	return t, nil
}

// SearchCreatedAfter returns the creation cutoff used by search queries
func (c *Config) SearchCreatedAfter() (time.Time, error) {
	t, err := ParseDate(c.Search.CreatedAfter)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid search.createdAfter: %w", err)
	}
	return t, nil
}

// DisabledRules returns the rules listed under checks.ignore
func (c *Config) DisabledRules() ([]validation.Rule, error) {
	rules := make([]validation.Rule, 0, len(c.Checks.Ignore))
	for _, name := range c.Checks.Ignore {
		rule, err := validation.ParseRule(name)
		if err != nil {
			return nil, fmt.Errorf("invalid checks.ignore entry: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// IsAllowedTarget reports whether branch may be used as a backport target
func (c *Config) IsAllowedTarget(branch string) bool {
	if len(c.Branches.Targets) == 0 {
		return branch != c.Branches.Main
	}
	for _, t := range c.Branches.Targets {
		if t == branch {
			return true
		}
	}
	return false
}

// CarryLabels returns the allow-listed labels copied onto backport PRs.
// Falls back to the search labels when none are configured.
func (c *Config) CarryLabels() []string {
	if len(c.Backport.CarryLabels) > 0 {
		return c.Backport.CarryLabels
	}
	return c.Search.Labels
}

// CacheDir returns the directory holding metadata cache files
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cache", "gh-backport"), nil
}

// ParseDate accepts either a YYYY-MM-DD date or an RFC3339 timestamp
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC3339", s)
	}
	return t, nil
}
