package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/serpro69/gh-backport/internal/config"
	"github.com/serpro69/gh-backport/internal/format"
	"github.com/serpro69/gh-backport/internal/logger"
	"github.com/serpro69/gh-backport/internal/validation"
)

var (
	// Global flags
	verbosity int
	quiet     bool
	jsonOut   bool
	noColor   bool
	labels    []string

	// ignoreFlags holds one --ignore-<rule> flag per validation rule
	ignoreFlags = map[validation.Rule]*bool{}

	// cfg holds the loaded configuration, cfgErr the reason it is missing
	cfg    *config.Config
	cfgErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gh-backport",
	Short: "Backport merged pull requests onto a stabilization branch",
	Long: `gh-backport is a GitHub CLI extension that backports merged pull requests
from the main development branch onto a stabilization branch.

It finds PRs labelled for backporting, works out which of their commits are
already in the target branch, cherry-picks the rest in ancestry order onto a
fresh branch and opens the backport pull request.

PR and commit metadata is cached per repository, target branch and label set,
so repeated runs need few API calls.

A failed check exits with status 3 and names the --ignore-<check> flag that
downgrades it to a warning.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(err, os.Stderr))
	}
}

// reportError prints err with operator guidance and returns the exit status
func reportError(err error, w io.Writer) int {
	if !quiet || validation.IsFailedError(err) {
		fmt.Fprintln(w, format.FormatErrorWithContext(err, format.NewOutputStyle(useColor())))
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case validation.IsFailedError(err):
		return validation.ExitCode
	default:
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Define persistent flags that will be global for the application
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	flags.BoolVar(&jsonOut, "json", false, "Output in JSON format")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.StringSliceVarP(&labels, "label", "l", nil, "Backport label(s); overrides search.labels")

	for _, rule := range validation.Rules() {
		ignoreFlags[rule] = flags.Bool(rule.Flag()[2:], false, ignoreUsage(rule))
	}
}

func ignoreUsage(rule validation.Rule) string {
	usage := fmt.Sprintf("Downgrade the %s check to a warning", rule)
	if rule == validation.RuleTracker {
		usage += " (the check only runs when tracker.urlPrefix is set)"
	}
	return usage
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, cfgErr = config.Load()
	if cfgErr == nil {
		cfgErr = cfg.Validate()
	}

	// Apply config values to flags if flags weren't explicitly set
	if cfgErr == nil {
		flags := rootCmd.PersistentFlags()
		if !flags.Changed("verbose") && cfg.Output.Verbose {
			verbosity = 1
		}
		if !flags.Changed("quiet") {
			quiet = cfg.Output.Quiet
		}
		if !flags.Changed("json") {
			jsonOut = cfg.Output.JSON
		}
	}

	logger.Init(logger.Config{
		Verbosity: verbosity,
		Quiet:     quiet,
		JSON:      jsonOut,
		NoColor:   !useColor(),
	})

	if cfgErr != nil {
		logger.Debug().Err(cfgErr).Msg("Configuration unavailable")
		return
	}
	if path := config.GetConfigFilePath(); path != "" {
		logger.Info().Str("path", path).Msg("Using config file")
	}
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonOut
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfg == nil && cfgErr == nil {
		initConfig()
	}
	if cfgErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", cfgErr)
	}
	return cfg, nil
}

func useColor() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return cfg == nil || cfg.Output.Color
}

// ignoredRules returns the rules disabled on the command line
func ignoredRules() []validation.Rule {
	var rules []validation.Rule
	for _, rule := range validation.Rules() {
		if p := ignoreFlags[rule]; p != nil && *p {
			rules = append(rules, rule)
		}
	}
	return rules
}
