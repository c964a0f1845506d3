package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fedhost/internal/config"
	"fedhost/internal/flags"
	"fedhost/internal/logging"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

type globalOptions struct {
	configPath string
	envFile    string
	verbose    bool
	logFormat  string
}

var global globalOptions

var rootCmd = &cobra.Command{
	Use:   "fedhost",
	Short: "Compose pages from remote components loaded at runtime",
	Long: `fedhost is a host application that loads UI components published by
independently deployed remote applications, at runtime, and composes them into
one page.

Each remote publishes an entry script (by convention {base}/assets/remoteEntry.js)
that declares the components it exposes and the shared libraries it expects.
Components start loading when first referenced; until then their region shows a
fallback, and a failing remote only affects its own regions.

Examples:
	# Serve the demo host on :5000 (expects the demo remote on :5001)
	fedhost remote serve &
	fedhost serve

	# Compose the page once and stream lifecycle events
	fedhost render --no-console --emit ndjson

	# Check every configured remote entry
	fedhost remotes list

Configuration:
	Without --config the built-in demo layout is used. Files may be YAML (.yaml,
	.yml) or TOML (.toml). A .env file in the working directory is loaded if
	present. FEDHOST_ADDR, FEDHOST_VERBOSE_ERRORS and FEDHOST_REMOTE_<NAME>
	override the file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&global.configPath, flags.FlagConfig, "c", "", "Host configuration file (.yaml, .yml or .toml)")
	pf.StringVar(&global.envFile, flags.FlagEnvFile, "", "Load environment variables from this file (default: .env if present)")
	pf.BoolVarP(&global.verbose, flags.FlagVerbose, "v", false, "Enable debug logging, entry request logging and unscrubbed error messages")
	pf.StringVar(&global.logFormat, flags.FlagLogFormat, "console", "Log format: console|json")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(logging.Options{Verbose: global.verbose, Format: global.logFormat})
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	return nil
}

// loadConfig resolves the host configuration: .env, then the config file (or
// the demo defaults), then FEDHOST_* variables, then command flags.
func loadConfig(cmd *cobra.Command, host *hostOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(global.envFile); err != nil {
		return nil, err
	}

	cfg := config.New()
	if global.configPath != "" {
		loaded, err := config.Load(global.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.Runtime.Verbose = global.verbose
	if host != nil {
		host.apply(cmd, cfg)
	}
	return cfg, nil
}

// ExitError ends the process with Code. Err, if set, is printed first.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	err := rootCmd.Execute()
	_ = logging.Logger().Sync()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
