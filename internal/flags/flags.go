package flags

// Package flags defines canonical CLI flag names shared across commands.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "...")
const (
	// Global
	FlagConfig    = "config"
	FlagEnvFile   = "env-file"
	FlagVerbose   = "verbose"
	FlagLogFormat = "log-format"

	// Host
	FlagAddr          = "addr"
	FlagRemote        = "remote"
	FlagShared        = "shared"
	FlagVerboseErrors = "verbose-errors"
	FlagTokenEnv      = "token-env"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagHTML                = "html"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagTimeout = "timeout"

	// Remote dev server
	FlagDir = "dir"
)
