package cli

import (
	"time"

	"github.com/spf13/cobra"

	"fedhost/internal/config"
	"fedhost/internal/engine"
	"fedhost/internal/flags"
	"fedhost/internal/logging"
)

var renderOpts struct {
	host    hostOptions
	output  config.Output
	timeout time.Duration
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Compose the page once and report how each region settled",
	Long: `Mount the configured layout once, wait for every region to resolve or fail,
and report lifecycle events.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --html: write the composed page once every region has settled
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line with a "type" field
	(render.started, region.suspended, region.resolved, region.failed,
	render.finished). JSON mode is an array of the settled region events.

Exit codes:
	0 = every region resolved
	2 = at least one region failed
	3 = fatal error (nothing rendered)

Examples:
	fedhost render
	fedhost render --no-console --emit ndjson
	fedhost render --out render.json --html page.html
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, &renderOpts.host)
		if err != nil {
			return &ExitError{Code: engine.ExitFatal, Err: err}
		}
		cfg.Output = renderOpts.output
		cfg.Runtime.Timeout = renderOpts.timeout

		e, err := engine.New(cmd.Context(), cfg,
			engine.WithLogger(logging.Logger()),
			engine.WithStdout(cmd.OutOrStdout()))
		if err != nil {
			return &ExitError{Code: engine.ExitFatal, Err: err}
		}
		defer e.Close()

		if code := e.Render(cmd.Context()); code != engine.ExitOK {
			return &ExitError{Code: code}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderOpts.host.bind(renderCmd)

	f := renderCmd.Flags()
	f.StringVar(&renderOpts.output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson")
	f.StringSliceVar(&renderOpts.output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Only print region events with these statuses (pending, resolved, failed). Comma-separated.")
	f.StringVar(&renderOpts.output.Out, flags.FlagOut, "", "Write structured output to this path")
	f.StringVar(&renderOpts.output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	f.StringSliceVar(&renderOpts.output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	f.StringVar(&renderOpts.output.HTML, flags.FlagHTML, "", "Write the composed HTML page to this path")
	f.BoolVar(&renderOpts.output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out)")
	f.DurationVar(&renderOpts.timeout, flags.FlagTimeout, 30*time.Second, "Give up on regions that have not settled after this long")
}
