package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fedhost/internal/engine"
	"fedhost/internal/logging"
	"fedhost/internal/shared"
)

var remotesOpts struct {
	host  hostOptions
	quiet bool
}

var remotesCmd = &cobra.Command{
	Use:   "remotes",
	Short: "Inspect configured remotes",
	Long: `Inspect configured remotes.

Inspection fetches and evaluates each remote's entry script and reports the
components it exposes and how its shared requirements would be negotiated
against the host. Containers are not initialized.`,
}

var remotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Check every configured remote entry",
	Long: `Fetch every configured remote entry in parallel and report its status.

Exits with status 2 if any entry could not be fetched or evaluated.

Examples:
	fedhost remotes list
	fedhost remotes list -q
	fedhost remotes list --remote staging=https://cdn.example.com/staging
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newInspectEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		infos := e.InspectAll(cmd.Context())
		out := cmd.OutOrStdout()
		failed := 0
		for _, info := range infos {
			if info.Err != nil {
				failed++
			}
			if remotesOpts.quiet {
				fmt.Fprintln(out, info.Name)
				continue
			}
			fmt.Fprintf(out, "%-20s %s  %s\n", info.Name, statusLabel(info), info.URL)
		}
		if failed > 0 {
			return &ExitError{Code: engine.ExitRegionFailed}
		}
		return nil
	},
}

var remotesShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one remote's exposed components and shared requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newInspectEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		info := e.Inspect(cmd.Context(), args[0])
		printRemote(cmd.OutOrStdout(), info)
		if info.Err != nil {
			return &ExitError{Code: engine.ExitRegionFailed}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(remotesCmd)
	remotesCmd.AddCommand(remotesListCmd)
	remotesCmd.AddCommand(remotesShowCmd)

	remotesOpts.host.bind(remotesListCmd)
	remotesOpts.host.bind(remotesShowCmd)
	remotesListCmd.Flags().BoolVarP(&remotesOpts.quiet, "quiet", "q", false, "Only print remote names")
}

func newInspectEngine(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := loadConfig(cmd, &remotesOpts.host)
	if err != nil {
		return nil, err
	}
	return engine.New(cmd.Context(), cfg, engine.WithLogger(logging.Logger()))
}

func statusLabel(info engine.RemoteInfo) string {
	if info.Err != nil {
		return color.New(color.FgRed, color.Bold).Sprint("FAILED")
	}
	for _, s := range info.Shared {
		if s.Decision.Outcome == shared.OutcomeIncompatible {
			return color.New(color.FgYellow).Sprint("INCOMPATIBLE")
		}
	}
	return color.New(color.FgGreen).Sprint("OK")
}

func printRemote(w io.Writer, info engine.RemoteInfo) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "%s %s\n", bold("REMOTE:"), info.Name)
	fmt.Fprintln(w, strings.Repeat("-", 40))

	if info.URL != "" {
		fmt.Fprintf(w, "%s %s\n", bold("Entry:"), info.URL)
	}
	fmt.Fprintf(w, "%s %s\n", bold("Status:"), statusLabel(info))
	if info.Err != nil {
		fmt.Fprintf(w, "%s %v\n", bold("Error:"), info.Err)
		return
	}
	fmt.Fprintf(w, "%s %d bytes in %s\n", bold("Size:"), info.Bytes, info.Took.Round(time.Millisecond))

	fmt.Fprintf(w, "\n%s\n", bold("Exposes:"))
	if len(info.Exposes) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, name := range info.Exposes {
		fmt.Fprintf(w, "  %s\n", name)
	}

	fmt.Fprintf(w, "\n%s\n", bold("Shared:"))
	if len(info.Shared) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range info.Shared {
		line := fmt.Sprintf("  %-12s %-10s %s", s.Name, s.RequiredVersion, s.Decision.Outcome)
		if s.Decision.Reason != "" {
			line += " (" + s.Decision.Reason + ")"
		}
		fmt.Fprintln(w, line)
	}
}
