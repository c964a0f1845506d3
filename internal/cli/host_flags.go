package cli

import (
	"github.com/spf13/cobra"

	"fedhost/internal/config"
	"fedhost/internal/flags"
)

// hostOptions are flags shared by every command that builds a host.
type hostOptions struct {
	remotes       map[string]string
	shared        []string
	verboseErrors bool
	tokenEnv      string
}

func (o *hostOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringToStringVar(&o.remotes, flags.FlagRemote, nil, "Add or replace a remote as NAME=URL (repeatable; a base URL gets /assets/remoteEntry.js appended)")
	cmd.Flags().StringSliceVar(&o.shared, flags.FlagShared, nil, "Shared libraries offered to remotes (replaces the configured list; comma-separated accepted)")
	cmd.Flags().StringVar(&o.tokenEnv, flags.FlagTokenEnv, "", "Environment variable holding a bearer token for entry requests (github:// entries fall back to GITHUB_TOKEN)")
	cmd.Flags().BoolVar(&o.verboseErrors, flags.FlagVerboseErrors, false, "Show full error details, including entry URLs, in rendered error notices")
}

// apply overlays only the flags the user set.
func (o *hostOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd == nil {
		return
	}
	if cmd.Flags().Changed(flags.FlagRemote) {
		if cfg.Remotes == nil {
			cfg.Remotes = make(map[string]string, len(o.remotes))
		}
		for name, u := range o.remotes {
			cfg.Remotes[name] = u
		}
	}
	if cmd.Flags().Changed(flags.FlagShared) {
		cfg.Shared = append([]string(nil), o.shared...)
	}
	if cmd.Flags().Changed(flags.FlagTokenEnv) {
		cfg.Fetch.TokenEnv = o.tokenEnv
	}
	if cmd.Flags().Changed(flags.FlagVerboseErrors) {
		cfg.Server.VerboseErrors = o.verboseErrors
	}
}
