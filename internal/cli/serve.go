package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fedhost/internal/engine"
	"fedhost/internal/flags"
	"fedhost/internal/logging"
	"fedhost/internal/server"
)

var serveOpts struct {
	host hostOptions
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the composed page over HTTP",
	Long: `Serve the host page. Every request mounts the configured layout: regions
whose components are already loaded render immediately, the rest are streamed
into place as they resolve.

Routes:
	GET  /                                composed page (streamed)
	GET  /regions/{id}                    one region's settled HTML
	POST /regions/{id}/events/{event}     fire an event on a resolved region
	GET  /metrics                         Prometheus metrics
	GET  /healthz                         remotes, shared libraries and load counts

Examples:
	fedhost serve
	fedhost serve --addr :8080 --remote remote_app=http://localhost:5001
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, &serveOpts.host)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed(flags.FlagAddr) {
			cfg.Server.Addr = serveOpts.addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := logging.Logger()
		e, err := engine.New(ctx, cfg, engine.WithLogger(logger))
		if err != nil {
			return err
		}
		defer e.Close()

		host := server.NewHost(e)
		return server.ListenAndServe(ctx, cfg.Server.Addr, host.Handler(), logger, func(a net.Addr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s composing %d region(s) from %d remote(s) on http://%s\n",
				cfg.Name, len(cfg.Layout), len(cfg.Remotes), a)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveOpts.host.bind(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.addr, flags.FlagAddr, ":5000", "Listen address")
}
