package cli

import (
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fedhost/internal/flags"
	"fedhost/internal/logging"
	"fedhost/internal/remoteapp"
	"fedhost/internal/server"
)

var remoteServeOpts struct {
	addr string
	dir  string
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Work with remote applications",
}

var remoteServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a remote application's static files",
	Long: `Serve a remote application's static files with CORS enabled, so a host on
another origin can load its entry script.

Without --dir the built-in demo remote (remote_app, exposing Header and
Button) is served.

Examples:
	fedhost remote serve
	fedhost remote serve --addr :5002 --dir ./dist
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var fsys fs.FS = remoteapp.FS()
		label := remoteapp.Name
		if remoteServeOpts.dir != "" {
			st, err := os.Stat(remoteServeOpts.dir)
			if err != nil {
				return err
			}
			if !st.IsDir() {
				return fmt.Errorf("%s is not a directory", remoteServeOpts.dir)
			}
			fsys = os.DirFS(remoteServeOpts.dir)
			label = remoteServeOpts.dir
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := logging.Logger()
		h := server.RemoteHandler(fsys, logger, nil)
		return server.ListenAndServe(ctx, remoteServeOpts.addr, h, logger, func(a net.Addr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "serving %s on http://%s/%s\n", label, a, remoteapp.EntryPath)
		})
	},
}

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.AddCommand(remoteServeCmd)

	remoteServeCmd.Flags().StringVar(&remoteServeOpts.addr, flags.FlagAddr, ":5001", "Listen address")
	remoteServeCmd.Flags().StringVar(&remoteServeOpts.dir, flags.FlagDir, "", "Serve this directory instead of the built-in demo remote")
}
