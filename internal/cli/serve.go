package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		listen    string
		anonymous bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store to replicators",
		Long: `Run the replication gateway: replicators connecting to
ws://<listen>/<replication.database> exchange changes with the local store.
Users come from gateway.users. Serving without users accepts writes from
any client and requires --anonymous.

Example:
  pyco serve --listen :4984`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			if len(a.Config.Gateway.Users) == 0 {
				if !anonymous {
					return NewExitError(ExitCommandError, "gateway.users is empty; pass --anonymous to serve without authentication")
				}
				slog.Warn("gateway serving without authentication", "database", a.Config.Replication.Database)
			}

			if listen == "" {
				listen = a.Config.Gateway.Listen
			}
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to listen", err)
			}

			gw := a.NewGateway()
			srv := &http.Server{
				Handler:           gw.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := withSignals(commandContext(cmd))
			defer stop()

			serveErr := make(chan error, 1)
			go func() { serveErr <- srv.Serve(ln) }()

			slog.Info("gateway listening", "addr", ln.Addr().String(), "database", a.Config.Replication.Database)
			fmt.Fprintf(cmd.OutOrStdout(), "Gateway listening on %s. Press Ctrl-C to stop.\n", ln.Addr())

			select {
			case err := <-serveErr:
				gw.Close()
				if !errors.Is(err, http.ErrServerClosed) {
					return WrapExitError(ExitFailure, "gateway error", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// Hijacked websocket connections are not tracked by the server;
			// the gateway closes them.
			gw.Close()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("gateway shutdown", "error", err)
			}
			slog.Info("gateway stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides gateway.listen)")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "serve without authentication when gateway.users is empty")
	return cmd
}
