package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/webdevchat/server"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat over HTTP and WebSocket",
		Long: `Serve exposes the chat as a JSON API and a WebSocket endpoint:

  POST   /api/chat            {"session_id": "...", "message": "..."}
  GET    /api/personas
  GET    /api/sessions/{id}
  DELETE /api/sessions/{id}
  GET    /ws/chat
  GET    /healthz
  GET    /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := a.Close(shutdownCtx); err != nil {
					logger.Warn("tracing.shutdown.failed", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.service, func(o *server.Options) {
				o.Addr = cfg.Server.Addr
				o.AllowedOrigins = cfg.Server.AllowedOrigins
				o.ShutdownTimeout = cfg.Server.ShutdownTimeout
				o.Gatherer = a.gatherer
				o.Logger = logger
			})

			logger.Info("server.starting",
				"addr", cfg.Server.Addr,
				"provider", cfg.Provider.Name,
				"model", cfg.Provider.Model,
				"entry", a.registry.Entry().Name(),
				"personas", a.registry.Len(),
				"started", time.Now().UTC(),
			)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
