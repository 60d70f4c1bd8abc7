package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/constants"
	"github.com/coral-mesh/dwarfsql/internal/errors"
	"github.com/coral-mesh/dwarfsql/internal/httpapi"
	"github.com/coral-mesh/dwarfsql/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve <binary>",
		Short: "Serve the tables of a binary over HTTP",
		Long: `Loads a binary and serves SQL queries over HTTP until interrupted or
until a client posts to /shutdown.

Endpoints:
  GET  /, /help   - Usage and table list
  GET  /health    - Liveness check (no auth)
  GET  /status    - Loaded binary, row counts, uptime
  POST /query     - Raw SQL or {"sql": "..."} body
  POST /shutdown  - Stop the server

With --watch the binary is reloaded when it is rebuilt. A failed reload
keeps serving the previous database.

Examples:
  dwarfsql serve ./app
  dwarfsql serve ./app --port 8080 --token secret --watch
  curl -X POST localhost:17199/query -d "SELECT count(*) FROM functions"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			store, err := a.openStore(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			defer errors.DeferClose(a.logger, store, "Failed to close database")

			srv, err := httpapi.New(httpapi.Config{
				Host:         a.cfg.Server.Host,
				Port:         a.cfg.Server.Port,
				Token:        a.cfg.Server.Token,
				RateLimit:    a.cfg.Server.RateLimit,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				QueryTimeout: a.cfg.Server.QueryTimeout,
				Backend:      store,
				Version:      version.Version,
				Logger:       a.logger,
			})
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				return err
			}
			cmd.PrintErrf("Serving %s on %s\n", args[0], srv.URL())

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				select {
				case <-srv.ShutdownRequested():
					a.logger.Info().Msg("Shutdown requested over HTTP")
					cancel()
				case <-gctx.Done():
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
				defer stop()
				return srv.Stop(stopCtx)
			})

			if watch {
				w, err := catalog.NewWatcher(store, args[0], a.cfg.Server.WatchDebounce, a.logger)
				if err != nil {
					cancel()
					_ = g.Wait()
					return err
				}
				w.Start(gctx)
				g.Go(func() error {
					<-gctx.Done()
					w.Stop()
					return nil
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().String("host", constants.DefaultServerHost, "Address to listen on")
	cmd.Flags().Int("port", constants.DefaultServerPort, "Port to listen on")
	cmd.Flags().String("token", "", "Require this bearer token")
	cmd.Flags().String("rate-limit", "", "Per-client rate limit, e.g. 100/minute")
	cmd.Flags().Duration("query-timeout", constants.DefaultQueryTimeout, "Maximum duration of one query")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload when the binary changes")

	return cmd
}
