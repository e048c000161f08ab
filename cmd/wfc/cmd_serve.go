package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/logger"
	"github.com/lawnchairsociety/wavecollapse/internal/metrics"
	"github.com/lawnchairsociety/wavecollapse/internal/server"
	"github.com/lawnchairsociety/wavecollapse/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream solves over WebSocket and expose metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			table, err := generator.LoadTable(cfg.Modules.Path)
			if err != nil {
				return err
			}
			logger.Info("Module set loaded",
				"name", table.Set().Name,
				"modules", table.Size(),
				"fingerprint", table.Fingerprint())

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			opts := server.Options{
				Recorder: metrics.New(registry),
				Gatherer: registry,
			}

			st, err := store.Open(cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()
			opts.Store = st

			srv := server.NewServer(cfg, table, opts)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-sigCtx.Done():
			}

			logger.Info("Shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides server.listen)")
	return cmd
}
