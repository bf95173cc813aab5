package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host    string
		port    int
		samples bool
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Start the HTTP API and the watch-folder inbox",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if host != "" {
				a.cfg.Server.Host = host
			}
			if port != 0 {
				a.cfg.Server.Port = port
			}
			return a.runServe(cmd.Context(), samples)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&samples, "samples", false, "load the sample documents when the index is empty")
	return cmd
}

func (a *app) runServe(ctx context.Context, samples bool) error {
	cfg, logger := a.cfg, a.logger
	logger.Info("config loaded",
		zap.String("config_path", a.configFile),
		zap.Bool("debug", cfg.Debug || a.debug),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("generation", cfg.Generation.Provider),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	if samples && components.Indexer.GetVectorStoreStats().TotalDocuments == 0 {
		if err := components.Indexer.AddSampleDocuments(ctx); err != nil {
			logger.Warn("loading sample documents failed", zap.Error(err))
		}
	}

	watchSvc := watcher.New(components.Indexer, cfg.Watch, watcher.WithLogger(logger))
	if err := watchSvc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watchSvc.Stop()
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(components.Engine, components.Indexer, cfg.Server, logger,
		server.WithWatch(watchSvc, a.configFile, cfg))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
