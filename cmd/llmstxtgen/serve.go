package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"llmstxtgen/internal/analyzer"
	"llmstxtgen/internal/api"
	"llmstxtgen/internal/crawler"
	"llmstxtgen/internal/gen"
	"llmstxtgen/internal/monitor"
	"llmstxtgen/internal/storage"
	"llmstxtgen/pkg/types"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and change monitor",
		Long: `Serve starts the HTTP API for registering websites and retrieving
their generated llms.txt documents. When monitoring is enabled in the
configuration, registered sites are re-crawled periodically and content
changes are recorded.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", ":8080", "HTTP listen address")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("initialise store: %w", err)
	}
	defer store.Close()

	generator := gen.New(analyzer.New(buildClassifier(cfg, logger)))

	crawlFn := func(ctx context.Context, seedURL string) ([]*types.PageRecord, error) {
		engine, err := crawler.New(seedURL, cfg, logger)
		if err != nil {
			return nil, err
		}
		return engine.Crawl(ctx), nil
	}
	generateFn := func(ctx context.Context, pages []*types.PageRecord) (string, error) {
		return generator.GenerateString(ctx, pages)
	}

	if cfg.Monitor.Enabled {
		mon := monitor.New(store, cfg.Monitor, crawlFn, generateFn, logger)
		go func() {
			if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("monitor stopped", "error", err)
			}
		}()
	}

	addr, _ := cmd.Flags().GetString("addr")
	server := api.NewServer(store, crawlFn, generateFn, logger)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
	}()

	logger.Info("api server listening", "addr", addr, "monitor", cfg.Monitor.Enabled)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	logger.Info("server stopped")
	return nil
}
