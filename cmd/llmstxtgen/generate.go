package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"llmstxtgen/internal/analyzer"
	"llmstxtgen/internal/config"
	"llmstxtgen/internal/crawler"
	"llmstxtgen/internal/gen"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "Crawl a website and generate its llms.txt",
		Long: `Generate crawls the given website breadth-first, preferring navigation
links over in-content links, and renders an llms.txt document from the
pages it finds.

Examples:
  # Write llms.txt to the current directory
  llmstxtgen generate https://example.com

  # Print to stdout
  llmstxtgen generate -o - https://example.com

  # Shallow, small crawl
  llmstxtgen generate --max-depth 1 --max-pages 20 https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerateCmd,
	}

	cmd.Flags().StringP("output", "o", "llms.txt", `Output file path ("-" for stdout)`)
	cmd.Flags().IntP("max-depth", "d", 0, "Maximum crawl depth (overrides config)")
	cmd.Flags().IntP("max-pages", "p", 0, "Maximum pages to fetch (overrides config)")
	cmd.Flags().Duration("delay", 0, "Delay between requests (overrides config)")

	return cmd
}

func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyCrawlFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := crawler.New(args[0], cfg, logger)
	if err != nil {
		return err
	}
	pages := engine.Crawl(ctx)
	if len(pages) == 0 {
		return fmt.Errorf("no pages could be crawled from %s", args[0])
	}
	logger.Info("crawl finished", "pages", len(pages))

	generator := gen.New(analyzer.New(buildClassifier(cfg, logger)))

	output, _ := cmd.Flags().GetString("output")
	if output == "-" {
		return generator.Generate(ctx, cmd.OutOrStdout(), pages)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := generator.Generate(ctx, f, pages); err != nil {
		return err
	}
	logger.Info("document written", "path", output)
	return nil
}

func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) {
	if depth, _ := cmd.Flags().GetInt("max-depth"); depth > 0 {
		cfg.Crawl.MaxDepth = depth
	}
	if pages, _ := cmd.Flags().GetInt("max-pages"); pages > 0 {
		cfg.Crawl.MaxPages = pages
	}
	if delay, _ := cmd.Flags().GetDuration("delay"); delay > 0 {
		cfg.Crawl.Delay = config.DurationFrom(delay)
	}
}
