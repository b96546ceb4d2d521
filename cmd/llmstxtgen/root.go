package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for llmstxtgen.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llmstxtgen",
		Short: "Generate llms.txt documents from website crawls",
		Long: `llmstxtgen crawls a website within its domain, extracts titles,
descriptions, and main content from each page, and renders an llms.txt
document per the llmstxt.org convention.

The crawler is polite: it honors robots.txt, rate-limits requests, and
stays within configurable depth and page budgets.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
