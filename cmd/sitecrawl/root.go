package main

import (
	"fmt"
	"log/slog"
	"os"

	seclog "github.com/nao1215/sitecrawl/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawl",
		Short: "Concurrent single-host web crawler",
		Long: `sitecrawl crawls a website starting from a seed URL. It follows every
link that stays on the seed's host, fetches pages concurrently, and reports
the links found on each page.

Crawl results are saved to a local SQLite database so that later crawls of
the same site can be compared with 'sitecrawl history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
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

// newLogger builds the redacting logger selected by the global flags.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		logJSON, _ = cmd.Root().PersistentFlags().GetBool("log-json")
	}
	if logJSON {
		return seclog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return seclog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
