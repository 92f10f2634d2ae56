// Package cmd provides the siterag CLI.
//
// Commands:
//   - ingest: crawl the sitemap, chunk and embed pages, write the index
//   - query: answer a question against the index with sources
//   - collection: inspect or drop the vector store collection
//   - version: show version information
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/siterag/siterag/internal/config"
	"github.com/siterag/siterag/internal/log"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "siterag",
	Short: "RAG toolchain for documentation sites",
	Long: `siterag ingests a documentation site through its sitemap, chunks and
embeds the page text into a Qdrant collection, and answers questions
against that index with Gemini, citing sources.`,
	SilenceUsage: true,
}

// Execute runs the root command. main exits non-zero when it returns an
// error.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// newLogger builds the process logger. Debug level via --debug or DEBUG=1.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// loadConfig loads and validates configuration; any validation failure is
// fatal to the command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
