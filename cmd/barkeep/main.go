// Package main is the entry point for the Barkeep CLI
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/barkeephq/barkeep/internal/config"
)

var cfg *config.Config

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "barkeep",
		Short: "Telegram assistant for your Poster POS",
		Long: `Barkeep watches a Poster point-of-sale account and answers questions
about sales, stock and finances over Telegram or a web dashboard. It runs
an LLM tool-use loop against the Poster API and pushes a daily summary to
subscribed chats.`,
		Version: "0.1.0",
	}

	rootCmd.AddCommand(
		runCmd(),
		askCmd(),
		summaryCmd(),
		usageCmd(),
		limitsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the configured level
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
