package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/config"
)

var (
	cfg *config.Config

	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "newsintel",
	Short: "News ingestion and enrichment pipeline",
	Long:  "Samples niche RSS/Atom feeds, acquires article context, analyzes it with a fallback chain of LLMs, and routes the results into niche tables.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		applyLogFlags(cmd, &cfg.Log)

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json or console)")
}

// applyLogFlags lets the persistent flags win over file and env config.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) {
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		lc.Level = logLevel
	}
	if f := cmd.Flag("log-format"); f != nil && f.Changed {
		lc.Format = logFormat
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
