package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/config"
)

var runFlags struct {
	niche         string
	source        string
	customURL     string
	maxArticles   int
	timeLimit     string
	forceRefresh  bool
	imageBackfill bool
	dryRun        bool
	webhook       string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion and enrichment pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		applyRunFlags(cmd.Flags(), &cfg.Run)

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, runOptions(cfg.Run))
		if err != nil {
			return err
		}

		zap.L().Info("run finished",
			zap.String("run_id", result.RunID),
			zap.Int("total", result.Total),
			zap.Int("routed", result.Routed),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
			zap.Any("events", result.Cost.Events),
			zap.Int("search_queries", result.Cost.SearchQueries),
			zap.Float64("cost_usd", result.Cost.USD),
		)
		return nil
	},
}

// applyRunFlags copies explicitly set flags over the configured run settings.
func applyRunFlags(fs *pflag.FlagSet, rc *config.RunConfig) {
	if fs.Changed("niche") {
		rc.Niche = runFlags.niche
	}
	if fs.Changed("source") {
		rc.Source = runFlags.source
	}
	if fs.Changed("custom-url") {
		rc.CustomFeedURL = runFlags.customURL
	}
	if fs.Changed("max-articles") {
		rc.MaxArticles = runFlags.maxArticles
	}
	if fs.Changed("time-limit") {
		rc.TimeLimit = runFlags.timeLimit
	}
	if fs.Changed("force-refresh") {
		rc.ForceRefresh = runFlags.forceRefresh
	}
	if fs.Changed("image-backfill") {
		rc.ImageBackfill = runFlags.imageBackfill
	}
	if fs.Changed("dry-run") {
		rc.DryRun = runFlags.dryRun
	}
	if fs.Changed("webhook") {
		rc.DiscordWebhookURL = runFlags.webhook
	}
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.niche, "niche", "general", "niche to sample, or \"all\"")
	f.StringVar(&runFlags.source, "source", "all", "feed source key, \"all\", or \"custom\"")
	f.StringVar(&runFlags.customURL, "custom-url", "", "feed URL when --source=custom")
	f.IntVar(&runFlags.maxArticles, "max-articles", 20, "maximum articles to process (0 = no cap, at most 500)")
	f.StringVar(&runFlags.timeLimit, "time-limit", "1w", "recency window: 24h, 48h, 1w, or 1m")
	f.BoolVar(&runFlags.forceRefresh, "force-refresh", false, "reprocess articles that already exist")
	f.BoolVar(&runFlags.imageBackfill, "image-backfill", true, "search for an image when none was found")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "use synthetic feeds and canned analysis; write to memory")
	f.StringVar(&runFlags.webhook, "webhook", "", "Discord-compatible webhook for high-hype alerts")
	rootCmd.AddCommand(runCmd)
}
