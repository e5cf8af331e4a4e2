package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/visita-intel/newsintel/internal/model"
)

// MaxArticlesLimit caps a single run.
const MaxArticlesLimit = 500

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Run        RunConfig        `yaml:"run" mapstructure:"run"`
	Feeds      FeedsConfig      `yaml:"feeds" mapstructure:"feeds"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Brave      BraveConfig      `yaml:"brave" mapstructure:"brave"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	OpenRouter ChatConfig       `yaml:"openrouter" mapstructure:"openrouter"`
	GitHub     ChatConfig       `yaml:"github" mapstructure:"github"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Dataset    DatasetConfig    `yaml:"dataset" mapstructure:"dataset"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// RunConfig is the per-run input surface. Command flags override it.
type RunConfig struct {
	Niche             string `yaml:"niche" mapstructure:"niche"`
	Source            string `yaml:"source" mapstructure:"source"`
	CustomFeedURL     string `yaml:"custom_feed_url" mapstructure:"custom_feed_url"`
	MaxArticles       int    `yaml:"max_articles" mapstructure:"max_articles"`
	TimeLimit         string `yaml:"time_limit" mapstructure:"time_limit"`
	ForceRefresh      bool   `yaml:"force_refresh" mapstructure:"force_refresh"`
	ImageBackfill     bool   `yaml:"image_backfill" mapstructure:"image_backfill"`
	DryRun            bool   `yaml:"dry_run" mapstructure:"dry_run"`
	DiscordWebhookURL string `yaml:"discord_webhook_url" mapstructure:"discord_webhook_url"`
}

// FeedsConfig configures feed sampling.
type FeedsConfig struct {
	Workers     int    `yaml:"workers" mapstructure:"workers"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// ScrapeConfig configures the direct extraction tier.
type ScrapeConfig struct {
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinChars    int      `yaml:"min_chars" mapstructure:"min_chars"`
	MaxChars    int      `yaml:"max_chars" mapstructure:"max_chars"`
	SearchChars int      `yaml:"search_chars" mapstructure:"search_chars"`
	Exclude     []string `yaml:"exclude" mapstructure:"exclude"`
}

// BraveConfig holds up to three Brave Search keys, tried in order.
type BraveConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Key2    string `yaml:"key_2" mapstructure:"key_2"`
	Key3    string `yaml:"key_3" mapstructure:"key_3"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// Keys returns the configured keys in priority order.
func (b BraveConfig) Keys() []string {
	var keys []string
	for _, k := range []string{b.Key, b.Key2, b.Key3} {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ModelEntry is one link of the analysis fallback chain.
type ModelEntry struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// LLMConfig configures the analysis engine.
type LLMConfig struct {
	Chain           []ModelEntry `yaml:"chain" mapstructure:"chain"`
	MaxContextChars int          `yaml:"max_context_chars" mapstructure:"max_context_chars"`
	MaxTokens       int          `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ChatConfig holds an OpenAI-compatible provider's settings.
type ChatConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// StoreConfig configures the destination store.
type StoreConfig struct {
	// Driver is postgrest, postgres, or memory.
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	URL         string        `yaml:"url" mapstructure:"url"`
	Key         string        `yaml:"key" mapstructure:"key"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32         `yaml:"max_conns" mapstructure:"max_conns"`
	Breaker     BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// BreakerConfig configures the per-schema circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// DatasetConfig configures the dataset sink.
type DatasetConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	// Models is keyed by "provider/model".
	Models        map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	BravePerQuery float64                 `yaml:"brave_per_query" mapstructure:"brave_per_query"`
	JinaPerMTok   float64                 `yaml:"jina_per_mtok" mapstructure:"jina_per_mtok"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// MonitoringConfig configures end-of-run alert thresholds.
type MonitoringConfig struct {
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// ServerConfig configures the trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envAliases are the conventional variable names accepted alongside the
// NEWSINTEL_ prefixed ones. Earlier names win.
var envAliases = map[string][]string{
	"openrouter.key":          {"OPENROUTER_API_KEY"},
	"github.key":              {"GITHUB_ACCESS_TOKEN", "GITHUB_TOKEN"},
	"anthropic.key":           {"ANTHROPIC_API_KEY"},
	"brave.key":               {"BRAVE_API_KEY"},
	"brave.key_2":             {"BRAVE_API_KEY_2"},
	"brave.key_3":             {"BRAVE_API_KEY_3"},
	"jina.key":                {"JINA_API_KEY"},
	"store.url":               {"SUPABASE_URL"},
	"store.key":               {"SUPABASE_KEY", "SUPABASE_SERVICE_ROLE_KEY"},
	"store.database_url":      {"DATABASE_URL"},
	"run.discord_webhook_url": {"DISCORD_WEBHOOK_URL"},
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEWSINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		prefixed := "NEWSINTEL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("run.niche", "general")
	v.SetDefault("run.source", "all")
	v.SetDefault("run.max_articles", 20)
	v.SetDefault("run.time_limit", "1w")
	v.SetDefault("run.image_backfill", true)
	v.SetDefault("feeds.workers", 10)
	v.SetDefault("feeds.timeout_secs", 20)
	v.SetDefault("feeds.catalog_path", "")
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.min_chars", 300)
	v.SetDefault("scrape.max_chars", 8000)
	v.SetDefault("scrape.search_chars", 6000)
	v.SetDefault("scrape.exclude", []string{"*.pdf", "/video/*", "/podcast/*"})
	v.SetDefault("brave.base_url", "https://api.search.brave.com")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("llm.chain", []map[string]any{
		{"provider": "openrouter", "model": "google/gemini-2.0-flash-001"},
		{"provider": "openrouter", "model": "meta-llama/llama-3.3-70b-instruct"},
		{"provider": "github", "model": "gpt-4o-mini"},
		{"provider": "anthropic", "model": "claude-haiku-4-5-20251001"},
	})
	v.SetDefault("llm.max_context_chars", 8000)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("github.base_url", "https://models.inference.ai.azure.com")
	v.SetDefault("store.driver", "postgrest")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.breaker.failure_threshold", 5)
	v.SetDefault("store.breaker.reset_timeout_secs", 30)
	v.SetDefault("dataset.driver", "jsonl")
	v.SetDefault("dataset.path", "dataset.jsonl")
	v.SetDefault("pricing.brave_per_query", 0.005)
	v.SetDefault("pricing.jina_per_mtok", 0.02)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate normalises the run settings. It rejects unknown niches, maps the
// time limit onto a supported window, and clamps the article cap.
func (c *Config) Validate() error {
	niche := strings.ToLower(strings.TrimSpace(c.Run.Niche))
	if niche == "" {
		niche = string(model.NicheGeneral)
	}
	if niche != string(model.NicheAll) {
		if _, ok := model.ParseNiche(niche); !ok {
			return eris.Errorf("config: unknown niche %q", c.Run.Niche)
		}
	}
	c.Run.Niche = niche

	w, ok := model.ParseWindow(c.Run.TimeLimit)
	if !ok && c.Run.TimeLimit != "" {
		zap.L().Warn("config: unknown time limit, using default",
			zap.String("time_limit", c.Run.TimeLimit),
			zap.String("default", string(w)),
		)
	}
	c.Run.TimeLimit = string(w)

	if c.Run.MaxArticles < 0 {
		c.Run.MaxArticles = 0
	}
	if c.Run.MaxArticles > MaxArticlesLimit {
		c.Run.MaxArticles = MaxArticlesLimit
	}

	if c.Run.Source == "custom" && strings.TrimSpace(c.Run.CustomFeedURL) == "" {
		return eris.New("config: source custom requires custom_feed_url")
	}

	switch c.Store.Driver {
	case "postgrest", "postgres", "memory":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if !c.Run.DryRun && !c.hasModelKey() {
		zap.L().Warn("config: no LLM provider key in the chain, switching to dry run")
		c.Run.DryRun = true
	}
	if !c.Run.DryRun && len(c.Brave.Keys()) == 0 {
		zap.L().Warn("config: no Brave key, search fallback and image backfill disabled")
	}
	return nil
}

// ProviderKey returns the credential for a chain provider.
func (c *Config) ProviderKey(provider string) string {
	switch provider {
	case "openrouter":
		return c.OpenRouter.Key
	case "github":
		return c.GitHub.Key
	case "anthropic":
		return c.Anthropic.Key
	}
	return ""
}

func (c *Config) hasModelKey() bool {
	for _, m := range c.LLM.Chain {
		if c.ProviderKey(m.Provider) != "" {
			return true
		}
	}
	return false
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
