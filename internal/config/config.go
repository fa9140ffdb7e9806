package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Fetcher  FetcherConfig  `yaml:"fetcher" mapstructure:"fetcher"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Dedup    DedupConfig    `yaml:"dedup" mapstructure:"dedup"`
	Enhance  EnhanceConfig  `yaml:"enhance" mapstructure:"enhance"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetcherConfig holds settings for the external page-rendering service.
type FetcherConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMConfig holds Anthropic API settings.
type LLMConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScrapeConfig configures the scrape stage.
type ScrapeConfig struct {
	MaxPages      int     `yaml:"max_pages" mapstructure:"max_pages"`
	MaxJobsPerURL int     `yaml:"max_jobs_per_url" mapstructure:"max_jobs_per_url"`
	PageDelaySecs float64 `yaml:"page_delay_secs" mapstructure:"page_delay_secs"`
}

// DedupConfig configures deduplication.
type DedupConfig struct {
	WindowDays int    `yaml:"window_days" mapstructure:"window_days"`
	Strict     bool   `yaml:"strict" mapstructure:"strict"`
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
}

// EnhanceConfig configures the LLM enhancement stage.
type EnhanceConfig struct {
	Mode           string  `yaml:"mode" mapstructure:"mode"` // "parallel" or "serial"
	BatchSize      int     `yaml:"batch_size" mapstructure:"batch_size"`
	MaxBatchChars  int     `yaml:"max_batch_chars" mapstructure:"max_batch_chars"`
	BatchDelaySecs float64 `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
}

// PipelineConfig configures the stage sequencer.
type PipelineConfig struct {
	CheckpointDir string `yaml:"checkpoint_dir" mapstructure:"checkpoint_dir"`
	ArtifactDir   string `yaml:"artifact_dir" mapstructure:"artifact_dir"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("JOBSIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "jobsift.db")
	v.SetDefault("fetcher.base_url", "")
	v.SetDefault("fetcher.key", "")
	v.SetDefault("fetcher.timeout_secs", 60)
	v.SetDefault("llm.key", "")
	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout_secs", 90)
	v.SetDefault("scrape.max_pages", 10)
	v.SetDefault("scrape.max_jobs_per_url", 0)
	v.SetDefault("scrape.page_delay_secs", 3.0)
	v.SetDefault("dedup.window_days", 7)
	v.SetDefault("dedup.strict", false)
	v.SetDefault("dedup.redis_url", "")
	v.SetDefault("enhance.mode", "parallel")
	v.SetDefault("enhance.batch_size", 5)
	v.SetDefault("enhance.max_batch_chars", 50000)
	v.SetDefault("enhance.batch_delay_secs", 1.0)
	v.SetDefault("pipeline.checkpoint_dir", "intermediate")
	v.SetDefault("pipeline.artifact_dir", "output")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// ValidateForRun checks the credentials a pipeline run cannot start
// without. Called before any stage executes.
func (c *Config) ValidateForRun() error {
	if c.LLM.Key == "" {
		return eris.New("config: llm.key is required")
	}
	if c.Fetcher.BaseURL == "" {
		return eris.New("config: fetcher.base_url is required")
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	return nil
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
