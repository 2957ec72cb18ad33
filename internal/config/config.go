// Package config loads the pipeline configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	GoAPI     GoAPIConfig     `yaml:"goapi" mapstructure:"goapi"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	GeoNames  GeoNamesConfig  `yaml:"geonames" mapstructure:"geonames"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GoAPIConfig holds IFRC GO API settings.
type GoAPIConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	AuthToken         string `yaml:"auth_token" mapstructure:"auth_token"`
	PageLimit         int    `yaml:"page_limit" mapstructure:"page_limit"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	StartDate         string `yaml:"start_date" mapstructure:"start_date"`
}

// StartTime parses the configured start date.
func (c GoAPIConfig) StartTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: parse start_date %q", c.StartDate)
	}
	return t, nil
}

// AnthropicConfig holds model API settings for the extraction and association
// stages.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries        int    `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySecs    int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// GeoNamesConfig holds gazetteer API settings.
type GeoNamesConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Username          string `yaml:"username" mapstructure:"username"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StoreConfig configures the JSON file store location.
type StoreConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// PipelineConfig configures batching between the LLM stages.
type PipelineConfig struct {
	BatchSize                 int `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelaySecs            int `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
	AssociationBatchDelaySecs int `yaml:"association_batch_delay_secs" mapstructure:"association_batch_delay_secs"`
	MaxTextChars              int `yaml:"max_text_chars" mapstructure:"max_text_chars"`
}

// ServerConfig configures the HTTP trigger server.
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
	v.SetEnvPrefix("FIELDGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("goapi.base_url", "https://goadmin.ifrc.org/api/v2")
	v.SetDefault("goapi.page_limit", 50)
	v.SetDefault("goapi.requests_per_minute", 40)
	v.SetDefault("goapi.timeout_secs", 30)
	v.SetDefault("goapi.start_date", "2025-06-01T00:00:00Z")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1500)
	v.SetDefault("anthropic.max_retries", 3)
	v.SetDefault("anthropic.retry_delay_secs", 2)
	v.SetDefault("anthropic.requests_per_minute", 50)
	v.SetDefault("geonames.base_url", "http://api.geonames.org")
	v.SetDefault("geonames.username", "")
	v.SetDefault("geonames.requests_per_minute", 60)
	v.SetDefault("geonames.timeout_secs", 10)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("pipeline.batch_size", 3)
	v.SetDefault("pipeline.batch_delay_secs", 5)
	v.SetDefault("pipeline.association_batch_delay_secs", 3)
	v.SetDefault("pipeline.max_text_chars", 4000)
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
