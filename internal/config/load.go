package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads,
// e.g. BLOGTUBE_SERVER_PORT.
const EnvPrefix = "BLOGTUBE"

// secretKeys have no defaults, so they are bound to the environment explicitly.
var secretKeys = []string{
	"database.url",
	"llm.gemini_api_key",
	"llm.openai_api_key",
	"llm.anthropic_api_key",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("jobs.max_concurrent", 5)
	v.SetDefault("jobs.retention", "24h")
	v.SetDefault("jobs.cleanup_schedule", "@every 10m")

	v.SetDefault("cache.metadata_ttl", "1h")
	v.SetDefault("cache.content_variants_ttl", "30m")
	v.SetDefault("cache.provider_health_ttl", "5m")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.sweep_schedule", "@every 1m")

	v.SetDefault("notify.stale_timeout", "60s")
	v.SetDefault("notify.heartbeat_interval", "30s")
	v.SetDefault("notify.sweep_schedule", "@every 15s")

	v.SetDefault("llm.default_provider", "google")
	v.SetDefault("llm.gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.anthropic_base_url", "https://api.anthropic.com")
	v.SetDefault("llm.anthropic_model", "claude-3-5-sonnet-latest")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("llm.request_timeout", "120s")

	v.SetDefault("youtube.requests_per_second", 2.0)
	v.SetDefault("youtube.burst", 4)
	v.SetDefault("youtube.http_timeout", "15s")
	v.SetDefault("youtube.default_language", "en")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.transcripts_dir", "output/transcripts")

	v.SetDefault("api.create_rate_per_second", 1.0)
	v.SetDefault("api.create_burst", 5)
}

// Load configuration from a .env file, an optional config.yaml and
// environment variables. Environment variables take precedence over the
// config file, which takes precedence over defaults.
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
