package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Jobs     JobsConfig     `mapstructure:"jobs" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	YouTube  YouTubeConfig  `mapstructure:"youtube" validate:"required"`
	Output   OutputConfig   `mapstructure:"output" validate:"required"`
	API      APIConfig      `mapstructure:"api" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains database settings. An empty URL selects the
// in-memory job store.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
}

// JobsConfig controls admission and in-memory retention of jobs.
type JobsConfig struct {
	MaxConcurrent   int           `mapstructure:"max_concurrent" validate:"gte=1"`
	Retention       time.Duration `mapstructure:"retention" validate:"gt=0"`
	CleanupSchedule string        `mapstructure:"cleanup_schedule" validate:"required"`
}

// CacheConfig holds the default TTL of each cache category.
type CacheConfig struct {
	MetadataTTL        time.Duration `mapstructure:"metadata_ttl" validate:"gt=0"`
	ContentVariantsTTL time.Duration `mapstructure:"content_variants_ttl" validate:"gt=0"`
	ProviderHealthTTL  time.Duration `mapstructure:"provider_health_ttl" validate:"gt=0"`
	DefaultTTL         time.Duration `mapstructure:"default_ttl" validate:"gt=0"`
	SweepSchedule      string        `mapstructure:"sweep_schedule" validate:"required"`
}

// NotifyConfig controls observer liveness.
type NotifyConfig struct {
	StaleTimeout      time.Duration `mapstructure:"stale_timeout" validate:"gt=0"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"gt=0"`
	SweepSchedule     string        `mapstructure:"sweep_schedule" validate:"required"`
}

// LLMConfig contains the text-generation provider settings. A provider is
// offered to clients only when its API key is set.
type LLMConfig struct {
	DefaultProvider   string        `mapstructure:"default_provider" validate:"required,oneof=google openai anthropic"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	GeminiModel       string        `mapstructure:"gemini_model" validate:"required"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL     string        `mapstructure:"openai_base_url" validate:"required,url"`
	OpenAIModel       string        `mapstructure:"openai_model" validate:"required"`
	AnthropicAPIKey   string        `mapstructure:"anthropic_api_key"`
	AnthropicBaseURL  string        `mapstructure:"anthropic_base_url" validate:"required,url"`
	AnthropicModel    string        `mapstructure:"anthropic_model" validate:"required"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0,lte=5"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// YouTubeConfig controls outbound calls to YouTube.
type YouTubeConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=1"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	DefaultLanguage   string        `mapstructure:"default_language" validate:"required"`
}

// OutputConfig names the directories artifacts are written to.
type OutputConfig struct {
	Dir            string `mapstructure:"dir" validate:"required"`
	TranscriptsDir string `mapstructure:"transcripts_dir" validate:"required"`
}

// APIConfig limits the rate of job creation requests.
type APIConfig struct {
	CreateRatePerSecond float64 `mapstructure:"create_rate_per_second" validate:"gt=0"`
	CreateBurst         int     `mapstructure:"create_burst" validate:"gte=1"`
}
