package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLM providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// LLMConfig contains settings for the content generator backends.
type LLMConfig struct {
	Provider       string   `mapstructure:"provider" validate:"required,oneof=gemini openai"`
	GeminiAPIKey   string   `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	OpenAIAPIKey   string   `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIBaseURL  string   `mapstructure:"openai_base_url" validate:"omitempty,url"`
	ModelName      string   `mapstructure:"model_name" validate:"required"`
	FallbackModels []string `mapstructure:"fallback_models"`
	Temperature    float32  `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int      `mapstructure:"max_tokens" validate:"gte=0"`
	// PromptTemplatePath overrides the embedded course prompt when set.
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RequestsPerMinute  int           `mapstructure:"requests_per_minute" validate:"gte=0"`
}

// GenerationConfig tunes the bulk generation pipeline.
type GenerationConfig struct {
	// WorkerCount caps how many tasks run concurrently.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0,lte=64"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
	// MaxAttempts is the total number of generator calls per task.
	MaxAttempts int           `mapstructure:"max_attempts" validate:"required,gt=0,lte=5"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	// MinutesPerEmployee drives completion estimates only; nothing enforces it.
	MinutesPerEmployee   float64       `mapstructure:"minutes_per_employee" validate:"gt=0"`
	PollInterval         time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	DocumentExcerptChars int           `mapstructure:"document_excerpt_chars" validate:"gte=0"`
}
