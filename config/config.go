package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete backend configuration.
// Values come from config.yaml (optional), .env and LEXI_* environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Features FeatureConfig  `mapstructure:"features"`
	Session  SessionConfig  `mapstructure:"session"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr          string   `mapstructure:"addr"`
	Mode          string   `mapstructure:"mode"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
	MaxUploadSize int64    `mapstructure:"max_upload_size"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// LLMConfig selects the completion provider.
// Provider is "groq" (any OpenAI-compatible endpoint) or "gemini".
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FeatureConfig toggles the optional tasks of the assistant.
type FeatureConfig struct {
	LegalityCheck bool `mapstructure:"legality_check"`
	Summary       bool `mapstructure:"summary"`
	Entities      bool `mapstructure:"entities"`
	IPCHints      bool `mapstructure:"ipc_hints"`
}

type SessionConfig struct {
	HistoryLimit  int           `mapstructure:"history_limit"`
	PromptHistory int           `mapstructure:"prompt_history"`
	QueueWait     time.Duration `mapstructure:"queue_wait"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// CacheConfig configures result memoization. Backend is "memory", "redis" or "none".
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	Size      int           `mapstructure:"size"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	Type         string `mapstructure:"type"`
	LocalPath    string `mapstructure:"local_path"`
	S3Bucket     string `mapstructure:"s3_bucket"`
	S3Region     string `mapstructure:"s3_region"`
	AWSAccessKey string `mapstructure:"aws_access_key"`
	AWSSecretKey string `mapstructure:"aws_secret_key"`
}

// DatabaseConfig is optional; an empty URL disables the completion audit log.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type SpeechConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	SampleRateHertz int32  `mapstructure:"sample_rate_hertz"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Load reads .env, config.yaml and the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")
	v.SetEnvPrefix("LEXI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_size", 10<<20)

	v.SetDefault("log.mode", "dev")

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama3-70b-8192")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", "45s")

	v.SetDefault("features.legality_check", true)
	v.SetDefault("features.summary", true)
	v.SetDefault("features.entities", true)
	v.SetDefault("features.ipc_hints", true)

	v.SetDefault("session.history_limit", 20)
	v.SetDefault("session.prompt_history", 10)
	v.SetDefault("session.queue_wait", "60s")
	v.SetDefault("session.idle_ttl", "2h")
	v.SetDefault("session.sweep_interval", "5m")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage/files")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.aws_access_key", "")
	v.SetDefault("storage.aws_secret_key", "")

	v.SetDefault("database.url", "")

	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.credentials_file", "")
	v.SetDefault("speech.sample_rate_hertz", 0)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "lexilingua-backend")
}

// bindLegacyEnv keeps the plain variable names used by existing deployments working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.api_key", "LEXI_LLM_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("database.url", "LEXI_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("storage.type", "LEXI_STORAGE_TYPE", "STORAGE_TYPE")
	_ = v.BindEnv("storage.local_path", "LEXI_STORAGE_LOCAL_PATH", "STORAGE_LOCAL_PATH")
	_ = v.BindEnv("storage.s3_bucket", "LEXI_STORAGE_S3_BUCKET", "AWS_S3_BUCKET")
	_ = v.BindEnv("storage.s3_region", "LEXI_STORAGE_S3_REGION", "AWS_REGION")
	_ = v.BindEnv("storage.aws_access_key", "LEXI_STORAGE_AWS_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.aws_secret_key", "LEXI_STORAGE_AWS_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("speech.credentials_file", "LEXI_SPEECH_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
}

// Chat history caps: turns kept per session and turns replayed into a prompt.
const (
	maxHistoryLimit  = 20
	maxPromptHistory = 10
)

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "groq", "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	if c.Cache.Backend == "memory" && c.Cache.Size <= 0 {
		return errors.New("cache.size must be positive")
	}
	if c.Session.HistoryLimit <= 0 || c.Session.HistoryLimit > maxHistoryLimit {
		return fmt.Errorf("session.history_limit must be between 1 and %d", maxHistoryLimit)
	}
	if c.Session.PromptHistory < 0 || c.Session.PromptHistory > maxPromptHistory {
		return fmt.Errorf("session.prompt_history must be between 0 and %d", maxPromptHistory)
	}
	if c.Session.QueueWait <= 0 || c.Session.IdleTTL <= 0 || c.Session.SweepInterval <= 0 {
		return errors.New("session.queue_wait, session.idle_ttl and session.sweep_interval must be positive")
	}
	if c.Storage.Type == "s3" && c.Storage.S3Bucket == "" {
		return errors.New("storage.s3_bucket is required for S3 storage")
	}
	return nil
}
