package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
// Nested struct names prefix their keys, so Server.Port reads SERVER_PORT.
// Fields with an explicit envconfig tag also accept the bare tag (PORT).
type Config struct {
	Server ServerConfig
	LLM    LLMConfig
	Store  StoreConfig
	Export ExportConfig
	GitHub GitHubConfig
	Log    LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `default:"0.0.0.0"`

	// CORSOrigins is a comma separated allow list; "*" allows any origin
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	// ProxyURL is the credential-injecting proxy in front of every provider
	ProxyURL         string        `envconfig:"PROXY_URL" default:"http://localhost:3001/api"`
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL"`
	AnthropicBaseURL string        `envconfig:"ANTHROPIC_BASE_URL"`
	DeepSeekBaseURL  string        `envconfig:"DEEPSEEK_BASE_URL"`
	Timeout          time.Duration `default:"30s"`
	MaxTokens        int           `envconfig:"MAX_TOKENS" default:"4000"`
	UseMock          bool          `envconfig:"USE_MOCK" default:"false"`
	CatalogFile      string        `envconfig:"CATALOG_FILE"`
	MaxRetries       int           `envconfig:"MAX_RETRIES" default:"2"`
	RateLimit        float64       `envconfig:"RATE_LIMIT" default:"0"`
}

// StoreConfig holds app store configuration
type StoreConfig struct {
	Driver    string `default:"sqlite"`
	DSN       string `envconfig:"DSN" default:"./data/apps.db"`
	CacheSize int    `envconfig:"CACHE_SIZE" default:"128"`
}

// ExportConfig holds generated file export configuration
type ExportConfig struct {
	// Dir is where files are written per app; empty disables disk export
	Dir string `default:"./userapps"`
	S3  S3Config
}

// S3Config enables the object storage exporter when Endpoint is set
type S3Config struct {
	Endpoint  string `envconfig:"ENDPOINT"`
	Region    string `envconfig:"REGION" default:"us-east-1"`
	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
	Bucket    string `envconfig:"BUCKET"`
	UseSSL    bool   `envconfig:"USE_SSL" default:"true"`
}

// GitHubConfig enables publishing to GitHub when Token is set
type GitHubConfig struct {
	Token      string
	Owner      string `envconfig:"OWNER"`
	RepoPrefix string `envconfig:"REPO_PREFIX" default:"nbyapp-"`
	Private    bool   `envconfig:"PRIVATE" default:"false"`
	TempDir    string `envconfig:"TEMP_DIR" default:"./tmp"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// Load loads configuration from .env.local, .env and the environment.
// Variables already set in the environment win over the files.
func Load() (*Config, error) {
	// Missing files are fine
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv decodes the environment without reading dotenv files or validating
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	proxy := strings.TrimRight(c.LLM.ProxyURL, "/")
	if c.LLM.OpenAIBaseURL == "" {
		c.LLM.OpenAIBaseURL = proxy + "/openai"
	}
	if c.LLM.AnthropicBaseURL == "" {
		c.LLM.AnthropicBaseURL = proxy + "/anthropic"
	}
	if c.LLM.DeepSeekBaseURL == "" {
		c.LLM.DeepSeekBaseURL = proxy + "/deepseek"
	}
}

// Validate checks if configuration values are usable
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLM.Timeout)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative")
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("STORE_DSN is required for the %s store", c.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q, must be 'memory', 'sqlite' or 'postgres'", c.Store.Driver)
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("STORE_CACHE_SIZE must not be negative")
	}

	if c.Export.S3.Endpoint != "" && c.Export.S3.Bucket == "" {
		return fmt.Errorf("EXPORT_S3_BUCKET is required when EXPORT_S3_ENDPOINT is set")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Log.Level)
	}

	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
