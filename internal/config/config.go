// Package config loads the TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/pipeline"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	AI         AIConfig         `toml:"ai"`
	Generation GenerationConfig `toml:"generation"`
	Publish    PublishConfig    `toml:"publish"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "postgres"
	Path   string `toml:"path"`   // sqlite file
	DSN    string `toml:"dsn"`    // postgres connection string
}

// AIConfig is the provider used when no model configuration is active in
// the database.
type AIConfig struct {
	ModelName      string   `toml:"model_name"`
	EndpointURL    string   `toml:"endpoint_url"`
	AuthType       string   `toml:"auth_type"`
	APIKeyEnv      string   `toml:"api_key_env"`
	Temperature    *float64 `toml:"temperature"`
	MaxTokens      int      `toml:"max_tokens"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// GenerationConfig holds the pipeline tunables.
type GenerationConfig struct {
	MinWords                  int     `toml:"min_words"`
	MaxWords                  int     `toml:"max_words"`
	TitleSimilarityThreshold  float64 `toml:"title_similarity_threshold"`
	TitleHardStop             float64 `toml:"title_hard_stop"`
	HistoryWindow             int     `toml:"history_window"`
	BankSampleSize            int     `toml:"bank_sample_size"`
	TitleMaxTokens            int     `toml:"title_max_tokens"`
	RetryLengthFactor         float64 `toml:"retry_length_factor"`
	RetryMessageMaxTokensCap  int     `toml:"retry_message_max_tokens_cap"`
	RetryMessageDefaultTokens int     `toml:"retry_message_default_tokens"`
	RetryChatDefaultTokens    int     `toml:"retry_chat_default_tokens"`
}

// PublishConfig holds settings for announcing published posts.
type PublishConfig struct {
	SiteURL string `toml:"site_url"`
	// SocialMode is "none", "http" or "openai".
	SocialMode    string `toml:"social_mode"`
	SocialURL     string `toml:"social_url"`
	SocialModel   string `toml:"social_model"`
	SocialBaseURL string `toml:"social_base_url"`
	SocialAPIKey  string `toml:"social_api_key"`

	WebhookTimeoutSeconds int `toml:"webhook_timeout_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Social generation modes.
const (
	SocialNone   = "none"
	SocialHTTP   = "http"
	SocialOpenAI = "openai"
)

const defaultConfigContent = `[server]
host = "localhost"
port = 8080

[database]
driver = "sqlite"                 # "sqlite" or "postgres"
path = "./data/sprout.db"
dsn = ""                          # postgres only (or set SPROUT_DATABASE_DSN)

[ai]
# Used until a model is activated with "sprout model set".
model_name = "claude-sonnet-4-5"
endpoint_url = "https://api.anthropic.com/v1/messages"
auth_type = "x-api-key"           # "bearer", "x-api-key" or "api-key"
api_key_env = "ANTHROPIC_API_KEY"
timeout_seconds = 300

[generation]
min_words = 1200
max_words = 1800
title_similarity_threshold = 0.85
title_hard_stop = 0.95
history_window = 10
bank_sample_size = 20

[publish]
site_url = "http://localhost:8080"
social_mode = "none"              # "none", "http" or "openai"
social_url = ""
social_model = "gpt-4o-mini"
webhook_timeout_seconds = 15

[log]
level = "info"
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Explicit zeros are errors, not requests for the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}

	positive := []struct {
		key   string
		value int
	}{
		{"min_words", cfg.Generation.MinWords},
		{"max_words", cfg.Generation.MaxWords},
		{"history_window", cfg.Generation.HistoryWindow},
		{"bank_sample_size", cfg.Generation.BankSampleSize},
		{"title_max_tokens", cfg.Generation.TitleMaxTokens},
	}
	for _, p := range positive {
		if md.IsDefined("generation", p.key) && p.value < 1 {
			return fmt.Errorf("invalid generation.%s %d: must be >= 1", p.key, p.value)
		}
	}

	if md.IsDefined("ai", "timeout_seconds") && cfg.AI.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid ai.timeout_seconds %d: must be >= 1", cfg.AI.TimeoutSeconds)
	}
	if md.IsDefined("publish", "webhook_timeout_seconds") && cfg.Publish.WebhookTimeoutSeconds < 1 {
		return fmt.Errorf("invalid publish.webhook_timeout_seconds %d: must be >= 1", cfg.Publish.WebhookTimeoutSeconds)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/sprout.db"
	}

	def := ai.DefaultProviderConfig()
	if cfg.AI.ModelName == "" {
		cfg.AI.ModelName = def.ModelName
	}
	if cfg.AI.EndpointURL == "" {
		cfg.AI.EndpointURL = def.EndpointURL
	}
	if cfg.AI.AuthType == "" {
		cfg.AI.AuthType = string(def.AuthType)
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = def.APIKeyEnv
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 300
	}

	gen := pipeline.DefaultConfig()
	g := &cfg.Generation
	if g.MinWords == 0 {
		g.MinWords = gen.MinWords
	}
	if g.MaxWords == 0 {
		g.MaxWords = gen.MaxWords
	}
	if g.TitleSimilarityThreshold == 0 {
		g.TitleSimilarityThreshold = gen.TitleSimilarityThreshold
	}
	if g.TitleHardStop == 0 {
		g.TitleHardStop = gen.TitleHardStop
	}
	if g.HistoryWindow == 0 {
		g.HistoryWindow = gen.HistoryWindow
	}
	if g.BankSampleSize == 0 {
		g.BankSampleSize = gen.BankSampleSize
	}
	if g.TitleMaxTokens == 0 {
		g.TitleMaxTokens = gen.TitleMaxTokens
	}
	if g.RetryLengthFactor == 0 {
		g.RetryLengthFactor = gen.RetryLengthFactor
	}
	if g.RetryMessageMaxTokensCap == 0 {
		g.RetryMessageMaxTokensCap = gen.RetryMessageMaxTokensCap
	}
	if g.RetryMessageDefaultTokens == 0 {
		g.RetryMessageDefaultTokens = gen.RetryMessageDefaultTokens
	}
	if g.RetryChatDefaultTokens == 0 {
		g.RetryChatDefaultTokens = gen.RetryChatDefaultTokens
	}

	if cfg.Publish.SiteURL == "" {
		cfg.Publish.SiteURL = gen.SiteURL
	}
	if cfg.Publish.SocialMode == "" {
		cfg.Publish.SocialMode = SocialNone
	}
	if cfg.Publish.SocialModel == "" {
		cfg.Publish.SocialModel = "gpt-4o-mini"
	}
	if cfg.Publish.WebhookTimeoutSeconds == 0 {
		cfg.Publish.WebhookTimeoutSeconds = 15
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// Priority for publish.social_api_key:
//  1. SOCIAL_OPENAI_API_KEY (highest)
//  2. OPENAI_API_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPROUT_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SPROUT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SPROUT_SITE_URL"); v != "" {
		cfg.Publish.SiteURL = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Publish.SocialAPIKey = v
	}
	if v := os.Getenv("SOCIAL_OPENAI_API_KEY"); v != "" {
		cfg.Publish.SocialAPIKey = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver (or set SPROUT_DATABASE_DSN)")
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be \"sqlite\" or \"postgres\"", cfg.Database.Driver)
	}

	switch ai.AuthType(cfg.AI.AuthType) {
	case ai.AuthBearer, ai.AuthXAPIKey, ai.AuthAPIKey:
	default:
		return fmt.Errorf("invalid ai.auth_type %q: must be \"bearer\", \"x-api-key\" or \"api-key\"", cfg.AI.AuthType)
	}
	if cfg.AI.MaxTokens < 0 {
		return fmt.Errorf("invalid ai.max_tokens %d: must be >= 0", cfg.AI.MaxTokens)
	}

	g := cfg.Generation
	if g.MinWords > g.MaxWords {
		return fmt.Errorf("invalid generation.min_words %d: must not exceed max_words %d", g.MinWords, g.MaxWords)
	}
	if g.TitleSimilarityThreshold <= 0 || g.TitleSimilarityThreshold > 1 {
		return fmt.Errorf("invalid generation.title_similarity_threshold %g: must be in (0, 1]", g.TitleSimilarityThreshold)
	}
	if g.TitleHardStop < g.TitleSimilarityThreshold || g.TitleHardStop > 1 {
		return fmt.Errorf("invalid generation.title_hard_stop %g: must be between title_similarity_threshold and 1", g.TitleHardStop)
	}
	if g.RetryLengthFactor <= 0 || g.RetryLengthFactor > 1 {
		return fmt.Errorf("invalid generation.retry_length_factor %g: must be in (0, 1]", g.RetryLengthFactor)
	}

	if !strings.HasPrefix(cfg.Publish.SiteURL, "http://") && !strings.HasPrefix(cfg.Publish.SiteURL, "https://") {
		return fmt.Errorf("invalid publish.site_url %q: must be an http(s) URL", cfg.Publish.SiteURL)
	}
	switch cfg.Publish.SocialMode {
	case SocialNone:
	case SocialHTTP:
		if cfg.Publish.SocialURL == "" {
			return errors.New("publish.social_url is required when social_mode is \"http\"")
		}
	case SocialOpenAI:
		if cfg.Publish.SocialAPIKey == "" {
			slog.Warn("publish.social_api_key is empty: set it in the config file or via SOCIAL_OPENAI_API_KEY, social posts will be skipped")
		}
	default:
		return fmt.Errorf("invalid publish.social_mode %q: must be \"none\", \"http\" or \"openai\"", cfg.Publish.SocialMode)
	}

	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}

	if os.Getenv(cfg.AI.APIKeyEnv) == "" {
		slog.Warn("provider api key env var is empty", "env", cfg.AI.APIKeyEnv)
	}

	return nil
}

// Provider returns the default provider configuration.
func (c *Config) Provider() ai.ProviderConfig {
	p := ai.ProviderConfig{
		ModelName:   c.AI.ModelName,
		EndpointURL: c.AI.EndpointURL,
		AuthType:    ai.AuthType(c.AI.AuthType),
		APIKeyEnv:   c.AI.APIKeyEnv,
		Temperature: c.AI.Temperature,
	}
	if c.AI.MaxTokens > 0 {
		tokens := c.AI.MaxTokens
		p.MaxTokens = &tokens
	}
	return p
}

// Pipeline returns the generation settings.
func (c *Config) Pipeline() pipeline.Config {
	p := pipeline.DefaultConfig()
	g := c.Generation
	p.MinWords = g.MinWords
	p.MaxWords = g.MaxWords
	p.TitleSimilarityThreshold = g.TitleSimilarityThreshold
	p.TitleHardStop = g.TitleHardStop
	p.HistoryWindow = g.HistoryWindow
	p.BankSampleSize = g.BankSampleSize
	p.TitleMaxTokens = g.TitleMaxTokens
	p.RetryLengthFactor = g.RetryLengthFactor
	p.RetryMessageMaxTokensCap = g.RetryMessageMaxTokensCap
	p.RetryMessageDefaultTokens = g.RetryMessageDefaultTokens
	p.RetryChatDefaultTokens = g.RetryChatDefaultTokens
	p.SiteURL = c.Publish.SiteURL
	p.DefaultProvider = c.Provider()
	return p
}

// AITimeout is the per-call provider timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// WebhookTimeout bounds social and webhook calls.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Publish.WebhookTimeoutSeconds) * time.Second
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q: must be debug, info, warn or error", s)
	}
	return level, nil
}
