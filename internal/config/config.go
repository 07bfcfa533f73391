package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Port    string   `mapstructure:"port"`
	Env     string   `mapstructure:"env"`
	APIKeys []string `mapstructure:"api_keys"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ProvidersConfig holds the static identity of each upstream provider.
// Loaded once at startup and read-only afterwards; a missing API key simply
// disables that provider.
type ProvidersConfig struct {
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	SDK        SDKConfig        `mapstructure:"sdk"`
}

type OpenRouterConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	Referer      string `mapstructure:"referer"`
	Title        string `mapstructure:"title"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`

	// AnalysisModel is the per-purpose override used by the document
	// analysis endpoint. Falls back to DefaultModel when empty.
	AnalysisModel string `mapstructure:"analysis_model"`
}

type SDKConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Default Values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("store.dsn", "file:concierge.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Provider keys get empty defaults so viper knows them: Unmarshal only
	// surfaces AutomaticEnv values for registered keys.
	v.SetDefault("providers.openrouter.api_key", "")
	v.SetDefault("providers.openrouter.base_url", "")
	v.SetDefault("providers.openrouter.default_model", "")
	v.SetDefault("providers.openrouter.max_tokens", 1024)
	v.SetDefault("providers.openrouter.referer", "")
	v.SetDefault("providers.openrouter.title", "")
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.base_url", "")
	v.SetDefault("providers.gemini.default_model", "")
	v.SetDefault("providers.gemini.analysis_model", "")
	v.SetDefault("providers.sdk.api_key", "")
	v.SetDefault("providers.sdk.base_url", "")
	v.SetDefault("providers.sdk.default_model", "")

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve API keys. A value of "ENV:NAME" is replaced by the named
	// environment variable, which keeps secrets out of the YAML file.
	cfg.Providers.OpenRouter.APIKey = resolveKey(v, cfg.Providers.OpenRouter.APIKey)
	cfg.Providers.Gemini.APIKey = resolveKey(v, cfg.Providers.Gemini.APIKey)
	cfg.Providers.SDK.APIKey = resolveKey(v, cfg.Providers.SDK.APIKey)

	return &cfg, nil
}

func resolveKey(v *viper.Viper, key string) string {
	if !strings.HasPrefix(key, "ENV:") {
		return key
	}

	envVar := strings.TrimPrefix(key, "ENV:")
	// Process environment wins over other viper sources.
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return v.GetString(envVar)
}
