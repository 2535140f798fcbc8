package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Scrape     ScrapeConfig
	AntiBot    AntiBotConfig
	Matching   MatchingConfig
	Normalizer NormalizerConfig
	Cache      CacheConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ScrapeConfig holds retailer scraping configuration
type ScrapeConfig struct {
	AdapterTimeout  time.Duration `mapstructure:"adapter_timeout"` // per-adapter deadline
	RequestTimeout  time.Duration `mapstructure:"request_timeout"` // single HTTP request
	DefaultMaxPages int           `mapstructure:"default_max_pages"`
	Retailers       []string      `mapstructure:"retailers"`
}

// AntiBotConfig holds identity rotation and pacing configuration
type AntiBotConfig struct {
	MinDelay          time.Duration `mapstructure:"min_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // per retailer
	Proxies           []string      `mapstructure:"proxies"`
	ExtraUserAgents   []string      `mapstructure:"extra_user_agents"`
}

// MatchingConfig holds product matching configuration.
// The threshold and weights approximate real retail data imperfectly; they
// are configuration rather than constants so they can be tuned empirically.
type MatchingConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	BrandBonus          float64 `mapstructure:"brand_bonus"`
	CategoryBonus       float64 `mapstructure:"category_bonus"`
	SpecWeight          float64 `mapstructure:"spec_weight"`
	PricePenalty        float64 `mapstructure:"price_penalty"`
	EnableDebugLogging  bool    `mapstructure:"enable_debug_logging"`
}

// NormalizerConfig holds listing normalization configuration
type NormalizerConfig struct {
	// AssumeInStock controls whether a listing with no stock cue is treated
	// as available. Defaults to true so results are not over-filtered.
	AssumeInStock bool `mapstructure:"assume_in_stock"`
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/thamani/")

	// Environment variable settings, e.g. THAMANI_SERVER_PORT=9090
	v.SetEnvPrefix("THAMANI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Scrape defaults
	v.SetDefault("scrape.adapter_timeout", "12s")
	v.SetDefault("scrape.request_timeout", "15s")
	v.SetDefault("scrape.default_max_pages", 2)
	v.SetDefault("scrape.retailers", []string{"jumia", "kilimall", "jiji", "masoko"})

	// Anti-bot defaults
	v.SetDefault("antibot.min_delay", "500ms")
	v.SetDefault("antibot.max_delay", "2s")
	v.SetDefault("antibot.requests_per_second", 0.5)

	// Matching defaults
	v.SetDefault("matching.similarity_threshold", 0.75)
	v.SetDefault("matching.brand_bonus", 0.2)
	v.SetDefault("matching.category_bonus", 0.1)
	v.SetDefault("matching.spec_weight", 0.15)
	v.SetDefault("matching.price_penalty", 0.1)
	v.SetDefault("matching.enable_debug_logging", false)

	// Normalizer defaults
	v.SetDefault("normalizer.assume_in_stock", true)

	// Cache defaults: short TTL because prices are time-sensitive
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")
}

// validate validates the configuration
func validate(config *Config) error {
	if len(config.Scrape.Retailers) == 0 {
		return fmt.Errorf("at least one retailer must be configured")
	}

	if config.Scrape.AdapterTimeout <= 0 {
		return fmt.Errorf("scrape adapter_timeout must be positive, got: %s", config.Scrape.AdapterTimeout)
	}

	if config.Matching.SimilarityThreshold <= 0 || config.Matching.SimilarityThreshold > 1 {
		return fmt.Errorf("matching similarity_threshold must be in (0, 1], got: %f", config.Matching.SimilarityThreshold)
	}

	if config.AntiBot.MinDelay > config.AntiBot.MaxDelay {
		return fmt.Errorf("antibot min_delay (%s) cannot exceed max_delay (%s)", config.AntiBot.MinDelay, config.AntiBot.MaxDelay)
	}

	return nil
}
