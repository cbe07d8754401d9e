package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Dataset   DatasetConfig
	Matching  MatchingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatasetConfig holds price-catalog source configuration
type DatasetConfig struct {
	URL       string        `mapstructure:"url"`
	CacheDir  string        `mapstructure:"cache_dir"`
	LocalFile string        `mapstructure:"local_file"` // bypasses downloading when set
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MatchingConfig holds fuzzy-matching configuration
type MatchingConfig struct {
	MinScore           float64  `mapstructure:"min_score"`
	DefaultLimit       int      `mapstructure:"default_limit"`
	Workers            int      `mapstructure:"workers"`
	NoiseTokens        []string `mapstructure:"noise_tokens"`
	EnableDebugLogging bool     `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricewatch/")

	// Environment variable settings
	v.SetEnvPrefix("PRICEWATCH")
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
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Dataset defaults
	v.SetDefault("dataset.url", "https://cdnarfigyeloprodweu.azureedge.net/excel/arfigyelo_napi_termekadatok.xlsx")
	v.SetDefault("dataset.timeout", "60s")

	// Matching defaults
	v.SetDefault("matching.min_score", 45.0)
	v.SetDefault("matching.default_limit", 5)
	v.SetDefault("matching.workers", 0) // 0 = derive from CPU count

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Dataset.URL == "" && config.Dataset.LocalFile == "" {
		return fmt.Errorf("a dataset URL or local file is required (set PRICEWATCH_DATASET_URL)")
	}

	if config.Matching.MinScore < 0 || config.Matching.MinScore > 100 {
		return fmt.Errorf("matching min_score must be within [0, 100], got: %v", config.Matching.MinScore)
	}

	if config.Matching.DefaultLimit < 1 {
		return fmt.Errorf("matching default_limit must be positive, got: %d", config.Matching.DefaultLimit)
	}

	return nil
}
