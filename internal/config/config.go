// Package config loads and validates runtime configuration at startup.
// Fail-fast: if a required setting is missing, the command exits with an error.
//
// Settings come, in increasing precedence, from built-in defaults, an
// optional YAML file (bizmatch.yaml), a .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"bizmatch/internal/matcher"
)

const app = "bizmatch"

// Config holds all runtime configuration for the engagement service and the
// recommendation refresher.
type Config struct {
	DatabaseURL string `mapstructure:"database-url"`
	RedisURL    string `mapstructure:"redis-url"`

	Port     string `mapstructure:"port"`
	GRPCPort string `mapstructure:"grpc-port"`

	JWTSecret string `mapstructure:"jwt-secret"`

	ProfitShareRatio      float64 `mapstructure:"profit-share-ratio"`
	DefaultAssignmentType string  `mapstructure:"default-assignment-type"`

	RecommendIntervalHours int `mapstructure:"recommend-interval-hours"` // how often the cron job fires
	RecommendCacheTTLHours int `mapstructure:"recommend-cache-ttl-hours"`
}

// env maps each key to the variable it is read from.
var env = map[string]string{
	"database-url":              "DATABASE_URL",
	"redis-url":                 "REDIS_URL",
	"port":                      "ENGAGEMENT_PORT",
	"grpc-port":                 "ENGAGEMENT_GRPC_PORT",
	"jwt-secret":                "JWT_SECRET",
	"profit-share-ratio":        "PROFIT_SHARE_RATIO",
	"default-assignment-type":   "DEFAULT_ASSIGNMENT_TYPE",
	"recommend-interval-hours":  "RECOMMEND_INTERVAL_HOURS",
	"recommend-cache-ttl-hours": "RECOMMEND_CACHE_TTL_HOURS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8082")
	v.SetDefault("grpc-port", "9082")
	v.SetDefault("profit-share-ratio", matcher.DefaultShareRatio)
	v.SetDefault("default-assignment-type", "ongoing")
	v.SetDefault("recommend-interval-hours", 6)
	v.SetDefault("recommend-cache-ttl-hours", 12)
}

// Load reads configuration into a Config. file may be empty, in which case
// bizmatch.yaml is looked up in the working directory and skipped if absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("binding %s environment variable: %w", name, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.DefaultAssignmentType = strings.TrimSpace(cfg.DefaultAssignmentType)
	return &cfg, nil
}

// ValidateDatabase checks the settings of commands that only talk to
// PostgreSQL.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks the settings the API server and the refresher share.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if err := c.SplitPolicy().Validate(); err != nil {
		return fmt.Errorf("PROFIT_SHARE_RATIO: %w", err)
	}
	if c.DefaultAssignmentType == "" {
		return fmt.Errorf("DEFAULT_ASSIGNMENT_TYPE must not be empty")
	}
	if c.RecommendIntervalHours < 1 {
		return fmt.Errorf("RECOMMEND_INTERVAL_HOURS must be a positive integer, got %d", c.RecommendIntervalHours)
	}
	if c.RecommendCacheTTLHours < 1 {
		return fmt.Errorf("RECOMMEND_CACHE_TTL_HOURS must be a positive integer, got %d", c.RecommendCacheTTLHours)
	}
	return nil
}

// ValidateServe additionally checks the settings of the API server.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Port == "" || c.GRPCPort == "" {
		return fmt.Errorf("ENGAGEMENT_PORT and ENGAGEMENT_GRPC_PORT must not be empty")
	}
	return nil
}

// SplitPolicy returns the configured profit split.
func (c *Config) SplitPolicy() matcher.SplitPolicy {
	return matcher.SplitPolicy{ShareRatio: c.ProfitShareRatio}
}

// RecommendInterval is the refresher's cron period.
func (c *Config) RecommendInterval() time.Duration {
	return time.Duration(c.RecommendIntervalHours) * time.Hour
}

// RecommendCacheTTL is how long a cached recommendation list stays valid.
func (c *Config) RecommendCacheTTL() time.Duration {
	return time.Duration(c.RecommendCacheTTLHours) * time.Hour
}
