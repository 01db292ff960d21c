// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers for local durable state and remote documents.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env                  string `mapstructure:"APP_ENV"`
	Port                 string `mapstructure:"PORT"`
	RemoteAPIBaseURL     string `mapstructure:"REMOTE_API_BASE_URL"`
	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	StoragePath          string `mapstructure:"STORAGE_PATH"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	DBHost               string `mapstructure:"DB_HOST"`
	DBPort               string `mapstructure:"DB_PORT"`
	DBUser               string `mapstructure:"DB_USER"`
	DBPassword           string `mapstructure:"DB_PASSWORD"`
	DBName               string `mapstructure:"DB_NAME"`
	DBSSLMode            string `mapstructure:"DB_SSLMODE"`
	UploadDir            string `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL        string `mapstructure:"PUBLIC_BASE_URL"`
	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	SyncTimeoutSeconds   int    `mapstructure:"SYNC_TIMEOUT_SECONDS"`
	AllowedOrigins       string `mapstructure:"ALLOWED_ORIGINS"`
	TracingEnabled       bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter      string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint         string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read profile config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8380")
	viper.SetDefault("REMOTE_API_BASE_URL", "")
	viper.SetDefault("STORAGE_DRIVER", StorageFile)
	viper.SetDefault("STORAGE_PATH", ".revayat")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "revayat")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("PUBLIC_BASE_URL", "")
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)
	viper.SetDefault("SYNC_TIMEOUT_SECONDS", 15)
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.RemoteAPIBaseURL = strings.TrimRight(strings.TrimSpace(c.RemoteAPIBaseURL), "/")
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.StorageDriver {
	case StorageMemory, StorageFile, StorageRedis, StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if (c.StorageDriver == StorageFile || c.StorageDriver == StorageSQLite) && c.StoragePath == "" {
		return fmt.Errorf("STORAGE_PATH is required for the %s driver", c.StorageDriver)
	}
	if c.StorageDriver == StorageRedis && c.RedisURL == "" {
		return errors.New("REDIS_URL is required for the redis driver")
	}

	if c.RemoteAPIBaseURL != "" {
		u, err := url.Parse(c.RemoteAPIBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("REMOTE_API_BASE_URL must be an absolute http(s) URL, got %q", c.RemoteAPIBaseURL)
		}
	}

	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.SyncTimeoutSeconds <= 0 {
		return errors.New("SYNC_TIMEOUT_SECONDS must be positive")
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction {
		if c.StorageDriver == StorageMemory {
			return errors.New("the memory storage driver loses data and is not allowed in production")
		}
		if c.StorageDriver == StoragePostgres && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			return errors.New("DB_SSLMODE must not be 'disable' in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production.")
		}
	}

	return nil
}

// RemoteEnabled reports whether a remote collaborator is configured.
func (c *Config) RemoteEnabled() bool {
	return c.RemoteAPIBaseURL != ""
}

// SyncTimeout is the per-request timeout for remote synchronization.
func (c *Config) SyncTimeout() time.Duration {
	return time.Duration(c.SyncTimeoutSeconds) * time.Second
}

// MaxUploadBytes is the largest decoded image the upload relay accepts.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.ImageMaxUploadSizeMB) * 1024 * 1024
}
