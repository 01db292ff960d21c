package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "development",
		Port:                 "8380",
		StorageDriver:        StorageFile,
		StoragePath:          ".revayat",
		RedisURL:             "localhost:6379",
		ImageMaxUploadSizeMB: 10,
		SyncTimeoutSeconds:   15,
		AllowedOrigins:       "*",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown storage driver", func(c *Config) { c.StorageDriver = "mongo" }, true},
		{"file driver without path", func(c *Config) { c.StoragePath = "" }, true},
		{"memory driver without path", func(c *Config) { c.StorageDriver = StorageMemory; c.StoragePath = "" }, false},
		{"redis driver without url", func(c *Config) { c.StorageDriver = StorageRedis; c.RedisURL = "" }, true},
		{"relative remote url", func(c *Config) { c.RemoteAPIBaseURL = "api.example.com" }, true},
		{"ftp remote url", func(c *Config) { c.RemoteAPIBaseURL = "ftp://example.com" }, true},
		{"https remote url", func(c *Config) { c.RemoteAPIBaseURL = "https://example.com/api" }, false},
		{"zero upload size", func(c *Config) { c.ImageMaxUploadSizeMB = 0 }, true},
		{"zero sync timeout", func(c *Config) { c.SyncTimeoutSeconds = 0 }, true},
		{"production memory driver", func(c *Config) { c.Env = "production"; c.StorageDriver = StorageMemory }, true},
		{"production postgres without ssl", func(c *Config) {
			c.Env = "prod"
			c.StorageDriver = StoragePostgres
			c.DBSSLMode = "disable"
		}, true},
		{"production postgres with ssl", func(c *Config) {
			c.Env = "production"
			c.StorageDriver = StoragePostgres
			c.DBSSLMode = "require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	c := validConfig()
	assert.False(t, c.RemoteEnabled())
	c.RemoteAPIBaseURL = "https://example.com"
	assert.True(t, c.RemoteEnabled())
	assert.Equal(t, 15*time.Second, c.SyncTimeout())
	assert.Equal(t, int64(10*1024*1024), c.MaxUploadBytes())
}

func TestLoadConfig_EnvironmentNormalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("STORAGE_DRIVER")
	defer os.Unsetenv("REMOTE_API_BASE_URL")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("STORAGE_DRIVER", "  MEMORY ")
	os.Setenv("REMOTE_API_BASE_URL", "https://example.com/api///")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "https://example.com/api", cfg.RemoteAPIBaseURL)
	assert.Equal(t, "8380", cfg.Port)
}
