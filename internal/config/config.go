package config

import (
	"os"
	"strconv"

	"datastory/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig `validate:"required"`
	Database DatabaseConfig
	Upload   UploadConfig `validate:"required"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	GinMode string
}

// DatabaseConfig holds optional upload-history persistence settings.
// When URL is empty, history is kept in memory only.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// UploadConfig holds file ingest settings
type UploadConfig struct {
	MaxBytes int64
	TempDir  string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Upload:   loadUploadConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     os.Getenv("DATABASE_URL"),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		MaxBytes: getEnvInt64OrDefault("MAX_UPLOAD_BYTES", 32<<20),
		TempDir:  getEnvOrDefault("UPLOAD_TEMP_DIR", os.TempDir()),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Upload.MaxBytes <= 0 {
		return errors.ConfigInvalid("max upload size must be positive")
	}
	return nil
}

// HistoryEnabled reports whether upload history should persist to Postgres.
func (c *Config) HistoryEnabled() bool {
	return c.Database.URL != ""
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
