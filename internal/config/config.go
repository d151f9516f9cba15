package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cesargomez89/xcc-relay/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	DBDriver string
	DBPath   string
	DBHost   string
	DBPort   string
	DBUser   string
	DBPass   string
	DBName   string

	// WebhookSecret enables HMAC verification of inbound webhooks.
	// Empty disables verification entirely (open mode).
	WebhookSecret string

	APNSTeamID               string
	APNSKeyID                string
	APNSPrivateKeyPEM        string
	APNSPrivateKeyPath       string
	APNSPrivateKeyPassphrase string
	APNSUseSandbox           bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", constants.DefaultPort),
		LogLevel:  getEnv("LOG_LEVEL", constants.DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", constants.DefaultLogFormat),

		DBDriver: getEnv("DB_DRIVER", constants.DefaultDBDriver),
		DBPath:   getEnv("DB_PATH", constants.DefaultDBPath),
		DBHost:   getEnv("DB_HOST", constants.DefaultDBHost),
		DBPort:   getEnv("DB_PORT", constants.DefaultDBPort),
		DBUser:   getEnv("DB_USER", ""),
		DBPass:   getEnv("DB_PASS", ""),
		DBName:   getEnv("DB_NAME", ""),

		WebhookSecret: getEnv("XCC_WEBHOOK_SECRET", ""),

		APNSTeamID:               strings.TrimSpace(getEnv("APNS_TEAM_ID", "")),
		APNSKeyID:                strings.TrimSpace(getEnv("APNS_KEY_ID", "")),
		APNSPrivateKeyPEM:        strings.TrimSpace(getEnv("APNS_PRIVATE_KEY_PEM", "")),
		APNSPrivateKeyPath:       strings.TrimSpace(getEnv("APNS_PRIVATE_KEY_PATH", "")),
		APNSPrivateKeyPassphrase: getEnv("APNS_PRIVATE_KEY_PASSPHRASE", ""),
		APNSUseSandbox:           parseBool(getEnv("APNS_USE_SANDBOX", "")),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	// Validate DB settings per driver
	switch c.DBDriver {
	case "mysql":
		if c.DBHost == "" {
			errors = append(errors, "DB_HOST cannot be empty")
		}
		if c.DBName == "" {
			errors = append(errors, "DB_NAME cannot be empty when DB_DRIVER is mysql")
		}
		if _, err := strconv.Atoi(c.DBPort); err != nil {
			errors = append(errors, fmt.Sprintf("DB_PORT must be a valid number, got: %s", c.DBPort))
		}
	case "sqlite":
		if c.DBPath == "" {
			errors = append(errors, "DB_PATH cannot be empty when DB_DRIVER is sqlite")
		}
	default:
		errors = append(errors, fmt.Sprintf("DB_DRIVER must be one of: mysql, sqlite, got: %s", c.DBDriver))
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// parseBool interprets the boolean-like values accepted for APNS_USE_SANDBOX.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
