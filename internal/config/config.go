// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

type Config struct {
	// Service
	APIBaseURL   string
	AuthBaseURL  string
	PhotoBaseURL string

	// Client behaviour
	Platform       string
	RequestTimeout time.Duration
	AuthTimeout    time.Duration
	DetectTimeout  time.Duration
	BulkPhotoField string

	// Credentials and local state
	TokenStore  string
	TokenFile   string
	RedisAddr   string
	ResultCache bool
	DatabaseDSN string

	// Logging
	LogLevel    string
	Environment string

	// Development server
	DevServerAddr string
	JWTSecret     string
}

// Load reads .env when present, then the environment, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var parseErrs []error
	duration := func(key string, fallback time.Duration) time.Duration {
		d, err := getDuration(key, fallback)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return d
	}

	apiBase := getEnv("API_BASE_URL", "http://localhost:3000")
	cfg := &Config{
		APIBaseURL:   apiBase,
		AuthBaseURL:  getEnv("AUTH_BASE_URL", apiBase),
		PhotoBaseURL: getEnv("PHOTO_BASE_URL", ""),

		Platform:       strings.ToLower(getEnv("PLATFORM", "android")),
		RequestTimeout: duration("REQUEST_TIMEOUT", 20*time.Second),
		AuthTimeout:    duration("AUTH_TIMEOUT", 10*time.Second),
		DetectTimeout:  duration("DETECT_TIMEOUT", 30*time.Second),
		BulkPhotoField: getEnv("BULK_PHOTO_FIELD", "photo"),

		TokenStore:  strings.ToLower(getEnv("TOKEN_STORE", TokenStoreFile)),
		TokenFile:   getEnv("TOKEN_FILE", defaultTokenFile()),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DevServerAddr: getEnv("DEVSERVER_ADDR", ":3000"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret"),
	}

	resultCache, err := getBool("RESULT_CACHE", false)
	if err != nil {
		parseErrs = append(parseErrs, err)
	}
	cfg.ResultCache = resultCache

	if len(parseErrs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(parseErrs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for key, raw := range map[string]string{"API_BASE_URL": c.APIBaseURL, "AUTH_BASE_URL": c.AuthBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	switch c.Platform {
	case "android", "ios":
	default:
		return fmt.Errorf("PLATFORM must be android or ios, got %q", c.Platform)
	}
	switch c.TokenStore {
	case TokenStoreFile, TokenStoreRedis, TokenStoreMemory:
	default:
		return fmt.Errorf("TOKEN_STORE must be file, redis or memory, got %q", c.TokenStore)
	}
	if c.TokenStore == TokenStoreFile && c.TokenFile == "" {
		return fmt.Errorf("TOKEN_FILE is required when TOKEN_STORE=file")
	}
	if (c.TokenStore == TokenStoreRedis || c.ResultCache) && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	switch c.BulkPhotoField {
	case "photo", "photos":
	default:
		return fmt.Errorf("BULK_PHOTO_FIELD must be photo or photos, got %q", c.BulkPhotoField)
	}
	if c.RequestTimeout <= 0 || c.AuthTimeout <= 0 || c.DetectTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// Production reports whether the JSON production logger should be used.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".viewlulu", "token")
}
