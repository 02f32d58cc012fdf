package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StorageType controls the load telemetry backend.
type StorageType string

const (
	StorageSQLite StorageType = "sqlite"
	StorageMemory StorageType = "memory"
	StorageOff    StorageType = "off"
)

// Config contains all runtime configuration for the history service.
type Config struct {
	// Core
	ListenAddr string
	APIURL     string
	LogLevel   string

	// Session collaborators
	TokenCookie string
	LoginURL    string

	// Upstream
	RequestTimeout time.Duration
	APIRateLimit   float64 // history requests per second, 0 = unlimited
	APIRateBurst   int

	// Mounted views
	ViewTTL         time.Duration
	ViewsPerSession int // 0 = unlimited

	// Telemetry storage
	Storage        StorageType
	StoragePath    string
	StorageMaxRows int

	// Observability
	MetricsEnabled      bool
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}

// Load reads an optional .env file, parses env vars and returns a validated Config.
//
// Variables already present in the environment take precedence over the file.
func Load() (Config, error) {
	envFile := getEnvString("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		ListenAddr: getEnvString("LISTEN_ADDR", ":8080"),
		// VITE_API_URL is what the frontend build used; accept it so one .env serves both.
		APIURL:   getEnvString("API_URL", getEnvString("VITE_API_URL", "http://127.0.0.1:8000")),
		LogLevel: getEnvString("LOG_LEVEL", "info"),

		TokenCookie: getEnvString("TOKEN_COOKIE", "token"),
		LoginURL:    getEnvString("LOGIN_URL", "/login"),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 0),
		APIRateLimit:   getEnvFloat("API_RATE_LIMIT", 0),
		APIRateBurst:   getEnvInt("API_RATE_BURST", 5),

		ViewTTL:         getEnvDuration("VIEW_TTL", 30*time.Minute),
		ViewsPerSession: getEnvInt("VIEWS_PER_SESSION", 4),

		Storage:        StorageType(getEnvString("STORAGE", string(StorageMemory))),
		StoragePath:    getEnvString("STORAGE_PATH", "data/history.sqlite"),
		StorageMaxRows: getEnvInt("STORAGE_MAX_ROWS", 3000),

		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		HealthCheckTimeout:  getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks configuration constraints.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API_URL: %q (scheme must be http or https)", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid API_URL: %q (missing host)", c.APIURL)
	}

	if strings.TrimSpace(c.TokenCookie) == "" {
		return fmt.Errorf("TOKEN_COOKIE must not be empty")
	}
	if c.LoginURL == "" {
		return fmt.Errorf("LOGIN_URL must not be empty")
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be >= 0")
	}
	if c.APIRateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must be >= 0")
	}
	if c.APIRateLimit > 0 && c.APIRateBurst < 1 {
		return fmt.Errorf("API_RATE_BURST must be >= 1 when API_RATE_LIMIT is set")
	}
	if c.ViewTTL <= 0 {
		return fmt.Errorf("VIEW_TTL must be > 0")
	}
	if c.ViewsPerSession < 0 {
		return fmt.Errorf("VIEWS_PER_SESSION must be >= 0")
	}

	switch c.Storage {
	case StorageSQLite, StorageMemory, StorageOff:
		// ok
	default:
		return fmt.Errorf("invalid STORAGE: %q (must be sqlite|memory|off)", c.Storage)
	}
	if c.StorageMaxRows < 100 {
		return fmt.Errorf("STORAGE_MAX_ROWS must be >= 100")
	}
	if c.Storage == StorageSQLite && c.StoragePath == "" {
		return fmt.Errorf("STORAGE_PATH must be set when STORAGE=sqlite")
	}

	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("HEALTH_CHECK_INTERVAL must be > 0")
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be > 0")
	}

	return nil
}

// Helper functions for parsing environment variables

func getEnvString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
