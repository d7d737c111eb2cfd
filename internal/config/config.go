package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Config holds all process settings. It is built once at startup and passed
// by reference into every component; nothing mutates it after Load.
type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// JWT settings
	JWTSecret              string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration

	// Encryption settings
	// AESSecret derives the AES-256-GCM key for refresh tokens at rest.
	// HMACSecret keys the blind-index digest for equality lookups.
	AESSecret  string
	HMACSecret string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Cookie settings for the web flows.
	// CookieSecure defaults to false for local development; production
	// deployments behind TLS should enable it.
	CookieSecure bool
	CookieDomain string

	// Rate limiting
	EnableRateLimit  bool
	LoginRateLimit   int    // requests per minute on login endpoints
	RefreshRateLimit int    // requests per minute on refresh endpoints
	RateLimitStore   string // "memory" or "redis"
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Metrics
	MetricsEnabled bool
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "auth.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),

		JWTSecret:              getEnv("JWT_SECRET", "your-256-bit-secret-change-in-production"),
		AccessTokenExpiration:  getEnvDuration("ACCESS_TOKEN_EXPIRATION", 10*time.Minute),
		RefreshTokenExpiration: getEnvDuration("REFRESH_TOKEN_EXPIRATION", 168*time.Hour), // 7 days

		AESSecret:  getEnv("AES_SECRET", "aes-secret-change-in-production"),
		HMACSecret: getEnv("HMAC_SECRET", "hmac-secret-change-in-production"),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		CookieSecure: getEnvBool("COOKIE_SECURE", false),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),

		EnableRateLimit:  getEnvBool("ENABLE_RATE_LIMIT", true),
		LoginRateLimit:   getEnvInt("LOGIN_RATE_LIMIT", 10),
		RefreshRateLimit: getEnvInt("REFRESH_RATE_LIMIT", 30),
		RateLimitStore:   getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.AESSecret == "" {
		return errors.New("AES_SECRET must not be empty")
	}
	if c.HMACSecret == "" {
		return errors.New("HMAC_SECRET must not be empty")
	}
	if c.AESSecret == c.HMACSecret {
		return errors.New("AES_SECRET and HMAC_SECRET must differ")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must not be empty")
	}
	if c.AccessTokenExpiration <= 0 || c.RefreshTokenExpiration <= 0 {
		return errors.New("token expirations must be positive")
	}
	if c.RefreshTokenExpiration <= c.AccessTokenExpiration {
		return errors.New("refresh token expiration must exceed access token expiration")
	}
	if c.RateLimitStore != RateLimitStoreMemory && c.RateLimitStore != RateLimitStoreRedis {
		return fmt.Errorf("unsupported rate limit store: %s", c.RateLimitStore)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
