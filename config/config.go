package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DBDriver       string // "postgres" | "sqlite"
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBTimeZone     string
	SQLitePath     string
	DBTimeout      time.Duration
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration

	BodyLimitBytes  int
	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration
	ShutdownTimeout time.Duration

	FallbackEnabled bool
	FallbackOnEmpty bool

	AdminJWTSecret string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	// Fiber default BodyLimit is 4 MB; BODY_LIMIT_BYTES wins over BODY_LIMIT_MB.
	bodyLimit := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimit <= 0 {
		bodyLimit = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	return Config{
		Port:     envString("PORT", "8080"),
		Env:      envString("APP_ENV", "development"),
		LogLevel: envString("LOG_LEVEL", "info"),

		DBDriver:       strings.ToLower(envString("DB_DRIVER", "postgres")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBHost:         envString("DB_HOST", "localhost"),
		DBPort:         envString("DB_PORT", "5432"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         envString("DB_NAME", "yellowpages"),
		DBSSLMode:      envString("DB_SSLMODE", "disable"),
		DBTimeZone:     envString("DB_TIMEZONE", "UTC"),
		SQLitePath:     envString("SQLITE_PATH", "yellowpages.db"),
		DBTimeout:      time.Duration(envInt("DB_TIMEOUT_SECONDS", 5)) * time.Second,
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 1),
		DBConnLifetime: time.Duration(envInt("DB_CONN_LIFETIME_SECONDS", 300)) * time.Second,

		BodyLimitBytes:  bodyLimit,
		AllowedOrigins:  envString("ALLOWED_ORIGINS", "*"),
		RateLimitMax:    envInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		ShutdownTimeout: time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,

		FallbackEnabled: envBool("FALLBACK_ENABLED", true),
		FallbackOnEmpty: envBool("FALLBACK_ON_EMPTY", true),

		AdminJWTSecret: strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET")),
	}
}

// PostgresDSN returns DATABASE_URL or a key/value DSN built from DB_* vars.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.DBTimeZone)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
