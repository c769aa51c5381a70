package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and password parameters.
type AuthConfig struct {
	Secrets                Secrets
	RefreshTokenTTLSeconds int
	BcryptCost             int
}

// CookieConfig controls attributes of the session cookies.
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// RateLimitConfig bounds failed login attempts per email.
type RateLimitConfig struct {
	MaxFailedLogins int
	WindowSeconds   int
}

// Load reads configuration from environment variables, applying defaults where possible.
// Signing secrets have no default and must come from the environment or AUTH_SECRETS_FILE.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	secrets, err := LoadSecrets(os.Getenv("AUTH_SECRETS_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "securehire-auth"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			Secrets:                secrets,
			RefreshTokenTTLSeconds: getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_SECONDS", 86400),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Cookie: CookieConfig{
			Secure:   getEnvAsBool("COOKIE_SECURE", true),
			SameSite: getEnv("COOKIE_SAME_SITE", "Lax"),
			Domain:   os.Getenv("COOKIE_DOMAIN"),
		},
		RateLimit: RateLimitConfig{
			MaxFailedLogins: getEnvAsInt("LOGIN_MAX_FAILED_ATTEMPTS", 5),
			WindowSeconds:   getEnvAsInt("LOGIN_FAILED_WINDOW_SECONDS", 900),
		},
	}

	if cfg.Auth.RefreshTokenTTLSeconds <= int(AccessTokenTTL/time.Second) {
		return nil, fmt.Errorf("AUTH_REFRESH_TOKEN_TTL_SECONDS must exceed the access token lifetime (%s)", AccessTokenTTL)
	}

	return cfg, nil
}

// AccessTokenTTL is fixed; the access cookie Max-Age is derived from it.
const AccessTokenTTL = 900 * time.Second

// RefreshTokenTTL is the single source of truth for refresh token exp and cookie Max-Age.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLSeconds) * time.Second
}

// Window returns the failed-login counting window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
