// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the GuestReport client and the dev backend.
type Config struct {
	// Backend API (client side)
	APIBaseURL string        `mapstructure:"API_BASE_URL"`
	APITimeout time.Duration `mapstructure:"API_TIMEOUT_SECONDS"`

	// Tab-scoped session storage
	SessionStore string `mapstructure:"SESSION_STORE"`
	SessionDir   string `mapstructure:"SESSION_DIR"`
	SessionScope string `mapstructure:"SESSION_SCOPE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Google sign-in (CLI code exchange and dev backend verification)
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`
	GoogleJWKSURL      string `mapstructure:"GOOGLE_JWKS_URL"`

	// GoogleJWKSRefreshSchedule is a cron spec; empty disables the refresh job.
	GoogleJWKSRefreshSchedule string `mapstructure:"GOOGLE_JWKS_REFRESH_SCHEDULE"`

	// Dev backend server
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Dev backend database
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	SeedDemoData      bool          `mapstructure:"SEED_DEMO_DATA"`

	// Dev backend token issuance
	JWTSecretKey                string        `mapstructure:"JWT_SECRET_KEY"`
	JWTAccessTokenExpiryMinutes time.Duration `mapstructure:"JWT_ACCESS_TOKEN_EXPIRY_MINUTES"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Session store kinds accepted in SESSION_STORE.
const (
	SessionStoreMemory = "memory"
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
)

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.APITimeout = time.Duration(v.GetInt("API_TIMEOUT_SECONDS")) * time.Second
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.JWTAccessTokenExpiryMinutes = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES")) * time.Minute

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_BASE_URL", "https://localhost:44376/api/")
	v.SetDefault("API_TIMEOUT_SECONDS", 0) // 0 leaves the transport default in charge

	v.SetDefault("SESSION_STORE", SessionStoreFile)
	v.SetDefault("SESSION_DIR", defaultSessionDir())
	v.SetDefault("SESSION_SCOPE", "")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:5173")
	v.SetDefault("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs")
	v.SetDefault("GOOGLE_JWKS_REFRESH_SCHEDULE", "@every 30m")

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "44376")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_SQLITE_PATH", "guestreport_dev.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "guestreport_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("SEED_DEMO_DATA", true)

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

func (c *Config) validate() error {
	switch strings.ToLower(c.SessionStore) {
	case SessionStoreMemory, SessionStoreFile, SessionStoreRedis:
		c.SessionStore = strings.ToLower(c.SessionStore)
	default:
		return fmt.Errorf("SESSION_STORE must be one of memory, file, redis (got %q)", c.SessionStore)
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("API_BASE_URL is not set")
	}
	return nil
}

// DSN builds the postgres DSN from the individual DB_* parameters.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}

func defaultSessionDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "guestreport" + string(os.PathSeparator) + "tabs"
	}
	return ".guestreport/tabs"
}
