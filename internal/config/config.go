package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all runtime settings for the application.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	Database DatabaseConfig
	Auth     AuthConfig
	Media    MediaConfig
	Security SecurityConfig

	RabbitMQURL string
}

// DatabaseConfig selects the GORM driver and its DSN.
type DatabaseConfig struct {
	Driver string // "sqlite", "postgres" or "mysql"
	DSN    string
}

// AuthConfig holds session token and bootstrap admin settings.
type AuthConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	AdminUsername string
	AdminPassword string
}

// MediaConfig controls where uploaded thumbnails live and how they are served.
type MediaConfig struct {
	Root           string
	URL            string
	MaxUploadBytes int64
}

// SecurityConfig groups cookie, CSRF and rate limit knobs.
type SecurityConfig struct {
	CookieSecure       bool
	CSRFEnabled        bool
	LoginRatePerMinute int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "bookreview.db")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("MEDIA_URL", "/media")
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 10)
	v.SetDefault("RABBITMQ_URL", "")
}

// Load reads configuration from an optional config.yaml and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:      strings.ToLower(v.GetString("APP_ENV")),
		Port:     v.GetString("APP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET"),
			SessionTTL:    v.GetDuration("SESSION_TTL"),
			AdminUsername: v.GetString("ADMIN_USERNAME"),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
		},
		Media: MediaConfig{
			Root:           v.GetString("MEDIA_ROOT"),
			URL:            strings.TrimRight(v.GetString("MEDIA_URL"), "/"),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		},
		Security: SecurityConfig{
			CookieSecure:       v.GetBool("COOKIE_SECURE"),
			CSRFEnabled:        v.GetBool("CSRF_ENABLED"),
			LoginRatePerMinute: v.GetInt("LOGIN_RATE_PER_MINUTE"),
		},
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that required values are present and consistent.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "test", "production":
	default:
		return fmt.Errorf("invalid APP_ENV %q (must be development, test or production)", c.Env)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is required")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Auth.SessionTTL)
	}

	if c.Media.Root == "" {
		return errors.New("MEDIA_ROOT is required")
	}
	if !strings.HasPrefix(c.Media.URL, "/") {
		return fmt.Errorf("MEDIA_URL must be an absolute path, got %q", c.Media.URL)
	}
	if c.Media.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Security.LoginRatePerMinute <= 0 {
		return errors.New("LOGIN_RATE_PER_MINUTE must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
