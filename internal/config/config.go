package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port           string
	LogLevel       string
	StoreDriver    string
	DBConn         string
	MaxUploadBytes int64
	CORSOrigin     string
	AuthSecret     string
	DefaultZ       float64
	DigestSchedule string
	DigestZ        float64
	DigestTo       string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SenderEmail    string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "5050"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		StoreDriver:    getEnv("STORE_DRIVER", "memory"),
		DBConn:         getEnv("DB_CONN", ""),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		AuthSecret:     getEnv("AUTH_SECRET", ""),
		DigestSchedule: getEnv("DIGEST_SCHEDULE", ""),
		DigestTo:       getEnv("DIGEST_TO", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "insights@localhost"),
	}

	var err error
	if cfg.MaxUploadBytes, err = strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "5242880"), 10, 64); err != nil || cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer")
	}
	if cfg.DefaultZ, err = parseFinite("DEFAULT_Z", "2.5"); err != nil {
		return nil, err
	}
	if cfg.DigestZ, err = parseFinite("DIGEST_Z", "2.5"); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required for the postgres store")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be memory, sqlite or postgres, got %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// MailEnabled reports whether digests can be delivered by SMTP
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.DigestTo != ""
}

func parseFinite(key, defaultVal string) (float64, error) {
	v, err := strconv.ParseFloat(getEnv(key, defaultVal), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", key)
	}
	return v, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
