package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	JWTSecret   string
	InternalKey string
	WSOrigins   []string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	PostmarkToken string
	FromEmail     string
	PublicBaseURL string

	QuietHoursLocation *time.Location

	// Zero disables the job.
	NotificationRetentionDays int
	StaleSubscriptionDays     int
}

// Load reads a .env file when present and then the environment. Only values
// that are set but malformed are errors; everything else has a default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("TRIMQUEST_PORT", "8080"),
		DBPath:    getEnv("TRIMQUEST_DB_PATH", "trimquest.db"),
		LogLevel:  getEnv("TRIMQUEST_LOG_LEVEL", "info"),
		LogFormat: getEnv("TRIMQUEST_LOG_FORMAT", "text"),

		JWTSecret:   os.Getenv("TRIMQUEST_JWT_SECRET"),
		InternalKey: os.Getenv("TRIMQUEST_INTERNAL_KEY"),
		WSOrigins:   splitList(os.Getenv("TRIMQUEST_WS_ORIGINS")),

		VAPIDPublicKey:  os.Getenv("TRIMQUEST_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("TRIMQUEST_VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("TRIMQUEST_VAPID_SUBJECT", "mailto:admin@trimquest.app"),

		PostmarkToken: os.Getenv("TRIMQUEST_POSTMARK_TOKEN"),
		FromEmail:     getEnv("TRIMQUEST_FROM_EMAIL", "notifications@trimquest.app"),
		PublicBaseURL: strings.TrimRight(os.Getenv("TRIMQUEST_PUBLIC_BASE_URL"), "/"),
	}

	var err error
	if cfg.NotificationRetentionDays, err = getEnvInt("TRIMQUEST_NOTIFICATION_RETENTION_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.StaleSubscriptionDays, err = getEnvInt("TRIMQUEST_STALE_SUBSCRIPTION_DAYS", 90); err != nil {
		return nil, err
	}

	cfg.QuietHoursLocation = time.UTC
	if tz := os.Getenv("TRIMQUEST_QUIET_HOURS_TZ"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("TRIMQUEST_QUIET_HOURS_TZ: %w", err)
		}
		cfg.QuietHoursLocation = loc
	}

	return cfg, nil
}

// ValidateServe checks what the HTTP server cannot run without.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return errors.New("TRIMQUEST_JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: want a non-negative integer, got %q", key, value)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
