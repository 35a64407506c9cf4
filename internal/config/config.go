// Package config handles application configuration from environment variables.
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
	"github.com/robfig/cron/v3"
)

const (
	defaultDatabasePath      = "./data/promo_engine.db"
	defaultLogLevel          = "info"
	defaultHTTPAddr          = "127.0.0.1:8002"
	defaultRetentionDays     = 7
	defaultRetentionSchedule = "@daily"
	defaultForwardTimeout    = 10 * time.Second
	defaultForwardRate       = 20.0
	defaultFeedInterval      = 15 * time.Minute
)

// FeedSource is a named RSS/Atom feed polled as a promotion source.
type FeedSource struct {
	Name string
	URL  string
}

// Config holds the application configuration.
type Config struct {
	TelegramBotToken  string
	ForwardChatID     int64
	DatabasePath      string
	LogLevel          string
	AllowedUsers      []int64
	HTTPAddr          string
	RetentionDays     int
	RetentionSchedule string
	ForwardTimeout    time.Duration
	ForwardRate       float64
	FeedSources       []FeedSource
	FeedInterval      time.Duration
}

// LoadEnvFiles pre-loads variables from the given dotenv files, falling back to
// ENV_FILE or ".env". Missing files are skipped and existing variables win.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if f := os.Getenv("ENV_FILE"); f != "" {
			files = []string{f}
		} else {
			files = []string{".env"}
		}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	rawChatID := strings.TrimSpace(os.Getenv("FORWARD_CHAT_ID"))
	if rawChatID == "" {
		return nil, fmt.Errorf("FORWARD_CHAT_ID is required")
	}
	forwardChatID, err := strconv.ParseInt(rawChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FORWARD_CHAT_ID %q: %w", rawChatID, err)
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	retentionDays := defaultRetentionDays
	if raw := os.Getenv("RETENTION_DAYS"); raw != "" {
		retentionDays, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RETENTION_DAYS %q: %w", raw, err)
		}
		if retentionDays <= 0 {
			return nil, fmt.Errorf("RETENTION_DAYS must be positive, got %d", retentionDays)
		}
	}

	schedule := envOrDefault("RETENTION_SCHEDULE", defaultRetentionSchedule)
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid RETENTION_SCHEDULE %q: %w", schedule, err)
	}

	forwardTimeout, err := durationEnv("FORWARD_TIMEOUT", defaultForwardTimeout)
	if err != nil {
		return nil, err
	}

	forwardRate := defaultForwardRate
	if raw := os.Getenv("FORWARD_RATE"); raw != "" {
		forwardRate, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FORWARD_RATE %q: %w", raw, err)
		}
		if forwardRate <= 0 {
			return nil, fmt.Errorf("FORWARD_RATE must be positive, got %v", forwardRate)
		}
	}

	feeds, err := parseFeedSources(os.Getenv("FEED_SOURCES"))
	if err != nil {
		return nil, err
	}

	feedInterval, err := durationEnv("FEED_INTERVAL", defaultFeedInterval)
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken:  token,
		ForwardChatID:     forwardChatID,
		DatabasePath:      envOrDefault("DATABASE_PATH", defaultDatabasePath),
		LogLevel:          envOrDefault("LOG_LEVEL", defaultLogLevel),
		AllowedUsers:      allowedUsers,
		HTTPAddr:          envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		RetentionDays:     retentionDays,
		RetentionSchedule: schedule,
		ForwardTimeout:    forwardTimeout,
		ForwardRate:       forwardRate,
		FeedSources:       feeds,
		FeedInterval:      feedInterval,
	}, nil
}

// RetentionMaxAge returns the retention window as a duration.
func (c *Config) RetentionMaxAge() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

// parseFeedSources parses "name=url,name=url".
func parseFeedSources(raw string) ([]FeedSource, error) {
	var feeds []FeedSource
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, ok := strings.Cut(entry, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid FEED_SOURCES entry %q: want name=url", entry)
		}
		feeds = append(feeds, FeedSource{Name: name, URL: url})
	}
	return feeds, nil
}
