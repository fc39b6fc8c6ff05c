// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	// Admins may manage community filters via the /community commands.
	Admins []int64

	// MaxMessageLength caps a single notification message; chunking
	// happens on listing boundaries below this ceiling.
	MaxMessageLength int

	ScrapeInterval      time.Duration
	ChannelPollInterval time.Duration
	RetentionDays       int

	// Channels lists the monitored channel IDs, polled round-robin.
	Channels []int64
	// ChannelNames maps a channel ID to its public username, used to
	// build t.me links back to the original post.
	ChannelNames map[int64]string
}

// Load reads configuration from a .env file (if present) and the
// environment. Only the bot token is required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/rentbot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	maxLen, err := intEnv("MAX_MESSAGE_LENGTH", 3500)
	if err != nil {
		return nil, err
	}

	scrapeInterval, err := durationEnv("SCRAPE_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	pollInterval, err := durationEnv("CHANNEL_POLL_INTERVAL", 90*time.Second)
	if err != nil {
		return nil, err
	}

	retentionDays, err := intEnv("RETENTION_DAYS", 3)
	if err != nil {
		return nil, err
	}

	allowed, err := idListEnv("ALLOWED_USERS")
	if err != nil {
		return nil, err
	}
	admins, err := idListEnv("ADMIN_USERS")
	if err != nil {
		return nil, err
	}
	channels, err := idListEnv("CHANNELS")
	if err != nil {
		return nil, err
	}

	names, err := channelNamesEnv("CHANNEL_NAMES")
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken:    token,
		DatabasePath:        dbPath,
		LogLevel:            logLevel,
		AllowedUsers:        allowed,
		Admins:              admins,
		MaxMessageLength:    maxLen,
		ScrapeInterval:      scrapeInterval,
		ChannelPollInterval: pollInterval,
		RetentionDays:       retentionDays,
		Channels:            channels,
		ChannelNames:        names,
	}, nil
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

// IsAdmin checks whether a user ID may manage community filters.
// Unlike the allow list, an empty admin list permits no one.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func idListEnv(key string) ([]int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q in %s: %w", s, key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// channelNamesEnv parses "id:username" pairs, e.g.
// CHANNEL_NAMES=-100123:almaty_rent,-100456:astana_flats
func channelNamesEnv(key string) (map[int64]string, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	names := make(map[int64]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, name, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q in %s, want id:username", pair, key)
		}
		chID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid channel ID %q in %s: %w", id, key, err)
		}
		names[chID] = strings.TrimSpace(name)
	}
	return names, nil
}
