package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "./data/rentbot.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.MaxMessageLength != 3500 {
		t.Errorf("MaxMessageLength = %d, want 3500", cfg.MaxMessageLength)
	}
	if cfg.ScrapeInterval != time.Minute {
		t.Errorf("ScrapeInterval = %v, want 1m", cfg.ScrapeInterval)
	}
	if cfg.ChannelPollInterval != 90*time.Second {
		t.Errorf("ChannelPollInterval = %v, want 90s", cfg.ChannelPollInterval)
	}
	if cfg.RetentionDays != 3 {
		t.Errorf("RetentionDays = %d, want 3", cfg.RetentionDays)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestLoadLists(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("CHANNELS", "-100123, -100456")
	t.Setenv("ALLOWED_USERS", "1,2,3")
	t.Setenv("ADMIN_USERS", "1")
	t.Setenv("CHANNEL_NAMES", "-100123:almaty_rent, -100456:astana_flats")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]int64{-100123, -100456}, cfg.Channels); diff != "" {
		t.Errorf("Channels mismatch (-want +got):\n%s", diff)
	}
	want := map[int64]string{-100123: "almaty_rent", -100456: "astana_flats"}
	if diff := cmp.Diff(want, cfg.ChannelNames); diff != "" {
		t.Errorf("ChannelNames mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsMalformedChannelNames(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("CHANNEL_NAMES", "no-colon-here")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed CHANNEL_NAMES")
	}
}

func TestIsUserAllowed(t *testing.T) {
	open := &Config{}
	if !open.IsUserAllowed(99) {
		t.Error("empty allow list should permit everyone")
	}

	gated := &Config{AllowedUsers: []int64{1, 2}}
	if !gated.IsUserAllowed(2) {
		t.Error("listed user should be allowed")
	}
	if gated.IsUserAllowed(3) {
		t.Error("unlisted user should be denied")
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{}
	if cfg.IsAdmin(1) {
		t.Error("empty admin list should permit no one")
	}
	cfg.Admins = []int64{5}
	if !cfg.IsAdmin(5) || cfg.IsAdmin(6) {
		t.Error("admin gate mismatch")
	}
}
