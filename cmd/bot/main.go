package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"

	"rentbot/internal/bot"
	"rentbot/internal/channel"
	"rentbot/internal/config"
	"rentbot/internal/dedup"
	"rentbot/internal/ingest"
	"rentbot/internal/notify"
	"rentbot/internal/source/krisha"
	"rentbot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg.DatabasePath, log)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("create bot api", "error", err)
		os.Exit(1)
	}

	sink := notify.NewTelegramSink(api)
	fanout := notify.New(sink, sink, store, cfg.ChannelNames, cfg.MaxMessageLength, log)
	engine := dedup.New(store)

	source := krisha.New(http.DefaultClient, log)

	buffer := channel.NewUpdateBuffer()
	worker := channel.NewWorker(buffer)
	poller := channel.NewPoller(cfg.Channels, worker, channel.KeywordClassifier{}, store, log)

	orchestrator := ingest.New(store, source, poller, fanout, engine, ingest.Config{
		ScrapeInterval:      cfg.ScrapeInterval,
		ChannelPollInterval: cfg.ChannelPollInterval,
		Retention:           time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}, log)

	b := bot.New(api, store, cfg, buffer, log)

	log.Info("starting bot", "channels", len(cfg.Channels))

	go worker.Run(ctx)
	go orchestrator.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

// openStore retries the database open with exponential backoff and jitter:
// on a fresh deploy the data volume may attach a moment after the process
// starts.
func openStore(ctx context.Context, path string, log *slog.Logger) (*storage.SQLite, error) {
	backoff := retry.WithMaxRetries(5, retry.WithJitterPercent(10, retry.NewExponential(time.Second)))

	var store *storage.SQLite
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		store, err = storage.NewSQLite(path)
		if err != nil {
			log.Warn("database not ready, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	return store, err
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
