// Package bot implements the Telegram command surface: registration,
// filter management and activity control.
package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rentbot/internal/config"
	"rentbot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// PostObserver receives channel-post updates from the shared long-poll
// stream; the channel ingester buffers them for its next cycle.
type PostObserver interface {
	Observe(update tgbotapi.Update)
}

// Bot handles user commands over Telegram long polling.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	cfg      *config.Config
	observer PostObserver
	log      *slog.Logger
}

// New creates a Bot. The API client is shared with the notification sinks,
// so it is injected rather than constructed here. observer may be nil when
// no channels are monitored.
func New(api telegramAPI, store storage.Storage, cfg *config.Config, observer PostObserver, log *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		store:    store,
		cfg:      cfg,
		observer: observer,
		log:      log,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "channel_post"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.ChannelPost != nil {
				if b.observer != nil {
					b.observer.Observe(update)
				}
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	userID := msg.From.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, msg)
	case "stop":
		b.handleStop(ctx, chatID, userID)
	case "help":
		b.handleHelp(chatID)
	case "apartment":
		b.handleApartment(ctx, chatID, userID, args)
	case "room":
		b.handleRoom(ctx, chatID, userID, args)
	case "filter":
		b.handleShowFilter(ctx, chatID, userID)
	case "clear":
		b.handleClear(ctx, chatID, userID)
	case "community_apartment":
		b.handleCommunityApartment(ctx, chatID, userID, args)
	case "community_room":
		b.handleCommunityRoom(ctx, chatID, userID, args)
	case "community_clear":
		b.handleCommunityClear(ctx, chatID, userID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
