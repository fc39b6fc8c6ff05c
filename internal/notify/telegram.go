package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink delivers messages over the Telegram Bot API. The same type
// serves both recipient kinds: users get direct chats, communities get
// their channel chat ID.
type TelegramSink struct {
	api telegramAPI
}

// NewTelegramSink wraps a bot API client as a Sink.
func NewTelegramSink(api telegramAPI) *TelegramSink {
	return &TelegramSink{api: api}
}

// Deliver sends one message. A photo-bearing message attaches the first
// photo with the text as caption; text-only messages disable link previews.
func (s *TelegramSink) Deliver(ctx context.Context, chatID int64, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var c tgbotapi.Chattable
	if len(msg.PhotoURLs) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.PhotoURLs[0]))
		photo.Caption = msg.Text
		c = photo
	} else {
		m := tgbotapi.NewMessage(chatID, msg.Text)
		m.DisableWebPagePreview = true
		c = m
	}

	if _, err := s.api.Send(c); err != nil {
		if isTerminal(err) {
			return fmt.Errorf("%w: %v", ErrRecipientGone, err)
		}
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// isTerminal classifies API errors that mean the recipient can never be
// reached again without action on their side (403: blocked, kicked,
// deactivated).
func isTerminal(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 403
	}
	return false
}
