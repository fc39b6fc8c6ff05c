package channel

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func channelPost(chatID int64, messageID int, text string) tgbotapi.Update {
	return tgbotapi.Update{
		ChannelPost: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func TestUpdateBuffer(t *testing.T) {
	buf := NewUpdateBuffer()
	buf.Observe(channelPost(-1, 1, "старое объявление"))
	buf.Observe(channelPost(-1, 2, "новое объявление"))
	buf.Observe(channelPost(-2, 9, "другой канал"))
	buf.Observe(tgbotapi.Update{}) // non-channel updates are ignored

	got, err := buf.ReadAfter(context.Background(), -1, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].MessageID != 2 || got[0].Text != "новое объявление" {
		t.Fatalf("got %v, want only message 2", got)
	}

	// Reading drains the channel's buffer.
	got, err = buf.ReadAfter(context.Background(), -1, 0)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if got != nil {
		t.Errorf("re-read = %v, want nil after drain", got)
	}

	// The other channel's buffer is untouched.
	got, err = buf.ReadAfter(context.Background(), -2, 0)
	if err != nil {
		t.Fatalf("read other: %v", err)
	}
	if len(got) != 1 || got[0].MessageID != 9 {
		t.Fatalf("got %v, want message 9", got)
	}
}

func TestUpdateBufferCaptionedPost(t *testing.T) {
	// Photo ads have no text; the ad lives in the caption.
	buf := NewUpdateBuffer()
	buf.Observe(tgbotapi.Update{
		ChannelPost: &tgbotapi.Message{
			MessageID: 3,
			Chat:      &tgbotapi.Chat{ID: -1},
			Caption:   "Сдаю комнату, подселение, 80 000 тг",
		},
	})
	buf.Observe(tgbotapi.Update{
		ChannelPost: &tgbotapi.Message{
			MessageID: 4,
			Chat:      &tgbotapi.Chat{ID: -1},
		},
	}) // no text, no caption: nothing to classify

	got, err := buf.ReadAfter(context.Background(), -1, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Сдаю комнату, подселение, 80 000 тг" {
		t.Fatalf("got %v, want the caption as message text", got)
	}
}
