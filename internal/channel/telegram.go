package channel

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateBuffer implements Reader on top of the bot API update stream. The
// bot is an admin of each monitored channel, so new posts arrive as
// channel_post updates on the same long-poll connection the command bot
// uses; the bot's update loop hands them to Observe and PollNext drains
// them later through ReadAfter.
type UpdateBuffer struct {
	mu       sync.Mutex
	messages map[int64][]RawMessage
	// maxBuffered bounds per-channel memory between polls.
	maxBuffered int
}

// NewUpdateBuffer creates an empty buffer.
func NewUpdateBuffer() *UpdateBuffer {
	return &UpdateBuffer{
		messages:    make(map[int64][]RawMessage),
		maxBuffered: 500,
	}
}

// Observe records a channel post update. Non-channel updates are ignored.
func (b *UpdateBuffer) Observe(update tgbotapi.Update) {
	post := update.ChannelPost
	if post == nil {
		return
	}
	// Photo posts carry the ad text in the caption.
	text := post.Text
	if text == "" {
		text = post.Caption
	}
	if text == "" {
		return
	}
	channelID := post.Chat.ID

	b.mu.Lock()
	defer b.mu.Unlock()
	buf := append(b.messages[channelID], RawMessage{
		ChannelID: channelID,
		MessageID: int64(post.MessageID),
		Text:      text,
		Date:      time.Unix(int64(post.Date), 0),
	})
	if len(buf) > b.maxBuffered {
		buf = buf[len(buf)-b.maxBuffered:]
	}
	b.messages[channelID] = buf
}

// ReadAfter returns the buffered posts of one channel newer than the
// cursor and drops everything buffered for that channel, consumed or not;
// posts at or below the cursor are already ingested.
func (b *UpdateBuffer) ReadAfter(_ context.Context, channelID, afterMessageID int64) ([]RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []RawMessage
	for _, msg := range b.messages[channelID] {
		if msg.MessageID > afterMessageID {
			out = append(out, msg)
		}
	}
	delete(b.messages, channelID)
	return out, nil
}
