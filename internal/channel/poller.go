package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rentbot/internal/model"
)

// adminPrefix marks channel housekeeping posts that are never offers.
const adminPrefix = "уважаемые подписчики"

// contentDedupWindow is how far back two posts with the same contact,
// location and price are treated as reposts of one offer.
const contentDedupWindow = 30 * 24 * time.Hour

// RawMessage is one channel post as read from the transport.
type RawMessage struct {
	ChannelID int64
	MessageID int64
	Text      string
	Date      time.Time
}

// Reader lists channel posts newer than a message-id cursor.
type Reader interface {
	ReadAfter(ctx context.Context, channelID, afterMessageID int64) ([]RawMessage, error)
}

// Store is the slice of the listing store the poller needs.
type Store interface {
	LastMessageID(ctx context.Context, channelID int64) (int64, error)
	HasRecentRoomShare(ctx context.Context, contact, location string, price int64, since time.Time) (bool, error)
	InsertRoomShare(ctx context.Context, r *model.RoomShare) (bool, error)
}

// Poller ingests room-sharing offers from monitored channels, visiting one
// channel per call in round-robin order so a slow channel cannot starve
// the others.
type Poller struct {
	channels   []int64
	next       int
	reader     Reader
	classifier Classifier
	store      Store
	now        func() time.Time
	log        *slog.Logger
}

// NewPoller creates a Poller over the given channel IDs.
func NewPoller(channels []int64, reader Reader, classifier Classifier, store Store, log *slog.Logger) *Poller {
	return &Poller{
		channels:   channels,
		reader:     reader,
		classifier: classifier,
		store:      store,
		now:        time.Now,
		log:        log,
	}
}

// PollNext reads the next channel in rotation and returns the offers that
// were newly persisted. The rotation advances even when the read fails, so
// one broken channel costs one tick, not the whole schedule.
func (p *Poller) PollNext(ctx context.Context) ([]model.RoomShare, error) {
	if len(p.channels) == 0 {
		return nil, nil
	}
	channelID := p.channels[p.next]
	p.next = (p.next + 1) % len(p.channels)

	cursor, err := p.store.LastMessageID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel cursor: %w", err)
	}

	messages, err := p.reader.ReadAfter(ctx, channelID, cursor)
	if err != nil {
		return nil, fmt.Errorf("read channel %d: %w", channelID, err)
	}

	var ingested []model.RoomShare
	for _, msg := range messages {
		offer, ok, err := p.ingest(ctx, msg)
		if err != nil {
			p.log.Error("ingest channel post", "channel_id", msg.ChannelID, "message_id", msg.MessageID, "error", err)
			continue
		}
		if ok {
			ingested = append(ingested, offer)
		}
	}

	p.log.Debug("polled channel", "channel_id", channelID, "messages", len(messages), "ingested", len(ingested))
	return ingested, nil
}

// ingest classifies and persists one post. The returned bool reports
// whether a new offer was stored.
func (p *Poller) ingest(ctx context.Context, msg RawMessage) (model.RoomShare, bool, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(strings.ToLower(text), adminPrefix) {
		return model.RoomShare{}, false, nil
	}

	c, err := p.classifier.Classify(ctx, text)
	if err != nil {
		return model.RoomShare{}, false, fmt.Errorf("classify: %w", err)
	}
	if !c.IsOffer {
		return model.RoomShare{}, false, nil
	}

	// The same offer gets reposted across channels; contact+location+price
	// within the window identifies it regardless of wording.
	if c.Contact != "" {
		since := p.now().Add(-contentDedupWindow)
		dup, err := p.store.HasRecentRoomShare(ctx, c.Contact, c.Location, c.MonthlyPrice, since)
		if err != nil {
			return model.RoomShare{}, false, fmt.Errorf("check duplicate: %w", err)
		}
		if dup {
			p.log.Debug("skipping reposted offer", "channel_id", msg.ChannelID, "message_id", msg.MessageID)
			return model.RoomShare{}, false, nil
		}
	}

	offer := model.RoomShare{
		ChannelID:       msg.ChannelID,
		MessageID:       msg.MessageID,
		MonthlyPrice:    c.MonthlyPrice,
		PreferredGender: c.PreferredGender,
		Location:        c.Location,
		Contact:         c.Contact,
		Text:            text,
		City:            c.City,
		CreatedAt:       msg.Date,
	}
	created, err := p.store.InsertRoomShare(ctx, &offer)
	if err != nil {
		return model.RoomShare{}, false, fmt.Errorf("insert offer: %w", err)
	}
	return offer, created, nil
}
