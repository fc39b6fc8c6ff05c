// Package notify routes newly matched listings to the messaging transport:
// recipient liveness checks, message formatting, size-bounded chunking and
// per-recipient failure isolation.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rentbot/internal/model"
)

// ErrRecipientGone marks a terminal delivery failure: the recipient
// blocked the bot, was deleted, or kicked the bot from the channel.
// Transient transport errors are returned unwrapped.
var ErrRecipientGone = errors.New("recipient unreachable")

// Message is one formatted payload for the transport.
type Message struct {
	Text string
	// PhotoURLs attaches media; set only for single-listing deliveries.
	PhotoURLs []string
}

// Sink delivers a formatted message to a transport-level chat.
type Sink interface {
	Deliver(ctx context.Context, chatID int64, msg Message) error
}

// Activity gates delivery to individual users.
type Activity interface {
	IsUserActive(ctx context.Context, id int64) (bool, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
}

// Fanout formats and delivers listings, one transport per recipient kind.
type Fanout struct {
	users        Sink
	communities  Sink
	activity     Activity
	channelNames map[int64]string
	maxLen       int
	log          *slog.Logger
}

// New creates a Fanout. users and communities may share an implementation;
// they are injected separately because the reference transports differ.
func New(users, communities Sink, activity Activity, channelNames map[int64]string, maxLen int, log *slog.Logger) *Fanout {
	return &Fanout{
		users:        users,
		communities:  communities,
		activity:     activity,
		channelNames: channelNames,
		maxLen:       maxLen,
		log:          log,
	}
}

// NotifyApartments delivers full-apartment listings to one recipient and
// returns the IDs of the listings that were actually handed to the
// transport. A partial failure returns the IDs from the chunks delivered
// before it; the caller marks only those as seen.
func (f *Fanout) NotifyApartments(ctx context.Context, r model.Recipient, listings []model.Apartment) ([]int64, error) {
	if len(listings) == 0 {
		return nil, nil
	}
	ok, err := f.recipientLive(ctx, r)
	if err != nil || !ok {
		return nil, err
	}

	if len(listings) == 1 {
		a := listings[0]
		msg := Message{
			Text:      cityHeader(apartmentSingle, a.City) + FormatApartment(a),
			PhotoURLs: a.PhotoURLs,
		}
		if err := f.deliver(ctx, r, msg); err != nil {
			return nil, err
		}
		return []int64{a.ID}, nil
	}

	texts := make([]string, len(listings))
	for i, a := range listings {
		texts[i] = FormatApartment(a)
	}
	header := cityHeader(apartmentHeader, listings[0].City)

	var delivered []int64
	for _, c := range chunkItems(header, continuationHeader, texts, f.maxLen) {
		if err := f.deliver(ctx, r, Message{Text: c.text}); err != nil {
			return delivered, err
		}
		for _, i := range c.items {
			delivered = append(delivered, listings[i].ID)
		}
	}
	return delivered, nil
}

// NotifyRoomShares is the room-sharing counterpart of NotifyApartments.
func (f *Fanout) NotifyRoomShares(ctx context.Context, r model.Recipient, listings []model.RoomShare) ([]int64, error) {
	if len(listings) == 0 {
		return nil, nil
	}
	ok, err := f.recipientLive(ctx, r)
	if err != nil || !ok {
		return nil, err
	}

	if len(listings) == 1 {
		rs := listings[0]
		msg := Message{Text: roomShareSingle + FormatRoomShare(rs, f.channelNames[rs.ChannelID])}
		if err := f.deliver(ctx, r, msg); err != nil {
			return nil, err
		}
		return []int64{rs.ID}, nil
	}

	texts := make([]string, len(listings))
	for i, rs := range listings {
		texts[i] = FormatRoomShare(rs, f.channelNames[rs.ChannelID])
	}

	var delivered []int64
	for _, c := range chunkItems(roomShareHeader, continuationHeader, texts, f.maxLen) {
		if err := f.deliver(ctx, r, Message{Text: c.text}); err != nil {
			return delivered, err
		}
		for _, i := range c.items {
			delivered = append(delivered, listings[i].ID)
		}
	}
	return delivered, nil
}

// recipientLive checks user activity before any formatting work.
// Communities are always eligible while their filter exists.
func (f *Fanout) recipientLive(ctx context.Context, r model.Recipient) (bool, error) {
	if r.Kind != model.KindUser {
		return true, nil
	}
	active, err := f.activity.IsUserActive(ctx, r.ID)
	if err != nil {
		return false, fmt.Errorf("check user active: %w", err)
	}
	if !active {
		f.log.Debug("skipping inactive user", "user_id", r.ID)
	}
	return active, nil
}

func (f *Fanout) deliver(ctx context.Context, r model.Recipient, msg Message) error {
	sink := f.users
	if r.Kind == model.KindCommunity {
		sink = f.communities
	}

	err := sink.Deliver(ctx, r.ID, msg)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecipientGone) && r.Kind == model.KindUser {
		f.log.Info("deactivating unreachable user", "user_id", r.ID, "error", err)
		if setErr := f.activity.SetUserActive(ctx, r.ID, false); setErr != nil {
			f.log.Error("deactivate user", "user_id", r.ID, "error", setErr)
		}
	}
	return fmt.Errorf("deliver to %s %d: %w", r.Kind, r.ID, err)
}
