// Package dedup decides which matching listings a recipient has not been
// notified about yet, and records delivery durably. The seen-mark store is
// the sole source of truth for past deliveries, which makes the pipeline
// resumable after a restart.
package dedup

import (
	"context"
	"fmt"

	"rentbot/internal/match"
	"rentbot/internal/model"
	"rentbot/internal/storage"
)

// Engine filters candidate listings through the recipient's filter and the
// seen-mark store.
type Engine struct {
	store storage.Storage
}

// New creates an Engine over the given store.
func New(store storage.Storage) *Engine {
	return &Engine{store: store}
}

// UnseenApartments returns the candidates that match the filter and carry
// no seen mark for the recipient, in candidate order.
func (e *Engine) UnseenApartments(ctx context.Context, r model.Recipient, candidates []model.Apartment, f model.ApartmentFilter) ([]model.Apartment, error) {
	matched := make([]model.Apartment, 0, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, a := range candidates {
		if match.Apartment(a, f) {
			matched = append(matched, a)
			ids = append(ids, a.ID)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	unseen, err := e.store.UnseenIDs(ctx, r, model.FullApartment, ids)
	if err != nil {
		return nil, fmt.Errorf("unseen ids: %w", err)
	}
	return pick(matched, unseen, func(a model.Apartment) int64 { return a.ID }), nil
}

// UnseenRoomShares is the room-sharing counterpart of UnseenApartments.
func (e *Engine) UnseenRoomShares(ctx context.Context, r model.Recipient, candidates []model.RoomShare, f model.RoomShareFilter) ([]model.RoomShare, error) {
	matched := make([]model.RoomShare, 0, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, rs := range candidates {
		if match.RoomShare(rs, f) {
			matched = append(matched, rs)
			ids = append(ids, rs.ID)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	unseen, err := e.store.UnseenIDs(ctx, r, model.RoomSharing, ids)
	if err != nil {
		return nil, fmt.Errorf("unseen ids: %w", err)
	}
	return pick(matched, unseen, func(rs model.RoomShare) int64 { return rs.ID }), nil
}

// MarkDelivered records seen marks for the delivered listings in a single
// transaction. Only listings that were actually handed to the transport
// may be passed here: an undelivered listing must stay unmarked so a later
// cycle retries it. If this write fails after a successful delivery the
// listing may be delivered again later; that duplicate is the accepted
// at-least-once trade-off.
func (e *Engine) MarkDelivered(ctx context.Context, r model.Recipient, t model.RentalType, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := e.store.MarkSeenBulk(ctx, r, t, ids); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

func pick[T any](matched []T, ids []int64, id func(T) int64) []T {
	want := make(map[int64]bool, len(ids))
	for _, v := range ids {
		want[v] = true
	}
	var out []T
	for _, m := range matched {
		if want[id(m)] {
			out = append(out, m)
		}
	}
	return out
}
