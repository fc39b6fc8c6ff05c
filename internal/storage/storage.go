// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"rentbot/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations. Each method is
// its own transactional unit; there are no long-lived transactions.
type Storage interface {
	// InsertApartment persists a listing, idempotent on URL: if the URL
	// already exists the stored ID is set on a and created is false.
	InsertApartment(ctx context.Context, a *model.Apartment) (created bool, err error)
	// InsertRoomShare persists a listing, idempotent on (channel, message).
	InsertRoomShare(ctx context.Context, r *model.RoomShare) (created bool, err error)
	ListApartmentsByCity(ctx context.Context, city string) ([]model.Apartment, error)
	// ListRoomShares returns listings for a city, or all cities when city
	// is empty.
	ListRoomShares(ctx context.Context, city string) ([]model.RoomShare, error)
	// LastMessageID returns the highest ingested message ID for a channel,
	// or 0 when the channel has no listings yet.
	LastMessageID(ctx context.Context, channelID int64) (int64, error)
	// HasRecentRoomShare reports whether a listing with the same contact,
	// location and price exists since the given time (content-level dedup
	// for reposted ads).
	HasRecentRoomShare(ctx context.Context, contact, location string, price int64, since time.Time) (bool, error)
	// Purge removes listings created before listingCutoff together with
	// their seen marks, and seen marks older than seenCutoff regardless
	// of listing age.
	Purge(ctx context.Context, listingCutoff, seenCutoff time.Time) (listings int64, err error)

	// SetFilter replaces the recipient's active filter: both variant rows
	// are deleted and the new one inserted in a single transaction.
	SetFilter(ctx context.Context, f *model.Filter) error
	GetFilter(ctx context.Context, r model.Recipient) (*model.Filter, error)
	DeleteFilter(ctx context.Context, r model.Recipient) error
	ListFilters(ctx context.Context) ([]model.Filter, error)

	// UnseenIDs returns the subset of ids with no seen mark for the
	// recipient, preserving input order.
	UnseenIDs(ctx context.Context, r model.Recipient, t model.RentalType, ids []int64) ([]int64, error)
	// MarkSeenBulk records seen marks for all ids in one transaction.
	// Marks are write-once: re-marking an id is a no-op.
	MarkSeenBulk(ctx context.Context, r model.Recipient, t model.RentalType, ids []int64) error

	UpsertUser(ctx context.Context, u *model.User) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	IsUserActive(ctx context.Context, id int64) (bool, error)

	Close() error
}
