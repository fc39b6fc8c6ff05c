// Package model defines the domain types used across the application.
package model

import (
	"errors"
	"time"
)

// RentalType distinguishes the two listing variants.
type RentalType string

// Supported rental types.
const (
	FullApartment RentalType = "full_apartment"
	RoomSharing   RentalType = "room_sharing"
)

// RecipientKind distinguishes individual users from broadcast communities.
type RecipientKind string

// Supported recipient kinds.
const (
	KindUser      RecipientKind = "user"
	KindCommunity RecipientKind = "community"
)

// Recipient identifies a notification target: a Telegram user or a
// broadcast community channel.
type Recipient struct {
	Kind RecipientKind
	ID   int64
}

// Apartment is a full-apartment listing scraped from the website.
// The URL is the idempotency key: re-ingesting the same URL returns the
// existing row. Rows are immutable after insertion and purged together
// with their seen marks after the retention window.
type Apartment struct {
	ID          int64
	URL         string
	Price       int64
	Rooms       int
	City        string
	Square      float64
	District    string
	Street      string
	ComplexName string
	PhotoURLs   []string
	CreatedAt   time.Time
}

// PreferredGender is who a room-sharing listing is looking for, as
// classified from the ad text.
type PreferredGender string

// Classifier vocabulary for preferred gender.
const (
	PreferBoy  PreferredGender = "boy"
	PreferGirl PreferredGender = "girl"
	PreferBoth PreferredGender = "both"
	PreferNone PreferredGender = "no"
)

// RoomShare is a room-sharing listing ingested from a monitored channel.
// (ChannelID, MessageID) is the idempotency key.
type RoomShare struct {
	ID              int64
	ChannelID       int64
	MessageID       int64
	MonthlyPrice    int64
	PreferredGender PreferredGender
	Location        string
	Contact         string
	Text            string
	City            string
	CreatedAt       time.Time
}

// Gender is the filter owner's self-described gender.
type Gender string

// Supported genders.
const (
	Male   Gender = "male"
	Female Gender = "female"
)

// RoommatePreference is which counterpart genders the filter owner accepts.
type RoommatePreference string

// Supported roommate preferences.
const (
	PreferMales   RoommatePreference = "prefer_male"
	PreferFemales RoommatePreference = "prefer_female"
	NoPreference  RoommatePreference = "no_preference"
)

// ApartmentFilter holds the full-apartment matching criteria.
// Zero values mean "not set": empty City matches any city, nil Rooms
// matches any room count, zero price bounds are unbounded.
type ApartmentFilter struct {
	City      string
	Rooms     []int
	MinPrice  int64
	MaxPrice  int64
	MinSquare float64
}

// RoomShareFilter holds the room-sharing matching criteria.
type RoomShareFilter struct {
	City      string
	MinPrice  int64
	MaxPrice  int64
	Gender    Gender
	Roommates RoommatePreference
}

// Filter is a recipient's active search filter: a tagged variant over the
// two rental types. Exactly one of Apartment/Room is set, selected by Type.
// A recipient has at most one active filter; setting a new one replaces it.
type Filter struct {
	Owner     Recipient
	Type      RentalType
	Apartment *ApartmentFilter
	Room      *RoomShareFilter
	CreatedAt time.Time
}

// Validation errors for filters loaded from storage or user input.
var (
	ErrUnknownRentalType = errors.New("unknown rental type")
	ErrMissingVariant    = errors.New("filter variant data missing for its type")
)

// Validate reports whether the filter's variant data is consistent with
// its type tag. Malformed filters are excluded from matching, not fatal.
func (f *Filter) Validate() error {
	switch f.Type {
	case FullApartment:
		if f.Apartment == nil {
			return ErrMissingVariant
		}
	case RoomSharing:
		if f.Room == nil {
			return ErrMissingVariant
		}
	default:
		return ErrUnknownRentalType
	}
	return nil
}

// Query is one upstream fetch produced by the filter optimizer: a superset
// request whose results are re-filtered per recipient downstream.
type Query struct {
	City      string
	Rooms     []int
	MaxPrice  int64
	MinSquare float64
}

// User is an individual recipient. IsActive gates notification delivery;
// it is cleared when the transport reports the user blocked the bot.
type User struct {
	ID        int64
	IsActive  bool
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
