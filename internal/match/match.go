// Package match implements the pure listing-to-filter predicates.
// Every bound that is set on a filter must be satisfied; unset bounds
// (zero values) match anything.
package match

import (
	"rentbot/internal/cities"
	"rentbot/internal/model"
)

// Apartment reports whether a full-apartment listing satisfies a filter.
func Apartment(a model.Apartment, f model.ApartmentFilter) bool {
	if f.City != "" && !cities.Equal(a.City, f.City) {
		return false
	}
	if len(f.Rooms) > 0 && !containsInt(f.Rooms, a.Rooms) {
		return false
	}
	if f.MinPrice > 0 && a.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && a.Price > f.MaxPrice {
		return false
	}
	if f.MinSquare > 0 && a.Square < f.MinSquare {
		return false
	}
	return true
}

// RoomShare reports whether a room-sharing listing satisfies a filter.
func RoomShare(r model.RoomShare, f model.RoomShareFilter) bool {
	if f.City != "" && !cities.Equal(r.City, f.City) {
		return false
	}
	if f.MinPrice > 0 && r.MonthlyPrice < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && r.MonthlyPrice > f.MaxPrice {
		return false
	}
	if f.Gender != "" && !genderCompatible(r.PreferredGender, f.Gender) {
		return false
	}
	return true
}

// Filter applies a variant filter to the listing of its own variant.
// The switch is exhaustive over model.RentalType; listings of the other
// variant never reach it (callers route by filter type).
func Filter(f model.Filter, apartment *model.Apartment, room *model.RoomShare) bool {
	if f.Validate() != nil {
		return false
	}
	switch f.Type {
	case model.FullApartment:
		return apartment != nil && Apartment(*apartment, *f.Apartment)
	case model.RoomSharing:
		return room != nil && RoomShare(*room, *f.Room)
	}
	return false
}

// AcceptableGenders returns the listing preferred-gender values compatible
// with a filter owner's gender: ads open to anyone or with no stated
// preference always qualify, plus ads targeting the owner's gender.
func AcceptableGenders(g model.Gender) []model.PreferredGender {
	acceptable := []model.PreferredGender{model.PreferBoth, model.PreferNone}
	switch g {
	case model.Male:
		acceptable = append(acceptable, model.PreferBoy)
	case model.Female:
		acceptable = append(acceptable, model.PreferGirl)
	}
	return acceptable
}

func genderCompatible(pg model.PreferredGender, g model.Gender) bool {
	for _, ok := range AcceptableGenders(g) {
		if pg == ok {
			return true
		}
	}
	return false
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
