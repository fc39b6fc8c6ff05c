package bot

import (
	"fmt"
	"strconv"
	"strings"

	"rentbot/internal/model"
)

// FormatFilter renders a filter for the /filter command.
func FormatFilter(f *model.Filter) string {
	switch f.Type {
	case model.FullApartment:
		return formatApartmentFilter(f.Apartment)
	case model.RoomSharing:
		return formatRoomFilter(f.Room)
	}
	return "Unknown filter."
}

func formatApartmentFilter(f *model.ApartmentFilter) string {
	var b strings.Builder
	b.WriteString("Apartment filter:\n")
	fmt.Fprintf(&b, "City: %s\n", f.City)
	fmt.Fprintf(&b, "Rooms: %s\n", joinInts(f.Rooms))
	switch {
	case f.MinPrice > 0 && f.MaxPrice > 0:
		fmt.Fprintf(&b, "Price: %d–%d ₸\n", f.MinPrice, f.MaxPrice)
	case f.MaxPrice > 0:
		fmt.Fprintf(&b, "Price: up to %d ₸\n", f.MaxPrice)
	case f.MinPrice > 0:
		fmt.Fprintf(&b, "Price: from %d ₸\n", f.MinPrice)
	default:
		b.WriteString("Price: any\n")
	}
	if f.MinSquare > 0 {
		fmt.Fprintf(&b, "Area: from %.0f m²\n", f.MinSquare)
	}
	return b.String()
}

func formatRoomFilter(f *model.RoomShareFilter) string {
	var b strings.Builder
	b.WriteString("Room-sharing filter:\n")
	city := f.City
	if city == "" {
		city = "any"
	}
	fmt.Fprintf(&b, "City: %s\n", city)
	fmt.Fprintf(&b, "You are: %s\n", f.Gender)
	fmt.Fprintf(&b, "Roommate preference: %s\n", preferenceLabel(f.Roommates))
	if f.MaxPrice > 0 {
		fmt.Fprintf(&b, "Price: up to %d ₸/month\n", f.MaxPrice)
	}
	return b.String()
}

func preferenceLabel(p model.RoommatePreference) string {
	switch p {
	case model.PreferMales:
		return "male"
	case model.PreferFemales:
		return "female"
	}
	return "any"
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
