package notify

import (
	"fmt"
	"strings"

	"rentbot/internal/model"
)

// Headers for the first and continuation chunks of a multi-listing message.
const (
	apartmentHeader     = "New apartments matching your search:\n\n"
	apartmentSingle     = "New apartment matching your search:\n\n"
	roomShareHeader     = "New room-sharing offers matching your search:\n\n"
	roomShareSingle     = "New room-sharing offer matching your search:\n\n"
	continuationHeader  = "(cont.)\n\n"
	maxRoomShareBodyLen = 200
)

// FormatApartment renders one full-apartment listing as message text.
func FormatApartment(a model.Apartment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rooms, %.0f m²\n", a.Rooms, a.Square)
	if a.Street != "" {
		fmt.Fprintf(&b, "%s\n", a.Street)
	}
	if a.ComplexName != "" {
		fmt.Fprintf(&b, "%s\n", a.ComplexName)
	}
	fmt.Fprintf(&b, "%d ₸\n%s\n\n", a.Price, a.URL)
	return b.String()
}

// FormatRoomShare renders one room-sharing listing as message text.
// channelName, when known, links back to the original channel post.
func FormatRoomShare(r model.RoomShare, channelName string) string {
	var b strings.Builder
	b.WriteString("Room sharing\n")
	if r.MonthlyPrice > 0 {
		fmt.Fprintf(&b, "Price: %d ₸/month\n", r.MonthlyPrice)
	} else {
		b.WriteString("Price: not specified\n")
	}
	if r.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", r.Location)
	}
	if label := genderLabel(r.PreferredGender); label != "" {
		fmt.Fprintf(&b, "Looking for: %s\n", label)
	}
	if r.Contact != "" {
		fmt.Fprintf(&b, "Contact: %s\n", r.Contact)
	}
	if r.Text != "" {
		text := r.Text
		if runes := []rune(text); len(runes) > maxRoomShareBodyLen {
			text = string(runes[:maxRoomShareBodyLen-3]) + "..."
		}
		fmt.Fprintf(&b, "\n%s\n", text)
	}
	if channelName != "" {
		fmt.Fprintf(&b, "\nhttps://t.me/%s/%d\n", channelName, r.MessageID)
	}
	b.WriteString("\n")
	return b.String()
}

func genderLabel(g model.PreferredGender) string {
	switch g {
	case model.PreferBoy:
		return "men"
	case model.PreferGirl:
		return "women"
	case model.PreferBoth:
		return "anyone"
	}
	return ""
}

// cityHeader prefixes the listing city when all listings share one.
func cityHeader(base, city string) string {
	if city == "" {
		return base
	}
	runes := []rune(city)
	title := strings.ToUpper(string(runes[:1])) + string(runes[1:])
	return strings.TrimSuffix(base, ":\n\n") + " in " + title + ":\n\n"
}
