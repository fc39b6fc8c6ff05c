package bot

import (
	"fmt"
	"strconv"
	"strings"

	"rentbot/internal/cities"
	"rentbot/internal/model"
)

// ParseApartmentArgs parses /apartment arguments.
// Format: <city> <rooms> <min>-<max> [min_square]
// rooms is comma-separated ("1,2"); a bare price is treated as the maximum.
func ParseApartmentArgs(args string) (model.ApartmentFilter, error) {
	parts := strings.Fields(args)
	if len(parts) < 3 {
		return model.ApartmentFilter{}, fmt.Errorf("usage: <city> <rooms> <min>-<max> [min_square]")
	}

	city := cities.Normalize(parts[0])
	if !cities.Known(city) {
		return model.ApartmentFilter{}, fmt.Errorf("unknown city %q", parts[0])
	}

	rooms, err := parseRooms(parts[1])
	if err != nil {
		return model.ApartmentFilter{}, err
	}

	minPrice, maxPrice, err := parsePriceRange(parts[2])
	if err != nil {
		return model.ApartmentFilter{}, err
	}

	f := model.ApartmentFilter{
		City:     city,
		Rooms:    rooms,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}

	if len(parts) >= 4 {
		sq, err := strconv.ParseFloat(parts[3], 64)
		if err != nil || sq < 0 {
			return model.ApartmentFilter{}, fmt.Errorf("invalid minimum square %q", parts[3])
		}
		f.MinSquare = sq
	}
	return f, nil
}

// ParseRoomArgs parses /room arguments.
// Format: <city> <gender> <preference> [max_price]
// city may be "-" to match offers from any city; gender is m/f;
// preference is male, female or any.
func ParseRoomArgs(args string) (model.RoomShareFilter, error) {
	parts := strings.Fields(args)
	if len(parts) < 3 {
		return model.RoomShareFilter{}, fmt.Errorf("usage: <city> <m|f> <male|female|any> [max_price]")
	}

	var city string
	if parts[0] != "-" {
		city = cities.Normalize(parts[0])
		if !cities.Known(city) {
			return model.RoomShareFilter{}, fmt.Errorf("unknown city %q", parts[0])
		}
	}

	gender, err := parseGender(parts[1])
	if err != nil {
		return model.RoomShareFilter{}, err
	}

	pref, err := parsePreference(parts[2])
	if err != nil {
		return model.RoomShareFilter{}, err
	}

	f := model.RoomShareFilter{
		City:      city,
		Gender:    gender,
		Roommates: pref,
	}

	if len(parts) >= 4 {
		maxPrice, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || maxPrice < 0 {
			return model.RoomShareFilter{}, fmt.Errorf("invalid maximum price %q", parts[3])
		}
		f.MaxPrice = maxPrice
	}
	return f, nil
}

// ParseChannelIDArg extracts the community channel ID that prefixes the
// /community command arguments, returning the remaining arguments.
func ParseChannelIDArg(args string) (int64, string, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		return 0, "", fmt.Errorf("channel ID is required")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid channel ID %q", parts[0])
	}
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return id, rest, nil
}

func parseRooms(s string) ([]int, error) {
	var rooms []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 9 {
			return nil, fmt.Errorf("invalid room count %q", part)
		}
		rooms = append(rooms, n)
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("at least one room count is required")
	}
	return rooms, nil
}

// parsePriceRange accepts "min-max", "-max" and a bare "max".
func parsePriceRange(s string) (int64, int64, error) {
	min64 := int64(0)
	max64 := int64(0)

	minStr, maxStr, found := strings.Cut(s, "-")
	if !found {
		maxStr = minStr
		minStr = ""
	}

	var err error
	if minStr != "" {
		if min64, err = strconv.ParseInt(minStr, 10, 64); err != nil || min64 < 0 {
			return 0, 0, fmt.Errorf("invalid price range %q", s)
		}
	}
	if maxStr != "" {
		if max64, err = strconv.ParseInt(maxStr, 10, 64); err != nil || max64 < 0 {
			return 0, 0, fmt.Errorf("invalid price range %q", s)
		}
	}
	if max64 > 0 && min64 > max64 {
		return 0, 0, fmt.Errorf("minimum price exceeds maximum in %q", s)
	}
	return min64, max64, nil
}

func parseGender(s string) (model.Gender, error) {
	switch strings.ToLower(s) {
	case "m", "male", "м":
		return model.Male, nil
	case "f", "female", "ж":
		return model.Female, nil
	}
	return "", fmt.Errorf("invalid gender %q, use m or f", s)
}

func parsePreference(s string) (model.RoommatePreference, error) {
	switch strings.ToLower(s) {
	case "male", "m", "м":
		return model.PreferMales, nil
	case "female", "f", "ж":
		return model.PreferFemales, nil
	case "any", "all":
		return model.NoPreference, nil
	}
	return "", fmt.Errorf("invalid preference %q, use male, female or any", s)
}
