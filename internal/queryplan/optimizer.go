// Package queryplan collapses many recipient filters into a minimal set of
// upstream queries. Queries are supersets: they use the loosest bounds per
// city, and results are re-filtered per recipient downstream.
package queryplan

import (
	"sort"

	"rentbot/internal/cities"
	"rentbot/internal/model"
)

// The site's query syntax accepts a single room count per request, so one
// request per room value is the baseline cost. Batching two room values
// into one planned query trades request count against over-fetching;
// larger batches widen the superset without reducing requests further.
const roomsPerQuery = 2

// defaultRooms stands in for filters that accept any room count.
var defaultRooms = []int{1, 2, 3, 4}

// defaultMaxPrice stands in for filters without a price cap.
const defaultMaxPrice = 1_000_000

// Optimize collapses full-apartment filters into upstream queries, one per
// (city, room group) pair. Filters without a city are skipped: there is no
// sensible site query for "any city", so cityless recipients are matched
// only against listings fetched for other recipients' cities.
// Room values are sorted ascending before grouping, so output content is
// deterministic for a given input set.
func Optimize(filters []model.Filter) []model.Query {
	byCity := make(map[string][]*model.ApartmentFilter)
	var cityOrder []string
	for i := range filters {
		f := filters[i]
		if f.Type != model.FullApartment || f.Validate() != nil {
			continue
		}
		if f.Apartment.City == "" {
			continue
		}
		city := cities.Normalize(f.Apartment.City)
		if _, seen := byCity[city]; !seen {
			cityOrder = append(cityOrder, city)
		}
		byCity[city] = append(byCity[city], f.Apartment)
	}
	sort.Strings(cityOrder)

	var queries []model.Query
	for _, city := range cityOrder {
		group := byCity[city]

		maxPrice := int64(0)
		minSquare := 0.0
		haveSquare := false
		roomSet := make(map[int]bool)

		for _, f := range group {
			// An uncapped filter widens the query to the default ceiling.
			price := f.MaxPrice
			if price == 0 {
				price = defaultMaxPrice
			}
			if price > maxPrice {
				maxPrice = price
			}
			if !haveSquare || f.MinSquare < minSquare {
				minSquare = f.MinSquare
				haveSquare = true
			}
			if len(f.Rooms) == 0 {
				for _, r := range defaultRooms {
					roomSet[r] = true
				}
			} else {
				for _, r := range f.Rooms {
					roomSet[r] = true
				}
			}
		}

		rooms := make([]int, 0, len(roomSet))
		for r := range roomSet {
			rooms = append(rooms, r)
		}
		sort.Ints(rooms)

		for start := 0; start < len(rooms); start += roomsPerQuery {
			end := start + roomsPerQuery
			if end > len(rooms) {
				end = len(rooms)
			}
			queries = append(queries, model.Query{
				City:      city,
				Rooms:     rooms[start:end],
				MaxPrice:  maxPrice,
				MinSquare: minSquare,
			})
		}
	}
	return queries
}
