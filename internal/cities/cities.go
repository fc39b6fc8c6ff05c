// Package cities maps city names to the scraped site's URL slugs and
// normalizes the spelling variants that show up in channel ads.
package cities

import "strings"

// slugs maps the canonical lowercase city name to the site's URL path slug.
var slugs = map[string]string{
	"алматы":           "almaty",
	"астана":           "astana",
	"шымкент":          "shymkent",
	"актау":            "aktau",
	"актобе":           "aktobe",
	"атырау":           "atyrau",
	"караганда":        "karaganda",
	"кокшетау":         "kokshetau",
	"костанай":         "kostanay",
	"кызылорда":        "kyzylorda",
	"павлодар":         "pavlodar",
	"петропавловск":    "petropavlovsk",
	"семей":            "semey",
	"талдыкорган":      "taldykorgan",
	"тараз":            "taraz",
	"туркестан":        "turkestan",
	"уральск":          "uralsk",
	"усть-каменогорск": "ust-kamenogorsk",
	"экибастуз":        "ekibastuz",
}

// aliases maps common misspellings and former names to the canonical name.
var aliases = map[string]string{
	"алмата":    "алматы",
	"алмаата":   "алматы",
	"алма-ата":  "алматы",
	"алма-аты":  "алматы",
	"астаны":    "астана",
	"астане":    "астана",
	"нурсултан": "астана",
	"алмате":    "алматы",
}

// Normalize lowercases a city name and resolves known aliases to the
// canonical spelling. The input may be either the local name or the URL
// slug; slugs are translated back to the local name.
func Normalize(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	if canonical, ok := aliases[c]; ok {
		return canonical
	}
	if local, ok := bySlug[c]; ok {
		return local
	}
	return c
}

// Slug returns the site URL slug for a city and whether the city is known.
func Slug(city string) (string, bool) {
	s, ok := slugs[Normalize(city)]
	return s, ok
}

// Known reports whether the city resolves to a supported site location.
func Known(city string) bool {
	_, ok := Slug(city)
	return ok
}

// Equal compares two city names after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Detect returns the canonical name of the first known city or alias
// mentioned in free-form text, or "" when none is found.
func Detect(text string) string {
	t := strings.ToLower(text)
	for name := range slugs {
		if strings.Contains(t, name) {
			return name
		}
	}
	for alias, canonical := range aliases {
		if strings.Contains(t, alias) {
			return canonical
		}
	}
	return ""
}

var bySlug = func() map[string]string {
	m := make(map[string]string, len(slugs))
	for local, slug := range slugs {
		m[slug] = local
	}
	return m
}()
