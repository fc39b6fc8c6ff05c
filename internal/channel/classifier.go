// Package channel ingests room-sharing offers posted to monitored
// Telegram channels.
package channel

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"rentbot/internal/cities"
	"rentbot/internal/model"
)

// Classification is the structured reading of one channel post.
type Classification struct {
	// IsOffer reports whether the post advertises a room for rent at all.
	// Posts that are questions, search requests or chatter are dropped.
	IsOffer         bool
	MonthlyPrice    int64
	PreferredGender model.PreferredGender
	Location        string
	Contact         string
	City            string
}

// Classifier extracts a Classification from raw post text. Implementations
// may call out to an external model; errors fail only the single post.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// KeywordClassifier is a heuristic Classifier built on keyword and pattern
// matching. It favours precision: a post with no offer keyword is dropped
// even if it mentions a price.
type KeywordClassifier struct{}

var (
	offerKeywords = []string{
		"подселение",
		"сдаю",
		"сдается",
		"сдаётся",
		"ищу сосед",
		"ищем сосед",
		"возьму на подселение",
	}

	priceRe   = regexp.MustCompile(`(\d[\d\s]{3,})\s*(?:тг|тенге|₸)`)
	phoneRe   = regexp.MustCompile(`(?:\+7|8)[\s\-(]*7\d[\d\s\-()]{7,}`)
	mentionRe = regexp.MustCompile(`@[A-Za-z]\w{3,}`)
)

func (KeywordClassifier) Classify(_ context.Context, text string) (Classification, error) {
	lower := strings.ToLower(text)

	var c Classification
	for _, kw := range offerKeywords {
		if strings.Contains(lower, kw) {
			c.IsOffer = true
			break
		}
	}
	if !c.IsOffer {
		return c, nil
	}

	c.PreferredGender = detectGender(lower)
	c.City = cities.Detect(lower)
	c.MonthlyPrice = detectPrice(lower)
	c.Contact = detectContact(text)
	c.Location = detectLocation(text)
	return c, nil
}

func detectGender(lower string) model.PreferredGender {
	girl := strings.Contains(lower, "девушк")
	boy := strings.Contains(lower, "парн") || strings.Contains(lower, "парен")
	switch {
	case girl && boy:
		return model.PreferBoth
	case girl:
		return model.PreferGirl
	case boy:
		return model.PreferBoy
	}
	return model.PreferNone
}

func detectPrice(lower string) int64 {
	m := priceRe.FindStringSubmatch(lower)
	if m == nil {
		return 0
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[1])
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func detectContact(text string) string {
	if m := phoneRe.FindString(text); m != "" {
		return strings.Join(strings.Fields(m), " ")
	}
	return mentionRe.FindString(text)
}

// detectLocation takes the line mentioning a district or street marker, if
// any. Free-form posts rarely structure the address better than that.
func detectLocation(text string) string {
	markers := []string{"район", "мкр", "ул.", "улица", "пр.", "проспект", "жк "}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}
