// Package krisha fetches full-apartment listings from the krisha.kz
// search pages.
package krisha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rentbot/internal/cities"
	"rentbot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client downloads and parses listing search pages. The site accepts a
// single room count per request, so a query with N room values costs N
// requests.
type Client struct {
	client  HTTPClient
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Client with the given HTTP client.
func New(client HTTPClient, log *slog.Logger) *Client {
	return &Client{
		client:  client,
		baseURL: "https://krisha.kz",
		timeout: 30 * time.Second,
		log:     log,
	}
}

// NewWithBaseURL creates a Client against a custom base URL (useful for testing).
func NewWithBaseURL(client HTTPClient, baseURL string, log *slog.Logger) *Client {
	c := New(client, log)
	c.baseURL = baseURL
	return c
}

var squareRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*м²`)

// Fetch runs one planned query against the site and returns the parsed
// listings. An unknown city is a configuration error; a page with no
// result cards is an ordinary empty result. A failed request for one room
// value is logged and skipped, so a partial result is still returned.
func (c *Client) Fetch(ctx context.Context, q model.Query) ([]model.Apartment, error) {
	slug, ok := cities.Slug(q.City)
	if !ok {
		return nil, fmt.Errorf("unknown city %q", q.City)
	}
	city := cities.Normalize(q.City)

	var apartments []model.Apartment
	for _, rooms := range q.Rooms {
		pageURL := c.searchURL(slug, rooms, q.MaxPrice, q.MinSquare)

		page, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			c.log.Error("fetch listing page", "url", pageURL, "error", err)
			continue
		}

		parsed := parseListings(page, c.baseURL, city, rooms)
		c.log.Debug("parsed listing page", "city", city, "rooms", rooms, "count", len(parsed))
		apartments = append(apartments, parsed...)
	}
	return apartments, nil
}

func (c *Client) searchURL(slug string, rooms int, maxPrice int64, minSquare float64) string {
	u := fmt.Sprintf("%s/arenda/kvartiry/%s/?%s=%d", c.baseURL, slug,
		url.QueryEscape("das[live.rooms]"), rooms)
	if maxPrice > 0 {
		u += fmt.Sprintf("&%s=%d", url.QueryEscape("das[price][to]"), maxPrice)
	}
	if minSquare > 0 {
		u += fmt.Sprintf("&%s=%d", url.QueryEscape("das[live.square][from]"), int64(minSquare))
	}
	return u
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// parseListings extracts apartments from the result cards of a search page.
func parseListings(doc *goquery.Document, baseURL, city string, rooms int) []model.Apartment {
	var out []model.Apartment

	doc.Find("div.a-card").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("div.a-card__header a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}

		priceText := card.Find("div.a-card__price").First().Text()
		price, ok := parsePrice(priceText)
		if !ok {
			return
		}

		a := model.Apartment{
			URL:    absoluteURL(baseURL, href),
			Price:  price,
			Rooms:  rooms,
			City:   city,
			Street: strings.TrimSpace(card.Find("div.a-card__subtitle").First().Text()),
		}

		title := card.Find("a.a-card__title").First().Text()
		if m := squareRe.FindStringSubmatch(title); m != nil {
			a.Square, _ = strconv.ParseFloat(m[1], 64)
		}

		// District and housing complex have no stable classes; they show
		// up as text-only divs marked "р-н" and "ЖК" respectively.
		card.Find("div").Each(func(_ int, d *goquery.Selection) {
			if d.Children().Length() > 0 {
				return
			}
			text := strings.TrimSpace(d.Text())
			switch {
			case a.District == "" && strings.Contains(text, "р-н"):
				a.District = text
			case a.ComplexName == "" && strings.Contains(text, "ЖК"):
				a.ComplexName = text
			}
		})

		card.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, ok := img.Attr("data-src")
			if !ok {
				src, ok = img.Attr("src")
			}
			if !ok || src == "" {
				return true
			}
			a.PhotoURLs = append(a.PhotoURLs, absoluteURL(baseURL, src))
			return len(a.PhotoURLs) < 3
		})

		out = append(out, a)
	})

	return out
}

// parsePrice keeps only the digits of a price string. Fractional prices
// truncate rather than round.
func parsePrice(s string) (int64, bool) {
	var b strings.Builder
	for _, r := range s {
		if r == '.' || r == ',' {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func absoluteURL(baseURL, href string) string {
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	default:
		return baseURL + href
	}
}
