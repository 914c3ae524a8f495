// Package catalog looks cards up in the public Scryfall catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// MinQueryLength is the shortest query that reaches the catalog.
	MinQueryLength = 2
	// MaxResults caps the number of cards returned per search.
	MaxResults = 20
)

// ErrUpstream wraps transport failures and non-2xx catalog responses.
var ErrUpstream = errors.New("catalog upstream error")

// Card is a catalog entry as offered to the client for selection.
type Card struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	SetName string  `json:"set_name"`
	Price   *string `json:"price"`
	Images  Images  `json:"images"`
}

// Images holds the small and normal image URLs of a card.
type Images struct {
	Small  string `json:"small,omitempty"`
	Normal string `json:"normal,omitempty"`
}

// Lookup searches the catalog by free-text query.
type Lookup interface {
	Search(ctx context.Context, query string) ([]Card, error)
}

// ScryfallClient queries /cards/search with every printing of each card.
type ScryfallClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewScryfallClient creates a client. ratePerSec <= 0 disables limiting.
func NewScryfallClient(baseURL string, timeout time.Duration, ratePerSec float64) *ScryfallClient {
	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = int(ratePerSec)
		if burst < 1 {
			burst = 1
		}
	}
	return &ScryfallClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		log:     slog.With("component", "catalog"),
	}
}

type scryfallImageURIs struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
}

type scryfallCard struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	SetName   string             `json:"set_name"`
	ImageURIs *scryfallImageURIs `json:"image_uris"`
	CardFaces []struct {
		ImageURIs *scryfallImageURIs `json:"image_uris"`
	} `json:"card_faces"`
	Prices struct {
		USD *string `json:"usd"`
	} `json:"prices"`
}

type scryfallList struct {
	Data []scryfallCard `json:"data"`
}

// Search returns up to MaxResults printings matching query. A query shorter
// than MinQueryLength returns no cards without calling the catalog. A catalog
// "no match" (404) is an empty result, not an error.
func (c *ScryfallClient) Search(ctx context.Context, query string) ([]Card, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []Card{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrUpstream, err)
	}

	endpoint := fmt.Sprintf("%s/cards/search?q=%s&unique=prints", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cardpool-backend/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	c.log.Debug("catalog search", "query", query, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return []Card{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var list scryfallList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	data := list.Data
	if len(data) > MaxResults {
		data = data[:MaxResults]
	}

	cards := make([]Card, 0, len(data))
	for _, sc := range data {
		cards = append(cards, toCard(sc))
	}
	return cards, nil
}

func toCard(sc scryfallCard) Card {
	card := Card{
		ID:      sc.ID,
		Name:    sc.Name,
		SetName: sc.SetName,
	}

	uris := sc.ImageURIs
	if uris == nil && len(sc.CardFaces) > 0 {
		uris = sc.CardFaces[0].ImageURIs
	}
	if uris != nil {
		card.Images = Images{Small: uris.Small, Normal: uris.Normal}
	}

	if sc.Prices.USD != nil {
		if d, err := decimal.NewFromString(*sc.Prices.USD); err == nil && !d.IsNegative() {
			p := d.StringFixed(2)
			card.Price = &p
		}
	}
	return card
}
