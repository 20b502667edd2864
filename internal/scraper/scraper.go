package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/maltedev/tcg-price-scraper/internal/parser"
)

var (
	ErrRenderFailure = errors.New("failed to render results page")
	ErrInvalidQuery  = errors.New("invalid card query")
	ErrNoPriceFound  = parser.ErrNoPriceFound
)

const (
	DefaultSearchBaseURL = "https://www.tcgplayer.com/search/one-piece-card-game/product"
	DefaultPriceBaseURL  = "https://www.tcgplayer.com/search/all/product"

	DefaultPageSize = 24
	MaxPageSize     = 50

	minQueryLength = 2
)

// Renderer hands out a rendered page for a URL. The returned release func
// must be called once the page is no longer needed.
type Renderer interface {
	Render(ctx context.Context, url string) (dom.Page, func(), error)
}

// Publisher receives successful price lookups.
type Publisher interface {
	PublishPriceLookup(ctx context.Context, price *models.CardPrice) error
}

type nopPublisher struct{}

func (nopPublisher) PublishPriceLookup(context.Context, *models.CardPrice) error { return nil }

// Waits are the fixed delays and wait-for bounds of the render flows.
type Waits struct {
	Links        time.Duration
	Cards        time.Duration
	Settle       time.Duration
	ScrollBottom time.Duration
	ScrollTop    time.Duration
	Cookie       time.Duration
}

func DefaultWaits() Waits {
	return Waits{
		Links:        10 * time.Second,
		Cards:        15 * time.Second,
		Settle:       2 * time.Second,
		ScrollBottom: 2 * time.Second,
		ScrollTop:    time.Second,
		Cookie:       time.Second,
	}
}

// ClampPaging bounds page to >= 1 and pageSize to [1, MaxPageSize].
func ClampPaging(page, pageSize int) (int, int) {
	return max(page, 1), min(max(pageSize, 1), MaxPageSize)
}

// dismissCookieBanner clicks the consent button when one is showing.
// Failures are ignored, the banner does not block extraction.
func dismissCookieBanner(page dom.Page, settle time.Duration) {
	button, err := page.QuerySelector(parser.SelectorCookieButton)
	if err != nil || button == nil {
		return
	}
	if err := button.Click(); err != nil {
		return
	}
	page.Wait(settle)
}
