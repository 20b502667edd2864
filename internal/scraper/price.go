package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/maltedev/tcg-price-scraper/internal/parser"
)

type PriceScraper struct {
	renderer  Renderer
	extractor *parser.PriceExtractor
	publisher Publisher
	baseURL   string
	waits     Waits
	logger    *slog.Logger
}

// NewPriceScraper builds a price lookup flow. A nil publisher drops events.
func NewPriceScraper(r Renderer, extractor *parser.PriceExtractor, publisher Publisher, baseURL string, waits Waits, logger *slog.Logger) *PriceScraper {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if baseURL == "" {
		baseURL = DefaultPriceBaseURL
	}
	return &PriceScraper{
		renderer:  r,
		extractor: extractor,
		publisher: publisher,
		baseURL:   baseURL,
		waits:     waits,
		logger:    logger.With("component", "price_scraper"),
	}
}

func (s *PriceScraper) PriceURL(q models.CardQuery) string {
	return s.baseURL + "?q=" + url.QueryEscape(q.SearchTerms()) + "&view=grid"
}

// FetchPrice looks up the market price of the first listing for a card.
// It fails with ErrInvalidQuery, ErrRenderFailure or ErrNoPriceFound.
func (s *PriceScraper) FetchPrice(ctx context.Context, q models.CardQuery) (*models.CardPrice, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	priceURL := s.PriceURL(q)
	logger := s.logger.With("card_name", q.CardName, "set_name", q.SetName, "is_foil", q.IsFoil)
	logger.Info("looking up market price", "url", priceURL)

	rendered, release, err := s.renderer.Render(ctx, priceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	defer release()

	price, err := s.Extract(rendered)
	if err != nil {
		logger.Warn("no market price found", "error", err)
		return nil, err
	}

	result := models.NewCardPrice(q, price, priceURL)
	logger.Info("found market price", "market_price", price)

	if err := s.publisher.PublishPriceLookup(ctx, result); err != nil {
		logger.Error("failed to publish price lookup", "error", err)
	}
	return result, nil
}

// Extract runs the price pass over an already rendered page.
func (s *PriceScraper) Extract(rendered dom.Page) (float64, error) {
	if err := rendered.WaitForSelector(parser.SelectorProductCard, s.waits.Cards); err != nil {
		s.logger.Warn("product cards did not appear", "error", err)
	}
	rendered.Wait(s.waits.Settle)
	dismissCookieBanner(rendered, s.waits.Cookie)

	return s.extractor.Extract(rendered)
}
