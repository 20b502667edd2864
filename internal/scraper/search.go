package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/maltedev/tcg-price-scraper/internal/parser"
)

type SearchScraper struct {
	renderer   Renderer
	cards      *parser.CardParser
	pagination *parser.PaginationEstimator
	baseURL    string
	waits      Waits
	logger     *slog.Logger
}

func NewSearchScraper(r Renderer, cards *parser.CardParser, baseURL string, waits Waits, logger *slog.Logger) *SearchScraper {
	if baseURL == "" {
		baseURL = DefaultSearchBaseURL
	}
	return &SearchScraper{
		renderer:   r,
		cards:      cards,
		pagination: parser.NewPaginationEstimator(),
		baseURL:    baseURL,
		waits:      waits,
		logger:     logger.With("component", "search_scraper"),
	}
}

// SearchURL is the results grid URL for a query and 1-based page.
func (s *SearchScraper) SearchURL(query string, page int) string {
	return s.baseURL + "?q=" + url.QueryEscape(query) + "&view=grid&page=" + strconv.Itoa(page)
}

// Search renders one results page and returns its suggestions. Queries
// shorter than two characters return an empty page without rendering.
func (s *SearchScraper) Search(ctx context.Context, query string, page, pageSize int) (*models.SearchResultsResponse, error) {
	page, pageSize = ClampPaging(page, pageSize)
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return models.EmptyResults(page, pageSize), nil
	}

	searchURL := s.SearchURL(query, page)
	logger := s.logger.With("query", query, "page", page)
	logger.Info("searching suggestions", "url", searchURL)

	rendered, release, err := s.renderer.Render(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	defer release()

	return s.Extract(ctx, rendered, query, page, pageSize)
}

// Extract runs the suggestion pass over an already rendered page.
func (s *SearchScraper) Extract(ctx context.Context, rendered dom.Page, query string, page, pageSize int) (*models.SearchResultsResponse, error) {
	logger := s.logger.With("query", query, "page", page)

	if err := rendered.WaitForSelector(parser.SelectorProductLink, s.waits.Links); err != nil {
		logger.Warn("product links did not appear", "error", err)
	}
	dismissCookieBanner(rendered, s.waits.Cookie)
	rendered.Wait(s.waits.Settle)

	headingTotal, headingFound := s.pagination.HeadingTotal(rendered)

	if err := s.loadLazyContent(rendered); err != nil {
		logger.Warn("failed to scroll results", "error", err)
	}

	links, err := rendered.QuerySelectorAll(parser.SelectorProductLink)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list product links: %v", ErrRenderFailure, err)
	}

	suggestions := make([]models.SearchSuggestion, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
		}

		href, err := link.GetAttribute("href")
		if err != nil || !s.cards.MatchesTarget(href) {
			continue
		}
		if _, ok := seen[href]; ok {
			continue
		}
		seen[href] = struct{}{}

		suggestion, err := s.cards.ParseElement(link, query)
		if err != nil {
			logger.Debug("skipping card", "href", href, "error", err)
			continue
		}
		suggestions = append(suggestions, suggestion)
	}

	rawCount := len(suggestions)
	if rawCount > pageSize {
		suggestions = suggestions[:pageSize]
	}
	p := parser.Paginate(headingTotal, headingFound, page, pageSize, rawCount)

	logger.Info("collected suggestions",
		"links", len(links),
		"kept", rawCount,
		"total_results", p.TotalResults,
		"exact_total", p.Exact,
	)

	return &models.SearchResultsResponse{
		Results:         suggestions,
		TotalResults:    p.TotalResults,
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      p.TotalPages,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	}, nil
}

// loadLazyContent scrolls to the bottom and back so lazily rendered cards
// materialize.
func (s *SearchScraper) loadLazyContent(rendered dom.Page) error {
	if err := rendered.Evaluate(dom.ScrollToBottom); err != nil {
		return fmt.Errorf("failed to scroll to bottom: %w", err)
	}
	rendered.Wait(s.waits.ScrollBottom)
	if err := rendered.Evaluate(dom.ScrollToTop); err != nil {
		return fmt.Errorf("failed to scroll to top: %w", err)
	}
	rendered.Wait(s.waits.ScrollTop)
	return nil
}
