package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/maltedev/tcg-price-scraper/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, page, pageSize int) (*models.SearchResultsResponse, error) {
	args := m.Called(ctx, query, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchResultsResponse), args.Error(1)
}

type MockPriceFetcher struct {
	mock.Mock
}

func (m *MockPriceFetcher) FetchPrice(ctx context.Context, q models.CardQuery) (*models.CardPrice, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CardPrice), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(s *MockSearcher, p *MockPriceFetcher, opts RouterOptions) http.Handler {
	return NewRouter(NewHandlers(s, p, testLogger()), opts, testLogger())
}

func TestSearchSuggestionsParams(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		query          string
		page, pageSize int
	}{
		{"Defaults", "/search-suggestions?q=law", "law", 1, 24},
		{"Camel case page size", "/search-suggestions?q=law&page=2&pageSize=10", "law", 2, 10},
		{"Snake case page size", "/api/suggestions?q=law&page=3&page_size=12", "law", 3, 12},
		{"Clamped", "/api/suggestions?q=law&page=0&page_size=99", "law", 1, 50},
		{"Malformed numbers", "/search-suggestions?q=law&page=two&pageSize=x", "law", 1, 24},
		{"Trimmed query", "/search-suggestions?q=%20%20luffy%20", "luffy", 1, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockSearcher)
			resp := &models.SearchResultsResponse{
				Results:  []models.SearchSuggestion{{Text: "Trafalgar Law", CardName: "Trafalgar Law"}},
				Page:     tt.page,
				PageSize: tt.pageSize,
			}
			searcher.On("Search", mock.Anything, tt.query, tt.page, tt.pageSize).Return(resp, nil)

			rec := httptest.NewRecorder()
			newTestServer(searcher, new(MockPriceFetcher), RouterOptions{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			searcher.AssertExpectations(t)

			var body models.SearchResultsResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.page, body.Page)
			assert.Len(t, body.Results, 1)
		})
	}
}

func TestSearchSuggestionsFailureReturnsEmptyPage(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, "law", 2, 24).
		Return(nil, fmt.Errorf("%w: timeout", scraper.ErrRenderFailure))

	rec := httptest.NewRecorder()
	newTestServer(searcher, new(MockPriceFetcher), RouterOptions{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search-suggestions?q=law&page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []any{}, body["results"])
	assert.Equal(t, float64(0), body["total_results"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(24), body["page_size"])
	assert.Equal(t, float64(0), body["total_pages"])
	assert.Equal(t, false, body["has_next_page"])
	assert.Equal(t, false, body["has_previous_page"])
}

func TestCardPrice(t *testing.T) {
	price := models.NewCardPrice(models.CardQuery{CardName: "Trafalgar Law"}, 3.78, "https://www.tcgplayer.com/search/all/product?q=Trafalgar+Law&view=grid")

	tests := []struct {
		name       string
		path       string
		body       string
		setup      func(p *MockPriceFetcher)
		wantStatus int
		wantError  string
	}{
		{
			name: "Found",
			path: "/card-price",
			body: `{"card_name":"Trafalgar Law","set_name":"","is_foil":false}`,
			setup: func(p *MockPriceFetcher) {
				p.On("FetchPrice", mock.Anything, models.CardQuery{CardName: "Trafalgar Law"}).Return(price, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Alias route",
			path: "/api/price",
			body: `{"card_name":"Trafalgar Law"}`,
			setup: func(p *MockPriceFetcher) {
				p.On("FetchPrice", mock.Anything, mock.Anything).Return(price, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Malformed body",
			path:       "/card-price",
			body:       `{"card_name":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "Missing card name",
			path:       "/card-price",
			body:       `{"set_name":"Romance Dawn"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "card_name is required",
		},
		{
			name:       "Card name too long",
			path:       "/card-price",
			body:       `{"card_name":"` + strings.Repeat("x", 121) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "card_name must be at most 120 characters",
		},
		{
			name: "No price",
			path: "/card-price",
			body: `{"card_name":"Nonexistent"}`,
			setup: func(p *MockPriceFetcher) {
				p.On("FetchPrice", mock.Anything, mock.Anything).Return(nil, scraper.ErrNoPriceFound)
			},
			wantStatus: http.StatusNotFound,
			wantError:  scraper.ErrNoPriceFound.Error(),
		},
		{
			name: "Upstream failure hides details",
			path: "/card-price",
			body: `{"card_name":"Trafalgar Law"}`,
			setup: func(p *MockPriceFetcher) {
				p.On("FetchPrice", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: net::ERR_CONNECTION_RESET at 10.0.0.7", scraper.ErrRenderFailure))
			},
			wantStatus: http.StatusBadGateway,
			wantError:  upstreamFailureMessage,
		},
		{
			name: "Unexpected error",
			path: "/card-price",
			body: `{"card_name":"Trafalgar Law"}`,
			setup: func(p *MockPriceFetcher) {
				p.On("FetchPrice", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
			},
			wantStatus: http.StatusBadGateway,
			wantError:  upstreamFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := new(MockPriceFetcher)
			if tt.setup != nil {
				tt.setup(fetcher)
			}

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			newTestServer(new(MockSearcher), fetcher, RouterOptions{}).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			fetcher.AssertExpectations(t)
			if tt.setup == nil {
				fetcher.AssertNotCalled(t, "FetchPrice", mock.Anything, mock.Anything)
			}

			if tt.wantError != "" {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantError, body["error"])
				return
			}

			var body models.CardPrice
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.InDelta(t, 3.78, body.MarketPrice, 0.0001)
			assert.Equal(t, "USD", body.Currency)
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(new(MockSearcher), new(MockPriceFetcher), RouterOptions{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
