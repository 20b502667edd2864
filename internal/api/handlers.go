package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/maltedev/tcg-price-scraper/internal/scraper"
)

const upstreamFailureMessage = "failed to communicate with TCGplayer or to process its response"

type Searcher interface {
	Search(ctx context.Context, query string, page, pageSize int) (*models.SearchResultsResponse, error)
}

type PriceFetcher interface {
	FetchPrice(ctx context.Context, q models.CardQuery) (*models.CardPrice, error)
}

type Handlers struct {
	search Searcher
	prices PriceFetcher
	logger *slog.Logger
}

func NewHandlers(search Searcher, prices PriceFetcher, logger *slog.Logger) *Handlers {
	return &Handlers{
		search: search,
		prices: prices,
		logger: logger.With("component", "api"),
	}
}

// SearchSuggestions always answers 200 with a well-formed page. Scrape
// failures are logged and turned into an empty page.
func (h *Handlers) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("q"))
	page := queryInt(params.Get("page"), 1)
	pageSize := queryInt(firstNonEmpty(params.Get("pageSize"), params.Get("page_size")), scraper.DefaultPageSize)
	page, pageSize = scraper.ClampPaging(page, pageSize)

	resp, err := h.search.Search(r.Context(), query, page, pageSize)
	if err != nil {
		h.logger.Error("failed to get suggestions", "error", err, "query", query, "page", page)
		resp = models.EmptyResults(page, pageSize)
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// CardPrice looks up the market price of one card.
func (h *Handlers) CardPrice(w http.ResponseWriter, r *http.Request) {
	var req models.CardQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	price, err := h.prices.FetchPrice(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, scraper.ErrInvalidQuery):
			h.respondError(w, http.StatusBadRequest, "invalid card query")
		case errors.Is(err, scraper.ErrNoPriceFound):
			h.respondError(w, http.StatusNotFound, scraper.ErrNoPriceFound.Error())
		default:
			h.logger.Error("failed to fetch price", "error", err, "card_name", req.CardName)
			h.respondError(w, http.StatusBadGateway, upstreamFailureMessage)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, price)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid card query"
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return "invalid " + fe.Field()
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
