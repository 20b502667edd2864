package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRateLimitPerClient(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(models.EmptyResults(1, 24), nil)

	server := newTestServer(searcher, new(MockPriceFetcher), RouterOptions{RatePerMinute: 1, RateBurst: 2})

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/search-suggestions?q=law", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("198.51.100.7:5000").Code)
	assert.Equal(t, http.StatusOK, call("198.51.100.7:5001").Code)

	limited := call("198.51.100.7:5002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, call("203.0.113.9:5000").Code, "other clients keep their own budget")
}

func TestRateLimitSkipsHealth(t *testing.T) {
	server := newTestServer(new(MockSearcher), new(MockPriceFetcher), RouterOptions{RatePerMinute: 1, RateBurst: 1})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(models.EmptyResults(1, 24), nil)
	server := newTestServer(searcher, new(MockPriceFetcher), RouterOptions{})

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search-suggestions?q=law", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5000"
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.RemoteAddr = "198.51.100.7"
	assert.Equal(t, "198.51.100.7", clientIP(req))
}
