package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
	"github.com/maltedev/tcg-price-scraper/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsHTML = `<html><body>
<h1>111 results for: "law" in One Piece Card Game</h1>
<div class="search-results">
<a class="product-card" href="/product/453401/one-piece-card-game-romance-dawn-trafalgar-law-047-parallel">
  <img src="https://tcgplayer-cdn.tcgplayer.com/product/453401_200w.jpg" alt="Trafalgar Law (047) (Parallel)">
  <h4>Romance Dawn</h4>
  <div><span>Super Rare,</span> <span>#OP01-047</span></div>
  <section class="product-card__market-price"><span class="product-card__market-price--value">$45.10</span></section>
</a>
<a href="/product/453401/one-piece-card-game-romance-dawn-trafalgar-law-047-parallel">Trafalgar Law</a>
<a class="product-card" href="/product/88120/pokemon-base-set-lawful-trainer">Lawful Trainer</a>
<a class="product-card" href="/product/one-piece-card-game-no-id">Broken</a>
<a class="product-card" href="/product/520011/one-piece-card-game-paramount-war-trafalgar-law-leader">
  <h4>Paramount War</h4>
  <div>Leader, #OP02-069</div>
  <div>Trafalgar Law</div>
  <div>GREEN</div>
</a>
</div>
</body></html>`

func newSearchScraper(r Renderer) *SearchScraper {
	cards := parser.NewCardParser(parser.DefaultCardParserOptions(), testLogger())
	return NewSearchScraper(r, cards, "", DefaultWaits(), testLogger())
}

func TestSearchShortQuerySkipsRenderer(t *testing.T) {
	for _, query := range []string{"", " ", "a", "  a  "} {
		t.Run(query, func(t *testing.T) {
			renderer := &fakeRenderer{html: resultsHTML}
			s := newSearchScraper(renderer)

			resp, err := s.Search(context.Background(), query, 1, 24)

			require.NoError(t, err)
			assert.Empty(t, renderer.calls)
			assert.NotNil(t, resp.Results)
			assert.Empty(t, resp.Results)
			assert.Zero(t, resp.TotalResults)
			assert.Zero(t, resp.TotalPages)
			assert.Equal(t, 1, resp.Page)
			assert.Equal(t, 24, resp.PageSize)
		})
	}
}

func TestSearchCollectsSuggestions(t *testing.T) {
	renderer := &fakeRenderer{html: resultsHTML}
	s := newSearchScraper(renderer)

	resp, err := s.Search(context.Background(), " law ", 1, 24)
	require.NoError(t, err)

	require.Len(t, renderer.calls, 1)
	assert.Equal(t, DefaultSearchBaseURL+"?q=law&view=grid&page=1", renderer.calls[0])
	assert.Equal(t, 1, renderer.released)

	require.Len(t, resp.Results, 2)
	first := resp.Results[0]
	assert.Equal(t, "Trafalgar Law (047) (Parallel)", first.CardName)
	assert.Equal(t, "Romance Dawn", *first.SetName)
	assert.Equal(t, "OP01-047", *first.CardNumber)
	assert.Equal(t, "Super Rare", *first.Rarity)
	assert.Equal(t, parser.OnePiece.Name, *first.ProductLine)
	require.NotNil(t, first.MarketPrice)
	assert.InDelta(t, 45.10, *first.MarketPrice, 0.0001)

	second := resp.Results[1]
	assert.Equal(t, "Trafalgar Law", second.CardName)
	assert.Equal(t, "Paramount War", *second.SetName)
	assert.Equal(t, "Leader", *second.CardType)
	assert.Equal(t, "GREEN", *second.Color)
	assert.Equal(t, "https://www.tcgplayer.com/product/520011/one-piece-card-game-paramount-war-trafalgar-law-leader", *second.ProductURL)
	assert.Nil(t, second.MarketPrice)

	assert.Equal(t, 111, resp.TotalResults)
	assert.Equal(t, 5, resp.TotalPages)
	assert.False(t, resp.HasNextPage)
	assert.False(t, resp.HasPreviousPage)
}

func TestSearchRenderSequence(t *testing.T) {
	renderer := &fakeRenderer{html: resultsHTML}
	s := newSearchScraper(renderer)

	_, err := s.Search(context.Background(), "law", 1, 24)
	require.NoError(t, err)

	assert.Equal(t, []string{dom.ScrollToBottom, dom.ScrollToTop}, renderer.last.Scripts())
	assert.Equal(t, 5*time.Second, renderer.last.Waited())
}

func TestSearchTruncatesToPageSize(t *testing.T) {
	html := `<html><body>
<a href="/product/1/one-piece-card-game-law-a">Trafalgar Law</a>
<a href="/product/2/one-piece-card-game-law-b">Trafalgar Law</a>
<a href="/product/3/one-piece-card-game-law-c">Trafalgar Law</a>
</body></html>`
	renderer := &fakeRenderer{html: html}
	s := newSearchScraper(renderer)

	resp, err := s.Search(context.Background(), "law", 1, 2)
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://www.tcgplayer.com/product/1/one-piece-card-game-law-a", *resp.Results[0].ProductURL)
	assert.Equal(t, "https://www.tcgplayer.com/product/2/one-piece-card-game-law-b", *resp.Results[1].ProductURL)
	assert.Equal(t, 3, resp.TotalResults)
	assert.Equal(t, 2, resp.TotalPages)
	assert.True(t, resp.HasNextPage)
}

func TestSearchClampsPaging(t *testing.T) {
	renderer := &fakeRenderer{html: resultsHTML}
	s := newSearchScraper(renderer)

	resp, err := s.Search(context.Background(), "law", 0, 500)
	require.NoError(t, err)

	assert.Equal(t, DefaultSearchBaseURL+"?q=law&view=grid&page=1", renderer.calls[0])
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, MaxPageSize, resp.PageSize)
}

func TestSearchURLEscapesQuery(t *testing.T) {
	s := newSearchScraper(&fakeRenderer{})
	assert.Equal(t,
		DefaultSearchBaseURL+"?q=monkey.d.+luffy+%26+co&view=grid&page=3",
		s.SearchURL("monkey.d. luffy & co", 3),
	)
}

func TestSearchEmptyPage(t *testing.T) {
	renderer := &fakeRenderer{html: `<html><body><h1>0 results for: "zzz"</h1></body></html>`}
	s := newSearchScraper(renderer)

	resp, err := s.Search(context.Background(), "zzz", 2, 24)
	require.NoError(t, err)

	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.TotalResults)
	assert.Zero(t, resp.TotalPages)
	assert.False(t, resp.HasNextPage)
	assert.True(t, resp.HasPreviousPage)
	assert.Equal(t, 2, resp.Page)
}

func TestSearchRenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	s := newSearchScraper(renderer)

	resp, err := s.Search(context.Background(), "law", 1, 24)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.Len(t, renderer.calls, 1)
}

func TestSearchCancelledContext(t *testing.T) {
	renderer := &fakeRenderer{html: resultsHTML}
	s := newSearchScraper(renderer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, "law", 1, 24)

	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.Equal(t, 1, renderer.released)
}
