package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const DefaultCurrency = "USD"

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CardQuery is the input of a price lookup.
type CardQuery struct {
	CardName string `json:"card_name" validate:"required,max=120"`
	SetName  string `json:"set_name" validate:"max=120"`
	IsFoil   bool   `json:"is_foil"`
}

// Validate checks the field bounds after trimming surrounding whitespace,
// so a blank card name is rejected.
func (q CardQuery) Validate() error {
	trimmed := CardQuery{
		CardName: strings.TrimSpace(q.CardName),
		SetName:  strings.TrimSpace(q.SetName),
		IsFoil:   q.IsFoil,
	}
	return validate.Struct(trimmed)
}

// SearchTerms is the free-text query sent to the marketplace search:
// the card name, then the set name when given, then "foil".
func (q CardQuery) SearchTerms() string {
	terms := strings.TrimSpace(q.CardName)
	if set := strings.TrimSpace(q.SetName); set != "" {
		terms += " " + set
	}
	if q.IsFoil {
		terms += " foil"
	}
	return terms
}

// CardPrice is the result of a successful price lookup.
type CardPrice struct {
	CardName    string  `json:"card_name"`
	SetName     string  `json:"set_name"`
	IsFoil      bool    `json:"is_foil"`
	MarketPrice float64 `json:"market_price"`
	Currency    string  `json:"currency"`
	SourceURL   string  `json:"source_url"`
}

func NewCardPrice(q CardQuery, marketPrice float64, sourceURL string) *CardPrice {
	return &CardPrice{
		CardName:    q.CardName,
		SetName:     q.SetName,
		IsFoil:      q.IsFoil,
		MarketPrice: marketPrice,
		Currency:    DefaultCurrency,
		SourceURL:   sourceURL,
	}
}

// SearchSuggestion is one product card of a results page. Everything but
// Text and CardName is best effort and null when extraction found nothing.
type SearchSuggestion struct {
	Text        string   `json:"text"`
	CardName    string   `json:"card_name"`
	SetName     *string  `json:"set_name"`
	ProductLine *string  `json:"product_line"`
	ImageURL    *string  `json:"image_url"`
	ProductURL  *string  `json:"product_url"`
	MarketPrice *float64 `json:"market_price"`
	Rarity      *string  `json:"rarity"`
	CardNumber  *string  `json:"card_number"`
	CardType    *string  `json:"card_type"`
	Color       *string  `json:"color"`
}

// SearchResultsResponse is one page of suggestions plus pagination metadata.
// TotalResults is an estimate unless the page reported an exact count.
type SearchResultsResponse struct {
	Results         []SearchSuggestion `json:"results"`
	TotalResults    int                `json:"total_results"`
	Page            int                `json:"page"`
	PageSize        int                `json:"page_size"`
	TotalPages      int                `json:"total_pages"`
	HasNextPage     bool               `json:"has_next_page"`
	HasPreviousPage bool               `json:"has_previous_page"`
}

func EmptyResults(page, pageSize int) *SearchResultsResponse {
	return &SearchResultsResponse{
		Results:  []SearchSuggestion{},
		Page:     page,
		PageSize: pageSize,
	}
}

// OptionalString returns nil for an empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
