package parser

import (
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
)

// PriceWaits bounds how long the extractor waits for the grid to render
// before it starts reading.
type PriceWaits struct {
	Cards  time.Duration
	Price  time.Duration
	Settle time.Duration
}

func DefaultPriceWaits() PriceWaits {
	return PriceWaits{
		Cards:  15 * time.Second,
		Price:  10 * time.Second,
		Settle: 5 * time.Second,
	}
}

type priceTier struct {
	name string
	find func(page dom.Page) (float64, bool)
}

// PriceExtractor finds the market price of the first listing on a results
// page. Tiers run in order and the first valid value wins.
type PriceExtractor struct {
	waits  PriceWaits
	tiers  []priceTier
	logger *slog.Logger
}

func NewPriceExtractor(waits PriceWaits, logger *slog.Logger) *PriceExtractor {
	e := &PriceExtractor{
		waits:  waits,
		logger: logger.With("component", "price_extractor"),
	}
	e.tiers = []priceTier{
		{name: "primary", find: e.fromSelector(SelectorPriceValue)},
		{name: "fallback", find: e.fromSelector(SelectorPriceFallback)},
		{name: "all_values", find: e.fromAllValues},
		{name: "page_text", find: e.fromPageText},
	}
	return e
}

// Extract returns the first valid market price on page or ErrNoPriceFound.
func (e *PriceExtractor) Extract(page dom.Page) (float64, error) {
	e.waitForPrices(page)

	for _, tier := range e.tiers {
		if price, ok := tier.find(page); ok {
			e.logger.Info("market price extracted", "tier", tier.name, "price", price)
			return price, nil
		}
		e.logger.Debug("price tier found nothing", "tier", tier.name)
	}

	e.logger.Error("no market price found", "url", page.URL())
	return 0, ErrNoPriceFound
}

// waitForPrices never fails: rendering may still be in flight, so a timeout
// only buys an extra settle delay.
func (e *PriceExtractor) waitForPrices(page dom.Page) {
	if err := page.WaitForSelector(SelectorProductCard, e.waits.Cards); err != nil {
		e.logger.Warn("product cards did not appear", "error", err)
		page.Wait(e.waits.Settle)
		return
	}
	if err := page.WaitForSelector(SelectorPriceValue, e.waits.Price); err != nil {
		e.logger.Warn("price value did not appear", "error", err)
		page.Wait(e.waits.Settle)
	}
}

func (e *PriceExtractor) fromSelector(selector string) func(dom.Page) (float64, bool) {
	return func(page dom.Page) (float64, bool) {
		el, err := page.QuerySelector(selector)
		if err != nil || el == nil {
			return 0, false
		}
		return e.elementPrice(el)
	}
}

func (e *PriceExtractor) fromAllValues(page dom.Page) (float64, bool) {
	elements, err := page.QuerySelectorAll(SelectorPriceAll)
	if err != nil {
		return 0, false
	}
	e.logger.Debug("price value elements on page", "count", len(elements))

	for _, el := range elements {
		if price, ok := e.elementPrice(el); ok {
			return price, true
		}
	}
	return 0, false
}

func (e *PriceExtractor) fromPageText(page dom.Page) (float64, bool) {
	text, err := page.InnerText("body")
	if err != nil {
		return 0, false
	}
	return PriceFromText(text)
}

func (e *PriceExtractor) elementPrice(el dom.Element) (float64, bool) {
	text, err := el.InnerText()
	if err != nil || !strings.Contains(text, "$") {
		return 0, false
	}
	price, ok := ParsePrice(text)
	if !ok {
		e.logger.Debug("rejected price text", "text", text)
	}
	return price, ok
}

// PriceFromText scans free text for "$12.50" and then "12.50 USD" forms and
// returns the first match inside the accepted range.
func PriceFromText(text string) (float64, bool) {
	for _, pattern := range pageTextPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if price, ok := validPrice(match[1]); ok {
				return price, true
			}
		}
	}
	return 0, false
}
