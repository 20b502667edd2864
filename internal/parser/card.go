package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
	"github.com/maltedev/tcg-price-scraper/internal/models"
)

// ParsedCard holds the raw fragments read from one product card. It is owned
// by a single search pass and thrown away once parsed.
type ParsedCard struct {
	Href        string
	ProductID   string
	CardText    string
	TitleText   string
	HeadingText string
	ImageAlt    string
	ImageSrc    string
	PriceText   string
}

type CardParserOptions struct {
	Target      ProductLine
	SiteBaseURL string
	CDNHost     string
}

func DefaultCardParserOptions() CardParserOptions {
	return CardParserOptions{
		Target:      OnePiece,
		SiteBaseURL: DefaultSiteBaseURL,
		CDNHost:     DefaultCDNHost,
	}
}

// CardParser decomposes product cards into suggestions. It holds no per-card
// state and is safe for concurrent use.
type CardParser struct {
	opts CardParserOptions

	productIDPattern   *regexp.Regexp
	cardNumberPatterns []*regexp.Regexp
	cardNumberLine     *regexp.Regexp
	shortRarity        map[string]*regexp.Regexp

	logger *slog.Logger
}

func NewCardParser(opts CardParserOptions, logger *slog.Logger) *CardParser {
	p := &CardParser{
		opts:             opts,
		productIDPattern: regexp.MustCompile(`/product/(\d+)`),
		cardNumberPatterns: []*regexp.Regexp{
			regexp.MustCompile(`#([A-Z]{2}\d{2}-\d{3})`),
			regexp.MustCompile(`#([A-Z0-9/-]+)`),
		},
		cardNumberLine: regexp.MustCompile(`^[A-Z]{2}\d{2}-\d{3}`),
		shortRarity:    make(map[string]*regexp.Regexp),
		logger:         logger.With("component", "card_parser"),
	}
	for _, keyword := range rarityKeywords {
		if len(keyword) == 1 {
			p.shortRarity[keyword] = regexp.MustCompile(`\b` + keyword + `\b`)
		}
	}
	return p
}

// Target is the product line whose cards are kept.
func (p *CardParser) Target() ProductLine {
	return p.opts.Target
}

// ParseElement reads and parses one card. Any error wraps ErrSkipCard.
func (p *CardParser) ParseElement(card dom.Element, query string) (models.SearchSuggestion, error) {
	raw, err := p.Collect(card)
	if err != nil {
		return models.SearchSuggestion{}, err
	}
	return p.Parse(raw, query)
}

// Collect reads the raw fragments of a card from the page.
func (p *CardParser) Collect(card dom.Element) (ParsedCard, error) {
	href, err := card.GetAttribute("href")
	if err != nil {
		return ParsedCard{}, fmt.Errorf("%w: failed to read href: %v", ErrSkipCard, err)
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return ParsedCard{}, fmt.Errorf("%w: missing href", ErrSkipCard)
	}

	match := p.productIDPattern.FindStringSubmatch(href)
	if match == nil {
		return ParsedCard{}, fmt.Errorf("%w: no product id in %q", ErrSkipCard, href)
	}

	text, err := card.InnerText()
	if err != nil {
		return ParsedCard{}, fmt.Errorf("%w: failed to read card text: %v", ErrSkipCard, err)
	}

	raw := ParsedCard{
		Href:        href,
		ProductID:   match[1],
		CardText:    strings.TrimSpace(text),
		TitleText:   childText(card, SelectorTitle),
		HeadingText: childText(card, SelectorSetHeading),
		PriceText:   childText(card, SelectorPriceValue),
	}

	if img, err := card.QuerySelector(SelectorImage); err == nil && img != nil {
		raw.ImageSrc, _ = img.GetAttribute("src")
		raw.ImageAlt, _ = img.GetAttribute("alt")
		if raw.ImageAlt == "" {
			raw.ImageAlt, _ = img.GetAttribute("title")
		}
	}

	return raw, nil
}

// Parse is a pure function of its inputs: parsing the same fragments twice
// yields the same suggestion.
func (p *CardParser) Parse(raw ParsedCard, query string) (models.SearchSuggestion, error) {
	line, _ := InferProductLine(raw.Href)
	if !p.isTarget(raw.Href, line) {
		return models.SearchSuggestion{}, fmt.Errorf("%w: %q is not %s", ErrSkipCard, raw.Href, p.opts.Target.Name)
	}

	c := &cardContext{
		raw:   raw,
		query: query,
		lines: splitLines(raw.CardText),
	}
	c.cardNumber = p.cardNumber(raw.CardText)

	suggestion := models.SearchSuggestion{
		Text:        excerpt(raw.CardText, excerptLength),
		CardName:    p.cardName(c),
		SetName:     models.OptionalString(p.setName(c)),
		ProductLine: models.OptionalString(p.opts.Target.Name),
		ImageURL:    models.OptionalString(p.imageURL(raw)),
		ProductURL:  models.OptionalString(p.productURL(raw.Href)),
		Rarity:      models.OptionalString(p.rarity(raw.CardText)),
		CardNumber:  models.OptionalString(c.cardNumber),
		CardType:    models.OptionalString(firstSubstring(raw.CardText, cardTypeKeywords)),
		Color:       models.OptionalString(color(raw.CardText, raw.Href)),
	}
	if raw.PriceText != "" {
		if price, ok := ParsePrice(raw.PriceText); ok {
			suggestion.MarketPrice = &price
		}
	}

	return suggestion, nil
}

// InferProductLine maps href keywords to the game the listing belongs to.
func InferProductLine(href string) (ProductLine, bool) {
	lower := strings.ToLower(href)
	for _, line := range productLines {
		for _, marker := range line.Markers {
			if strings.Contains(lower, marker) {
				return line, true
			}
		}
	}
	return ProductLine{}, false
}

// MatchesTarget reports whether an href belongs to the target line by
// substring alone, before a card is parsed.
func (p *CardParser) MatchesTarget(href string) bool {
	lower := strings.ToLower(href)
	for _, marker := range p.opts.Target.Markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (p *CardParser) isTarget(href string, line ProductLine) bool {
	return p.MatchesTarget(href) || line.Name == p.opts.Target.Name
}

type cardContext struct {
	raw        ParsedCard
	query      string
	lines      []string
	cardNumber string
}

// fieldTier is one heuristic for a field. Tiers are listed by confidence.
type fieldTier func(c *cardContext) (string, bool)

func firstOf(c *cardContext, tiers ...fieldTier) (string, bool) {
	for _, tier := range tiers {
		if value, ok := tier(c); ok {
			return value, true
		}
	}
	return "", false
}

func (p *CardParser) cardNumber(text string) string {
	for _, pattern := range p.cardNumberPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return match[1]
		}
	}
	return ""
}

func (p *CardParser) setName(c *cardContext) string {
	name, _ := firstOf(c, setFromHeading, p.setFromFirstLine, setFromCardNumber)
	return name
}

func setFromHeading(c *cardContext) (string, bool) {
	heading := strings.TrimSpace(c.raw.HeadingText)
	return heading, heading != ""
}

func (p *CardParser) setFromFirstLine(c *cardContext) (string, bool) {
	if len(c.lines) == 0 {
		return "", false
	}
	first := c.lines[0]
	if strings.HasPrefix(first, "#") || isRarityKeyword(first) || len(first) <= 2 || p.cardNumberLine.MatchString(first) {
		return "", false
	}
	return first, true
}

func setFromCardNumber(c *cardContext) (string, bool) {
	prefix, _, found := strings.Cut(c.cardNumber, "-")
	if !found || prefix == "" {
		return "", false
	}
	return prefix, true
}

// cardName falls back to the query itself, which callers read as
// "unresolved".
func (p *CardParser) cardName(c *cardContext) string {
	name, ok := firstOf(c, nameFromImage, nameFromTitle, nameFromQueryLine, nameAfterCardNumber)
	if !ok {
		return c.query
	}
	return name
}

// nameFromImage uses the image alt text, which carries the full variant
// annotation.
func nameFromImage(c *cardContext) (string, bool) {
	alt := strings.TrimSpace(c.raw.ImageAlt)
	if alt == "" || !containsFold(alt, c.query) {
		return "", false
	}
	return alt, true
}

func nameFromTitle(c *cardContext) (string, bool) {
	for _, line := range splitLines(c.raw.TitleText) {
		if containsFold(line, c.query) || (c.cardNumber != "" && strings.Contains(line, c.cardNumber)) {
			return line, true
		}
	}
	return "", false
}

func nameFromQueryLine(c *cardContext) (string, bool) {
	for i, line := range c.lines {
		if !containsFold(line, c.query) {
			continue
		}
		if hasVariant(line) {
			return line, true
		}
		return withVariant(line, c.lines, i+1, i+4), true
	}
	return "", false
}

func nameAfterCardNumber(c *cardContext) (string, bool) {
	if c.cardNumber == "" {
		return "", false
	}
	for i, line := range c.lines {
		if !strings.Contains(line, c.cardNumber) || i+1 >= len(c.lines) {
			continue
		}
		candidate := c.lines[i+1]
		if len(candidate) <= 2 || isRarityKeyword(candidate) {
			continue
		}
		return withVariant(candidate, c.lines, i+2, i+4), true
	}
	return "", false
}

// withVariant appends the first line in lines[from:to] that carries a
// variant marker.
func withVariant(name string, lines []string, from, to int) string {
	if to > len(lines) {
		to = len(lines)
	}
	for j := from; j < to; j++ {
		if hasVariant(lines[j]) {
			return name + " " + lines[j]
		}
	}
	return name
}

func hasVariant(line string) bool {
	for _, marker := range variantMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

func isRarityKeyword(s string) bool {
	for _, keyword := range rarityKeywords {
		if s == keyword {
			return true
		}
	}
	return false
}

// rarity walks the priority table. A hit is upgraded to a longer keyword
// that contains it and also matches, so "Super Rare" is not read as "Rare".
// One-letter codes only match as standalone tokens.
func (p *CardParser) rarity(text string) string {
	for _, keyword := range rarityKeywords {
		if !p.hasRarity(text, keyword) {
			continue
		}
		best := keyword
		for _, longer := range rarityKeywords {
			if len(longer) > len(best) && strings.Contains(longer, best) && p.hasRarity(text, longer) {
				best = longer
			}
		}
		return best
	}
	return ""
}

func (p *CardParser) hasRarity(text, keyword string) bool {
	if pattern, ok := p.shortRarity[keyword]; ok {
		return pattern.MatchString(text)
	}
	return strings.Contains(text, keyword)
}

func firstSubstring(text string, keywords []string) string {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return keyword
		}
	}
	return ""
}

// color checks the card text case-insensitively, then the href.
func color(text, href string) string {
	upper := strings.ToUpper(text)
	for _, keyword := range colorKeywords {
		if strings.Contains(upper, keyword) {
			return keyword
		}
	}
	lowerHref := strings.ToLower(href)
	for _, keyword := range colorKeywords {
		if strings.Contains(lowerHref, strings.ToLower(keyword)) {
			return keyword
		}
	}
	return ""
}

func (p *CardParser) imageURL(raw ParsedCard) string {
	if strings.Contains(raw.ImageSrc, CDNHostMarker) {
		return raw.ImageSrc
	}
	return fmt.Sprintf("https://%s/product/%s_in_200x200.jpg", p.opts.CDNHost, raw.ProductID)
}

func (p *CardParser) productURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(p.opts.SiteBaseURL, "/") + href
	}
	return href
}

func childText(card dom.Element, selector string) string {
	el, err := card.QuerySelector(selector)
	if err != nil || el == nil {
		return ""
	}
	text, err := el.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
