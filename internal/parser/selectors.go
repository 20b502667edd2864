package parser

// Selectors consumed from the TCGplayer search grid. Changing any of them
// breaks compatibility with the live markup.
const (
	SelectorProductCard   = `[class*="product-card"]`
	SelectorPriceValue    = ".product-card__market-price--value"
	SelectorPriceFallback = "section.product-card__market-price span.product-card__market-price--value"
	SelectorPriceAll      = "span.product-card__market-price--value"
	SelectorProductLink   = `a[href*="/product/"]`
	SelectorSetHeading    = "h4"
	SelectorTitle         = `h4, h3, .product-card__title, [class*="title"]`
	SelectorImage         = "img"
	SelectorResultsTitle  = "h1"
	SelectorCookieButton  = `button:has-text("Allow All"), button:has-text("Accept")`
)

const (
	DefaultSiteBaseURL = "https://www.tcgplayer.com"
	DefaultCDNHost     = "tcgplayer-cdn.tcgplayer.com"
	CDNHostMarker      = "tcgplayer-cdn"

	minMarketPrice = 0.01
	maxMarketPrice = 100000.0

	excerptLength = 100
)

// ProductLine is a game franchise and the href fragments that identify it.
type ProductLine struct {
	Name    string
	Markers []string
}

var (
	OnePiece = ProductLine{Name: "One Piece Card Game", Markers: []string{"one-piece"}}

	// productLines is checked in order; the first line with a marker in the
	// href wins.
	productLines = []ProductLine{
		OnePiece,
		{Name: "Magic: The Gathering", Markers: []string{"magic", "mtg"}},
		{Name: "Yu-Gi-Oh!", Markers: []string{"yugioh"}},
		{Name: "Pokémon", Markers: []string{"pokemon"}},
		{Name: "UniVersus", Markers: []string{"universus"}},
		{Name: "Weiß Schwarz", Markers: []string{"weiss-schwarz", "weiss schwarz"}},
	}
)

// Priority-ordered keyword tables. The first entry that matches wins.
var (
	rarityKeywords = []string{
		"Common", "Rare", "Super Rare", "Secret Rare", "Uncommon",
		"Leader", "Promo", "P", "C", "U",
	}

	cardTypeKeywords = []string{"Leader", "Character", "Event", "Stage"}

	colorKeywords = []string{"RED", "BLUE", "GREEN", "PURPLE", "YELLOW", "BLACK"}

	variantMarkers = []string{
		"(Parallel)", "(Alternate Art)", "(Manga)", "(Gold)",
		"(Full Art)", "(Reprint)", "(Jolly Roger Foil)",
		"Parallel", "Alternate Art", "Manga", "Gold",
		"Full Art", "Reprint", "Jolly Roger Foil",
	}
)
