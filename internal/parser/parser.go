// Package parser turns a rendered TCGplayer search page into typed data:
// the market price of the first listing, one suggestion per product card,
// and an estimate of the pagination totals.
package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoPriceFound = errors.New("no recognizable market price on the results page")
	ErrSkipCard     = errors.New("product card skipped")
)

var (
	priceNumberPattern = regexp.MustCompile(`(\d+\.?\d*)`)
	pageTextPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`\$(\d+\.?\d*)`),
		regexp.MustCompile(`(\d+\.?\d*)\s*USD`),
	}
)

// ParsePrice cleans a displayed price ("$1,234.50") and returns it when it is
// inside the accepted market price range.
func ParsePrice(text string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(text)
	cleaned = strings.Join(strings.Fields(cleaned), "")

	match := priceNumberPattern.FindStringSubmatch(cleaned)
	if match == nil {
		return 0, false
	}
	return validPrice(match[1])
}

func validPrice(number string) (float64, bool) {
	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, false
	}
	if value < minMarketPrice || value > maxMarketPrice {
		return 0, false
	}
	return value, true
}

// splitLines returns the trimmed, non-empty lines of text.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
