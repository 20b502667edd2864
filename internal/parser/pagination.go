package parser

import (
	"regexp"
	"strconv"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
)

// likelyMorePages is the first-page result count at which the grid is
// assumed to be truncated.
const likelyMorePages = 18

// firstPageMultiplier is a rough guess, not a count. Without a results
// heading the real total is unknown and this is often wrong.
const firstPageMultiplier = 3

// Pagination is the page metadata of a search response.
type Pagination struct {
	TotalResults    int
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
	// Exact is true when TotalResults came from the page heading.
	Exact bool
}

type PaginationEstimator struct {
	headingPattern *regexp.Regexp
}

func NewPaginationEstimator() *PaginationEstimator {
	return &PaginationEstimator{
		headingPattern: regexp.MustCompile(`(\d+)\s+results`),
	}
}

// HeadingTotal reads "<n> results" from the results heading.
func (e *PaginationEstimator) HeadingTotal(page dom.Page) (int, bool) {
	text, err := page.InnerText(SelectorResultsTitle)
	if err != nil {
		return 0, false
	}
	return e.parseHeading(text)
}

func (e *PaginationEstimator) parseHeading(text string) (int, bool) {
	match := e.headingPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	total, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return total, true
}

// Estimate computes page metadata from the page heading, falling back to
// the number of suggestions collected before truncation.
func (e *PaginationEstimator) Estimate(page dom.Page, pageNumber, pageSize, rawCount int) Pagination {
	headingTotal, found := e.HeadingTotal(page)
	return Paginate(headingTotal, found, pageNumber, pageSize, rawCount)
}

// Paginate applies the estimation rules once the heading has been read.
func Paginate(headingTotal int, headingFound bool, pageNumber, pageSize, rawCount int) Pagination {
	var total int
	switch {
	case headingFound:
		total = headingTotal
	case pageNumber <= 1 && rawCount >= likelyMorePages:
		total = rawCount * firstPageMultiplier
	case pageNumber <= 1:
		total = rawCount
	default:
		total = (pageNumber-1)*pageSize + rawCount
	}

	return Pagination{
		TotalResults:    total,
		TotalPages:      totalPages(total, pageSize),
		HasNextPage:     min(rawCount, pageSize) >= pageSize,
		HasPreviousPage: pageNumber > 1,
		Exact:           headingFound,
	}
}

func totalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
