// Package dom is the narrow view over a rendered page that the extraction
// code works against. A live page is backed by playwright, a saved or fixture
// page by goquery.
package dom

import (
	"errors"
	"time"
)

var (
	ErrSelectorTimeout = errors.New("timed out waiting for selector")
	ErrNoMatch         = errors.New("no element matches selector")
)

// Element is one node of the page. QuerySelector returns a nil Element and a
// nil error when nothing matches. GetAttribute returns "" for a missing
// attribute.
type Element interface {
	InnerText() (string, error)
	GetAttribute(name string) (string, error)
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	Click() error
}

// Page is a rendered document plus the few interactions the scrapers need.
type Page interface {
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	// InnerText returns the visible text of the first element matching
	// selector, or ErrNoMatch.
	InnerText(selector string) (string, error)
	WaitForSelector(selector string, timeout time.Duration) error
	Wait(d time.Duration)
	Evaluate(script string) error
	URL() string
}

const (
	ScrollToBottom = `() => { window.scrollTo(0, document.body.scrollHeight); }`
	ScrollToTop    = `() => { window.scrollTo(0, 0); }`
)
