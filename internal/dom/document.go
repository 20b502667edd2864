package dom

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is a static, already rendered page parsed with goquery. Waits
// resolve immediately and scripts are recorded rather than run, which keeps
// extraction runs against saved HTML deterministic.
type Document struct {
	doc *goquery.Document
	url string

	mu      sync.Mutex
	scripts []string
	waited  time.Duration
}

func NewDocument(r io.Reader, url string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{doc: doc, url: url}, nil
}

func NewDocumentFromString(htmlText, url string) (*Document, error) {
	return NewDocument(strings.NewReader(htmlText), url)
}

func (d *Document) QuerySelector(selector string) (Element, error) {
	return querySelector(d.doc.Selection, selector)
}

func (d *Document) QuerySelectorAll(selector string) ([]Element, error) {
	return querySelectorAll(d.doc.Selection, selector)
}

func (d *Document) InnerText(selector string) (string, error) {
	el, err := d.QuerySelector(selector)
	if err != nil {
		return "", err
	}
	if el == nil {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return el.InnerText()
}

// WaitForSelector succeeds when the selector already matches; a static
// document never changes, so there is nothing to wait for.
func (d *Document) WaitForSelector(selector string, _ time.Duration) error {
	el, err := d.QuerySelector(selector)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w %q", ErrSelectorTimeout, selector)
	}
	return nil
}

func (d *Document) Wait(dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waited += dur
}

func (d *Document) Evaluate(script string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, script)
	return nil
}

func (d *Document) URL() string {
	return d.url
}

// Scripts returns the scripts passed to Evaluate, in call order.
func (d *Document) Scripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.scripts...)
}

// Waited returns the sum of all Wait calls.
func (d *Document) Waited() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waited
}

type documentElement struct {
	sel *goquery.Selection
}

func (e *documentElement) InnerText() (string, error) {
	return visibleText(e.sel.Nodes), nil
}

func (e *documentElement) GetAttribute(name string) (string, error) {
	value, _ := e.sel.Attr(name)
	return value, nil
}

func (e *documentElement) QuerySelector(selector string) (Element, error) {
	return querySelector(e.sel, selector)
}

func (e *documentElement) QuerySelectorAll(selector string) ([]Element, error) {
	return querySelectorAll(e.sel, selector)
}

func (e *documentElement) Click() error {
	return nil
}

func querySelector(root *goquery.Selection, selector string) (Element, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	found := root.FindMatcher(matcher).First()
	if found.Length() == 0 {
		return nil, nil
	}
	return &documentElement{sel: found}, nil
}

func querySelectorAll(root *goquery.Selection, selector string) ([]Element, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	found := root.FindMatcher(matcher)
	elements := make([]Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &documentElement{sel: s})
	})
	return elements, nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

var hiddenElements = map[string]bool{
	"head": true, "noscript": true, "script": true, "style": true,
	"template": true, "title": true,
}

var spaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

// visibleText approximates the browser's innerText: block elements and <br>
// start new lines, whitespace inside a line collapses, blank lines drop.
func visibleText(nodes []*html.Node) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
			return
		case html.ElementNode:
			if hiddenElements[n.Data] {
				return
			}
			if n.Data == "br" {
				b.WriteByte('\n')
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}

	for _, n := range nodes {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
