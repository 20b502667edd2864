package dom

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightPage adapts a live playwright page.
type PlaywrightPage struct {
	page playwright.Page
}

func NewPlaywrightPage(page playwright.Page) *PlaywrightPage {
	return &PlaywrightPage{page: page}
}

func (p *PlaywrightPage) QuerySelector(selector string) (Element, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	if handle == nil {
		return nil, nil
	}
	return &playwrightElement{handle: handle}, nil
}

func (p *PlaywrightPage) QuerySelectorAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query all %q: %w", selector, err)
	}
	return wrapHandles(handles), nil
}

func (p *PlaywrightPage) InnerText(selector string) (string, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("failed to query %q: %w", selector, err)
	}
	if handle == nil {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return handle.InnerText()
}

func (p *PlaywrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrSelectorTimeout, selector, err)
	}
	return nil
}

func (p *PlaywrightPage) Wait(d time.Duration) {
	p.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (p *PlaywrightPage) Evaluate(script string) error {
	if _, err := p.page.Evaluate(script); err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	return nil
}

func (p *PlaywrightPage) URL() string {
	return p.page.URL()
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) InnerText() (string, error) {
	return e.handle.InnerText()
}

func (e *playwrightElement) GetAttribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *playwrightElement) QuerySelector(selector string) (Element, error) {
	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &playwrightElement{handle: handle}, nil
}

func (e *playwrightElement) QuerySelectorAll(selector string) ([]Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(handles), nil
}

func (e *playwrightElement) Click() error {
	return e.handle.Click()
}

func wrapHandles(handles []playwright.ElementHandle) []Element {
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &playwrightElement{handle: h})
	}
	return elements
}
