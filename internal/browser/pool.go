package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/tcg-price-scraper/internal/dom"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrent render operations on one Browser.
// Callers beyond the limit queue until a slot frees or their ctx ends.
type Pool struct {
	browser   *Browser
	slots     *semaphore.Weighted
	opTimeout time.Duration
	retries   int
	logger    *slog.Logger
}

func NewPool(b *Browser, workers int, opTimeout time.Duration, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		browser:   b,
		slots:     semaphore.NewWeighted(int64(workers)),
		opTimeout: opTimeout,
		retries:   b.opts.NavigationRetries,
		logger:    logger.With("component", "browser_pool", "workers", workers),
	}
}

// Render opens a session, navigates to url and returns the page. The page is
// closed when release is called or when the operation deadline passes,
// whichever comes first.
func (p *Pool) Render(ctx context.Context, url string) (dom.Page, func(), error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("failed to acquire render slot: %w", err)
	}

	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if p.opTimeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, p.opTimeout)
	} else {
		opCtx, cancel = context.WithCancel(ctx)
	}

	session, err := p.browser.NewSession()
	if err != nil {
		cancel()
		p.slots.Release(1)
		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := session.Close(); err != nil {
				p.logger.Debug("failed to close session", "error", err)
			}
			cancel()
			p.slots.Release(1)
		})
	}
	stop := context.AfterFunc(opCtx, func() {
		p.logger.Warn("operation ended before release, closing page", "url", url, "error", opCtx.Err())
		session.Page.Close()
	})
	releaseAll := func() {
		stop()
		release()
	}

	if err := p.browser.NavigateWithRetry(opCtx, session.Page, url, p.retries); err != nil {
		releaseAll()
		return nil, nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	return dom.NewPlaywrightPage(session.Page), releaseAll, nil
}
