package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// stableWindow is how long the DOM must stay quiet before WaitStable returns.
const stableWindow = 300 * time.Millisecond

// BrowserFetcher implements PageFetcher using a headless Chromium via Rod.
// Pages are pooled; each Fetch holds one page for its duration.
type BrowserFetcher struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	userAgent string
	stealth   bool
	timeout   time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	closed   bool
	pagePool chan *rod.Page
}

// NewBrowserFetcher launches a headless browser and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	maxPages := cfg.Engine.Concurrency + cfg.Engine.DiscoveryConcurrency

	bf := &BrowserFetcher{
		userAgent: cfg.Engine.UserAgent,
		stealth:   cfg.Fetcher.Stealth,
		timeout:   cfg.Engine.RequestTimeout,
		logger:    logger.With("component", "browser_fetcher"),
		pagePool:  make(chan *rod.Page, maxPages),
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.Fetcher.BrowserBin != "" {
		l = l.Bin(cfg.Fetcher.BrowserBin)
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	bf.launcher = l

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready",
		"max_pages", maxPages,
		"stealth", bf.stealth,
	)

	return bf, nil
}

// Fetch navigates to the URL, waits for the DOM to settle and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	start := time.Now()

	page, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: err, Retryable: true}
	}
	defer bf.putPage(page)

	p := page.Context(ctx)
	if bf.timeout > 0 {
		p = p.Timeout(bf.timeout)
		defer p.CancelTimeout()
	}

	if err := p.Navigate(req.URL); err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: err, Retryable: ctx.Err() == nil}
	}

	if err := p.WaitStable(stableWindow); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URL, "error", err)
	}

	if req.SettleDelay > 0 {
		select {
		case <-time.After(req.SettleDelay):
		case <-ctx.Done():
			return nil, &types.FetchError{URL: req.URL, Err: ctx.Err()}
		}
	}

	html, err := p.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: err, Retryable: ctx.Err() == nil}
	}

	finalURL := req.URL
	if info, err := p.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URL,
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return &types.Page{
		URL:           req.URL,
		FinalURL:      finalURL,
		StatusCode:    200, // Rod does not surface the document status
		HTML:          []byte(html),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}, nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	if bf.closed {
		bf.mu.Unlock()
		return nil
	}
	bf.closed = true
	close(bf.pagePool)
	bf.mu.Unlock()

	for page := range bf.pagePool {
		_ = page.Close()
	}
	var err error
	if bf.browser != nil {
		err = bf.browser.Close()
	}
	if bf.launcher != nil {
		bf.launcher.Cleanup()
	}
	return err
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// getPage retrieves a page from the pool or creates a new one.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	bf.mu.Lock()
	closed := bf.closed
	bf.mu.Unlock()
	if closed {
		return nil, types.ErrFetcherClosed
	}

	select {
	case page, ok := <-bf.pagePool:
		if ok {
			return page, nil
		}
		return nil, types.ErrFetcherClosed
	default:
		return bf.newPage()
	}
}

func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if bf.stealth {
		page, err = stealth.Page(bf.browser)
	} else {
		page, err = bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if bf.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: bf.userAgent}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}
	return page, nil
}

// putPage returns a page to the pool, closing it if the pool is full or shut.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	// Navigate to blank to free memory from the last page
	_ = page.Navigate("about:blank")

	bf.mu.Lock()
	defer bf.mu.Unlock()
	if bf.closed {
		_ = page.Close()
		return
	}
	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close()
	}
}
