// Package fetchertest provides an in-memory PageFetcher for tests.
package fetchertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// StaticFetcher serves canned HTML keyed by URL and counts every fetch.
// Unknown URLs fail with a non-retryable 404 FetchError.
type StaticFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	calls  map[string]int
	order  []string
	closed bool

	// OnFetch, if set, runs before each fetch is served.
	OnFetch func(url string)
}

// New returns a fetcher serving pages.
func New(pages map[string]string) *StaticFetcher {
	s := &StaticFetcher{
		pages: make(map[string]string, len(pages)),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
	for u, html := range pages {
		s.pages[u] = html
	}
	return s
}

// Set adds or replaces a page.
func (s *StaticFetcher) Set(url, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = html
}

// Fail makes every fetch of url return err.
func (s *StaticFetcher) Fail(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[url] = err
}

// Fetch implements fetcher.PageFetcher.
func (s *StaticFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: err}
	}
	if s.OnFetch != nil {
		s.OnFetch(req.URL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.ErrFetcherClosed
	}
	s.calls[req.URL]++
	s.order = append(s.order, req.URL)

	if err, ok := s.errs[req.URL]; ok {
		return nil, err
	}
	html, ok := s.pages[req.URL]
	if !ok {
		return nil, &types.FetchError{URL: req.URL, StatusCode: 404, Err: errors.New("not found")}
	}
	return &types.Page{
		URL:        req.URL,
		FinalURL:   req.URL,
		StatusCode: 200,
		HTML:       []byte(html),
		FetchedAt:  time.Now(),
	}, nil
}

// Calls returns how many times url was fetched.
func (s *StaticFetcher) Calls(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// Total returns the number of fetches served or failed.
func (s *StaticFetcher) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Order returns the fetched URLs in call order.
func (s *StaticFetcher) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Close implements fetcher.PageFetcher.
func (s *StaticFetcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *StaticFetcher) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Type implements fetcher.PageFetcher.
func (s *StaticFetcher) Type() string { return "static" }
