package types

import "time"

// Page is the rendered HTML of a fetched URL.
type Page struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code (200 for browser fetches).
	StatusCode int

	// HTML is the rendered document.
	HTML []byte

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when the page was received.
	FetchedAt time.Time
}

// Size returns the document length in bytes.
func (p *Page) Size() int { return len(p.HTML) }
