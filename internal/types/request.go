package types

import (
	"net/url"
	"time"
)

// Request describes one page fetch.
type Request struct {
	// URL is the absolute URL to fetch.
	URL string

	// Kind tells the fetcher what sort of page is expected.
	Kind LinkKind

	// SettleDelay is how long a rendering fetcher waits after the page
	// becomes stable before reading the DOM. Zero means no extra wait.
	SettleDelay time.Duration
}

// NewRequest creates a request for an absolute http(s) URL.
func NewRequest(rawURL string, kind LinkKind, settle time.Duration) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidURL
	}
	return &Request{URL: rawURL, Kind: kind, SettleDelay: settle}, nil
}
