// Package frontier holds the set of article URLs discovered during a crawl.
package frontier

import (
	"slices"
	"sync"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// Frontier is a thread-safe, grow-only set of article URLs.
// Membership is O(1); nothing is ever removed during a run.
type Frontier struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// New creates an empty Frontier.
func New() *Frontier {
	return &Frontier{urls: make(map[string]struct{}, 1024)}
}

// FromURLs builds a Frontier from a persisted URL list. Duplicates collapse.
func FromURLs(urls []string) *Frontier {
	f := New()
	for _, u := range urls {
		f.Add(u)
	}
	return f
}

// Add inserts url and reports whether it was new. Empty strings are ignored.
func (f *Frontier) Add(url string) bool {
	if url == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.urls[url]; ok {
		return false
	}
	f.urls[url] = struct{}{}
	return true
}

// AddLinks inserts every article link and returns how many were new.
func (f *Frontier) AddLinks(links []types.WikiLink) int {
	added := 0
	for _, l := range links {
		if !l.IsArticle() {
			continue
		}
		if f.Add(l.URL) {
			added++
		}
	}
	return added
}

// Contains reports whether url is in the frontier.
func (f *Frontier) Contains(url string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.urls[url]
	return ok
}

// Len returns the number of URLs.
func (f *Frontier) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.urls)
}

// Sorted returns a sorted snapshot; this is the stable extraction order.
func (f *Frontier) Sorted() []string {
	f.mu.RLock()
	out := make([]string, 0, len(f.urls))
	for u := range f.urls {
		out = append(out, u)
	}
	f.mu.RUnlock()
	slices.Sort(out)
	return out
}
