package wiki

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/IshaanNene/wikiscrape/internal/parser"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// VisitedPages records index pages already crawled. One set may be shared
// by concurrent segment crawls so that no index page is fetched twice.
type VisitedPages struct {
	mu    sync.Mutex
	pages map[string]struct{}
}

// NewVisitedPages creates an empty set.
func NewVisitedPages() *VisitedPages {
	return &VisitedPages{pages: make(map[string]struct{})}
}

// Claim marks url visited and reports whether this call was the first.
func (v *VisitedPages) Claim(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.pages[url]; ok {
		return false
	}
	v.pages[url] = struct{}{}
	return true
}

// Len returns the number of visited pages.
func (v *VisitedPages) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pages)
}

// SegmentCrawler walks one index segment through its "next page" links.
type SegmentCrawler struct {
	site     *Site
	maxPages int
	logger   *slog.Logger
}

// NewSegmentCrawler creates a crawler. maxPages caps pages per segment; 0 means no cap.
func NewSegmentCrawler(site *Site, maxPages int, logger *slog.Logger) *SegmentCrawler {
	return &SegmentCrawler{
		site:     site,
		maxPages: maxPages,
		logger:   logger.With("component", "segment_crawler"),
	}
}

// Crawl collects the article links reachable from seg by following pagination.
// Pages already in visited are never fetched again, which bounds the loop
// even when the navigation cycles. A nil visited uses a private set.
//
// A fetch or parse fault ends the segment early with the links gathered so
// far; only context cancellation is returned as an error.
func (c *SegmentCrawler) Crawl(ctx context.Context, seg types.WikiLink, visited *VisitedPages) ([]types.WikiLink, error) {
	if visited == nil {
		visited = NewVisitedPages()
	}

	var links []types.WikiLink
	seen := make(map[string]struct{})

	current := seg.URL
	if !visited.Claim(current) {
		c.logger.Info("segment already covered", "segment", seg.URL)
		return nil, nil
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return links, err
		}

		doc, err := c.site.load(ctx, current, types.KindIndexSegment)
		if err != nil {
			if ctx.Err() != nil {
				return links, ctx.Err()
			}
			c.logger.Warn("segment page failed, ending segment",
				"segment", seg.URL,
				"page_url", current,
				"error", err,
			)
			return links, nil
		}

		newLinks := 0
		for _, body := range doc.Find(c.site.Selectors.ListBody) {
			for _, a := range body.Find(c.site.Selectors.Anchor) {
				href, ok := a.Attr("href")
				if !ok {
					continue
				}
				link, ok := c.site.Normalizer.NormalizeArticle(href)
				if !ok {
					continue
				}
				if _, dup := seen[link.URL]; dup {
					continue
				}
				seen[link.URL] = struct{}{}
				links = append(links, link)
				newLinks++
			}
		}

		c.logger.Info("segment page crawled",
			"segment", seg.URL,
			"page", page,
			"new_links", newLinks,
			"segment_total", len(links),
		)

		if c.maxPages > 0 && page >= c.maxPages {
			c.logger.Warn("segment page cap reached", "segment", seg.URL, "max_pages", c.maxPages)
			return links, nil
		}

		next, ok := c.nextPage(doc, current, visited)
		if !ok {
			return links, nil
		}
		current = next
	}
}

// nextPage picks the forward pagination link and claims it. Index pages
// carry both "Previous page" and "Next page" links; the next one is the
// nearest whose from= key sorts after the current page's key. A next page
// already claimed elsewhere ends this segment, since its owner covers the rest.
func (c *SegmentCrawler) nextPage(doc parser.Node, current string, visited *VisitedPages) (string, bool) {
	norm := c.site.Normalizer
	scope := doc.Find(c.site.Selectors.Nav)
	if len(scope) == 0 {
		scope = []parser.Node{doc}
	}

	here := fromKey(current)
	var next, nextKey string
	for _, nav := range scope {
		for _, a := range nav.Find(c.site.Selectors.Anchor) {
			href, ok := a.Attr("href")
			if !ok {
				continue
			}
			link, ok := norm.Normalize(href)
			if !ok || !norm.IsPagination(link) {
				continue
			}
			key := fromKey(link.URL)
			if key <= here {
				continue
			}
			if next == "" || key < nextKey {
				next, nextKey = link.URL, key
			}
		}
	}
	if next == "" {
		return "", false
	}
	if !visited.Claim(next) {
		c.logger.Info("next index page already covered", "page_url", current, "next", next)
		return "", false
	}
	return next, true
}

// fromKey returns the from= title of an index page URL; the root has none.
func fromKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("from")
}
