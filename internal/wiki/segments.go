package wiki

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// SegmentDiscoverer enumerates the entry points of the AllPages index.
type SegmentDiscoverer struct {
	site   *Site
	logger *slog.Logger
}

// NewSegmentDiscoverer creates a discoverer for site.
func NewSegmentDiscoverer(site *Site, logger *slog.Logger) *SegmentDiscoverer {
	return &SegmentDiscoverer{
		site:   site,
		logger: logger.With("component", "segment_discoverer"),
	}
}

// Discover fetches the root index and returns the root followed by every
// distinct pagination link in its navigation blocks. When the root cannot be
// loaded, or has no navigation block, it returns no segments and the error
// explaining why; callers treat that as a warning, not a failure.
func (d *SegmentDiscoverer) Discover(ctx context.Context) ([]types.WikiLink, error) {
	norm := d.site.Normalizer
	sel := d.site.Selectors
	root := norm.Root()

	doc, err := d.site.load(ctx, root.URL, types.KindIndexSegment)
	if err != nil {
		return nil, err
	}

	navs := doc.Find(sel.Nav)
	if len(navs) == 0 {
		return nil, &types.ParseError{URL: root.URL, Selector: sel.Nav, Err: types.ErrNavigationMissing}
	}

	segments := []types.WikiLink{root}
	seen := map[string]bool{root.URL: true}
	for _, nav := range navs {
		for _, a := range nav.Find(sel.Anchor) {
			href, ok := a.Attr("href")
			if !ok {
				continue
			}
			link, ok := norm.Normalize(href)
			if !ok || !norm.IsPagination(link) || seen[link.URL] {
				continue
			}
			seen[link.URL] = true
			segments = append(segments, link)
		}
	}

	d.logger.Info("found index segments", "count", len(segments)-1, "root", root.URL)
	return segments, nil
}
