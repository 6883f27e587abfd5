package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/wikiscrape/internal/frontier"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// FrontierSaver persists the discovered URL list.
type FrontierSaver interface {
	SaveFrontier(urls []string) error
}

// LinkCollector runs discovery across every index segment and builds the frontier.
type LinkCollector struct {
	site        *Site
	discoverer  *SegmentDiscoverer
	crawler     *SegmentCrawler
	saver       FrontierSaver
	concurrency int
	logger      *slog.Logger
}

// NewLinkCollector creates a collector. concurrency bounds how many
// segments are crawled at once; each segment is itself sequential.
func NewLinkCollector(site *Site, discoverer *SegmentDiscoverer, crawler *SegmentCrawler,
	saver FrontierSaver, concurrency int, logger *slog.Logger) *LinkCollector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LinkCollector{
		site:        site,
		discoverer:  discoverer,
		crawler:     crawler,
		saver:       saver,
		concurrency: concurrency,
		logger:      logger.With("component", "link_collector"),
	}
}

// Collect discovers segments, crawls them all into one deduplicated
// frontier and persists it. Empty segments are normal. The error is
// non-nil only for cancellation or when the frontier cannot be saved; in
// both cases the partial frontier is still returned.
func (c *LinkCollector) Collect(ctx context.Context) (*frontier.Frontier, error) {
	segments, err := c.discoverer.Discover(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return frontier.New(), ctx.Err()
		}
		c.logger.Warn("index segment discovery failed", "error", err)
	}
	if len(segments) == 0 {
		root := c.site.Normalizer.Root()
		c.logger.Warn("no index segments discovered, crawling root index only", "root", root.URL)
		segments = []types.WikiLink{root}
	}

	front := frontier.New()
	visited := NewVisitedPages()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			c.logger.Info("crawling segment", "index", i+1, "total", len(segments), "segment", seg.URL)
			links, err := c.crawler.Crawl(gctx, seg, visited)
			added := front.AddLinks(links)
			c.logger.Info("segment complete",
				"segment", seg.URL,
				"links", len(links),
				"new", added,
				"frontier", front.Len(),
			)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("link discovery interrupted", "frontier", front.Len())
		}
		return front, err
	}

	if err := c.saver.SaveFrontier(front.Sorted()); err != nil {
		return front, fmt.Errorf("persist frontier: %w", err)
	}

	c.logger.Info("total unique article links collected",
		"count", front.Len(),
		"index_pages", visited.Len(),
	)
	return front, nil
}
