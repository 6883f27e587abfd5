package wiki

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

func TestCrawlSegmentExcludesSpecialPages(t *testing.T) {
	for _, engine := range parserEngines {
		t.Run(engine, func(t *testing.T) {
			site, _ := newTestSite(t, engine, map[string]string{
				root: indexPage([]string{}, []string{"/wiki/A", "/wiki/B", "/wiki/Special:Foo"}),
			})

			links, err := NewSegmentCrawler(site, 0, testLogger).Crawl(context.Background(), site.Normalizer.Root(), nil)
			require.NoError(t, err)
			assert.Equal(t, []string{base + "/wiki/A", base + "/wiki/B"}, urlsOf(links))
			for _, l := range links {
				assert.True(t, l.IsArticle())
			}
		})
	}
}

func TestCrawlSegmentFollowsPagination(t *testing.T) {
	site, f := newTestSite(t, "css", map[string]string{
		root:                indexPage([]string{"/wiki/Special:AllPages?from=C"}, []string{"/wiki/A", "/wiki/B"}),
		root + "?from=C":    indexPage([]string{"/wiki/Special:AllPages?from=E"}, []string{"/wiki/C", "/wiki/D", "/wiki/B"}),
		root + "?from=E":    indexPage([]string{}, []string{"/wiki/E"}),
		root + "?from=ZZZZ": indexPage([]string{}, []string{"/wiki/Never"}),
	})

	links, err := NewSegmentCrawler(site, 0, testLogger).Crawl(context.Background(), site.Normalizer.Root(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		base + "/wiki/A", base + "/wiki/B", base + "/wiki/C", base + "/wiki/D", base + "/wiki/E",
	}, urlsOf(links))
	assert.Equal(t, []string{root, root + "?from=C", root + "?from=E"}, f.Order())
}

func TestCrawlSegmentFollowsNextNotPrevious(t *testing.T) {
	for _, engine := range parserEngines {
		t.Run(engine, func(t *testing.T) {
			site, f := newTestSite(t, engine, threePageIndex())

			links, err := NewSegmentCrawler(site, 0, testLogger).Crawl(context.Background(), site.Normalizer.Root(), nil)
			require.NoError(t, err)
			assert.Equal(t, []string{
				base + "/wiki/A", base + "/wiki/B", base + "/wiki/C",
				base + "/wiki/D", base + "/wiki/E", base + "/wiki/F",
			}, urlsOf(links))
			assert.Equal(t, []string{root, root + "?from=C", root + "?from=E"}, f.Order())
			assert.Zero(t, f.Calls(root+"?from=A"))
		})
	}
}

func TestCrawlSegmentTerminatesOnCycle(t *testing.T) {
	// C -> E -> C: the navigation never signals an end.
	site, f := newTestSite(t, "xpath", map[string]string{
		root + "?from=C": indexPage(
			[]string{"/wiki/Special:AllPages?from=C", "/wiki/Special:AllPages?from=E"},
			[]string{"/wiki/C"},
		),
		root + "?from=E": indexPage(
			[]string{"/wiki/Special:AllPages?from=C", "/wiki/Special:AllPages?from=E"},
			[]string{"/wiki/E"},
		),
	})

	seg, ok := site.Normalizer.Normalize("/wiki/Special:AllPages?from=C")
	require.True(t, ok)

	links, err := NewSegmentCrawler(site, 0, testLogger).Crawl(context.Background(), seg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{base + "/wiki/C", base + "/wiki/E"}, urlsOf(links))
	assert.Equal(t, 1, f.Calls(root+"?from=C"))
	assert.Equal(t, 1, f.Calls(root+"?from=E"))
}

func TestCrawlSegmentSelfLinkOnly(t *testing.T) {
	site, f := newTestSite(t, "css", map[string]string{
		root + "?from=Q": indexPage([]string{"/wiki/Special:AllPages?from=Q"}, []string{"/wiki/Quill"}),
	})
	seg, _ := site.Normalizer.Normalize("/wiki/Special:AllPages?from=Q")

	links, err := NewSegmentCrawler(site, 0, testLogger).Crawl(context.Background(), seg, nil)
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Equal(t, 1, f.Total())
}

func TestCrawlSegmentPageCap(t *testing.T) {
	site, f := newTestSite(t, "css", map[string]string{
		root:             indexPage([]string{"/wiki/Special:AllPages?from=C"}, []string{"/wiki/A"}),
		root + "?from=C": indexPage([]string{}, []string{"/wiki/C"}),
	})

	links, err := NewSegmentCrawler(site, 1, testLogger).Crawl(context.Background(), site.Normalizer.Root(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{base + "/wiki/A"}, urlsOf(links))
	assert.Equal(t, 1, f.Total())
}

func TestCrawlSegmentFaultKeepsPartialResult(t *testing.T) {
	site, f := newTestSite(t, "css", map[string]string{
		root: indexPage([]string{"/wiki/Special:AllPages?from=C"}, []string{"/wiki/A"}),
	})
	f.Fail(root+"?from=C", &types.FetchError{URL: root + "?from=C", StatusCode: 502, Err: errors.New("bad gateway")})

	links, err := NewSegmentCrawler(site, 0, testLogger).Crawl(context.Background(), site.Normalizer.Root(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{base + "/wiki/A"}, urlsOf(links))
}

func TestCrawlSegmentSharedVisitedSkipsCoveredSegment(t *testing.T) {
	site, f := newTestSite(t, "css", map[string]string{
		root:             indexPage([]string{"/wiki/Special:AllPages?from=C"}, []string{"/wiki/A"}),
		root + "?from=C": indexPage([]string{}, []string{"/wiki/C"}),
	})
	crawler := NewSegmentCrawler(site, 0, testLogger)
	visited := NewVisitedPages()

	_, err := crawler.Crawl(context.Background(), site.Normalizer.Root(), visited)
	require.NoError(t, err)

	seg, _ := site.Normalizer.Normalize("/wiki/Special:AllPages?from=C")
	links, err := crawler.Crawl(context.Background(), seg, visited)
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Equal(t, 1, f.Calls(root+"?from=C"))
}

func TestCrawlSegmentCancelled(t *testing.T) {
	site, _ := newTestSite(t, "css", map[string]string{
		root: indexPage([]string{}, []string{"/wiki/A"}),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSegmentCrawler(site, 0, testLogger).Crawl(ctx, site.Normalizer.Root(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
