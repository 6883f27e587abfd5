package wiki

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/fetcher/fetchertest"
	"github.com/IshaanNene/wikiscrape/internal/parser"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	base = "https://bg3.wiki"
	root = base + "/wiki/Special:AllPages"
)

var parserEngines = []string{"css", "xpath"}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Fetcher.IndexSettleDelay = 0
	cfg.Fetcher.ArticleSettleDelay = 0
	return cfg
}

func newTestSite(t *testing.T, engine string, pages map[string]string) (*Site, *fetchertest.StaticFetcher) {
	t.Helper()
	f := fetchertest.New(pages)
	p, err := parser.New(engine)
	require.NoError(t, err)
	site, err := NewSite(testConfig(), f, p, testLogger)
	require.NoError(t, err)
	return site, f
}

// indexPage renders an AllPages page. A nil nav omits the navigation block.
func indexPage(nav []string, body []string) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1 id="firstHeading">All pages</h1>`)
	if nav != nil {
		b.WriteString(`<div class="mw-allpages-nav">`)
		for _, h := range nav {
			fmt.Fprintf(&b, `<a href="%s">Next page</a> `, h)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`<div class="mw-allpages-body"><ul class="mw-allpages-chunk">`)
	for _, h := range body {
		fmt.Fprintf(&b, `<li><a href="%s" title="x">x</a></li>`, h)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

// allPagesIndex renders a MediaWiki-style AllPages page: the same
// navigation block above and below the list, holding "Previous page" and
// "Next page" links. An empty prev or next omits that link.
func allPagesIndex(prev, next string, body []string) string {
	var nav strings.Builder
	nav.WriteString(`<div class="mw-allpages-nav">`)
	if prev != "" {
		fmt.Fprintf(&nav, `<a href="/wiki/Special:AllPages?from=%s" title="Special:AllPages">Previous page (%s)</a>`, prev, prev)
	}
	if prev != "" && next != "" {
		nav.WriteString(" | ")
	}
	if next != "" {
		fmt.Fprintf(&nav, `<a href="/wiki/Special:AllPages?from=%s" title="Special:AllPages">Next page (%s)</a>`, next, next)
	}
	nav.WriteString(`</div>`)

	var b strings.Builder
	b.WriteString(`<html><body><h1 id="firstHeading">All pages</h1>`)
	b.WriteString(nav.String())
	b.WriteString(`<div class="mw-allpages-body"><ul class="mw-allpages-chunk">`)
	for _, h := range body {
		fmt.Fprintf(&b, `<li><a href="%s" title="x">x</a></li>`, h)
	}
	b.WriteString(`</ul></div>`)
	b.WriteString(nav.String())
	b.WriteString(`</body></html>`)
	return b.String()
}

// threePageIndex is root -> C -> E. Page C links back to ?from=A, a copy
// of the root page, as MediaWiki does.
func threePageIndex() map[string]string {
	first := allPagesIndex("", "C", []string{"/wiki/A", "/wiki/B"})
	return map[string]string{
		root:             first,
		root + "?from=A": first,
		root + "?from=C": allPagesIndex("A", "E", []string{"/wiki/C", "/wiki/D"}),
		root + "?from=E": allPagesIndex("C", "", []string{"/wiki/E", "/wiki/F"}),
	}
}

type memSaver struct {
	urls  []string
	calls int
	err   error
}

func (m *memSaver) SaveFrontier(urls []string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.urls = append([]string(nil), urls...)
	return nil
}
