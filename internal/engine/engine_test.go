package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/wikiscrape/internal/checkpoint"
	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/fetcher/fetchertest"
	"github.com/IshaanNene/wikiscrape/internal/observability"
	"github.com/IshaanNene/wikiscrape/internal/parser"
	"github.com/IshaanNene/wikiscrape/internal/storage"
	"github.com/IshaanNene/wikiscrape/internal/types"
	"github.com/IshaanNene/wikiscrape/internal/wiki"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	base = "https://bg3.wiki"
	root = base + "/wiki/Special:AllPages"

	swordURL  = base + "/wiki/Sword"
	maceURL   = base + "/wiki/Mace"
	stubURL   = base + "/wiki/Stub"
	brokenURL = base + "/wiki/Broken"
)

func indexPage(nav, body []string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="mw-allpages-nav">`)
	for _, h := range nav {
		fmt.Fprintf(&b, `<a href="%s">Next page</a>`, h)
	}
	b.WriteString(`</div><div class="mw-allpages-body"><ul>`)
	for _, h := range body {
		fmt.Fprintf(&b, `<li><a href="%s">x</a></li>`, h)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

func articlePage(title string, paragraphs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><h1 id="firstHeading">%s</h1><div class="mw-parser-output">`, title)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, `<p>%s</p>`, p)
	}
	b.WriteString(`<h2>Notes</h2><ul><li>one</li></ul></div></body></html>`)
	return b.String()
}

// wikiPages is a two-segment wiki: one good article per segment, one page
// without a title and one link that 404s.
func wikiPages() map[string]string {
	return map[string]string{
		root: indexPage(
			[]string{"/wiki/Special:AllPages?from=M"},
			[]string{"/wiki/Sword", "/wiki/Stub", "/wiki/Special:Random"},
		),
		root + "?from=M": indexPage(nil, []string{"/wiki/Mace", "/wiki/Broken"}),
		swordURL:         articlePage("Sword", "A sword is a bladed weapon."),
		maceURL:          articlePage("Mace", "A mace is a blunt weapon."),
		stubURL:          `<html><body><div class="mw-parser-output"><p>orphan</p></div></body></html>`,
	}
}

type harness struct {
	cfg     *config.Config
	fetcher *fetchertest.StaticFetcher
	ckpt    *checkpoint.Store
	outDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Fetcher.IndexSettleDelay = 0
	cfg.Fetcher.ArticleSettleDelay = 0
	cfg.Checkpoint.Dir = filepath.Join(dir, "state")
	cfg.Storage.OutputDir = filepath.Join(dir, "dump")
	return &harness{cfg: cfg, outDir: cfg.Storage.OutputDir}
}

// runner builds a fresh runner over a new fetcher serving pages.
func (h *harness) runner(t *testing.T, pages map[string]string, store storage.RecordStore) *Runner {
	t.Helper()
	h.fetcher = fetchertest.New(pages)

	p, err := parser.New(h.cfg.Parser.Engine)
	require.NoError(t, err)
	site, err := wiki.NewSite(h.cfg, h.fetcher, p, testLogger)
	require.NoError(t, err)

	h.ckpt, err = checkpoint.NewStore(h.cfg.Checkpoint, testLogger)
	require.NoError(t, err)

	if store == nil {
		store, err = storage.NewFileStore(h.outDir, false, testLogger)
		require.NoError(t, err)
	}
	return NewRunner(h.cfg, site, h.ckpt, store, testLogger)
}

func (h *harness) outcomes(t *testing.T) map[string]types.OutcomeEntry {
	t.Helper()
	log, err := h.ckpt.OpenLog()
	require.NoError(t, err)
	defer log.Close()
	latest, err := log.Load()
	require.NoError(t, err)
	return latest
}

func (h *harness) outputFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.cfg.Engine.Concurrency = 2
	r := h.runner(t, wikiPages(), nil)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, int64(4), sum.Total)
	assert.Equal(t, int64(4), sum.Attempted)
	assert.Equal(t, int64(2), sum.Succeeded)
	assert.Equal(t, int64(1), sum.Skipped)
	assert.Equal(t, int64(1), sum.Failed)
	assert.Zero(t, sum.Remaining)
	assert.False(t, sum.Interrupted)
	assert.Equal(t, r.RunID(), sum.RunID)

	// the untitled page writes nothing
	assert.ElementsMatch(t, []string{"Sword.json", "Mace.json"}, h.outputFiles(t))

	urls, err := h.ckpt.LoadFrontier()
	require.NoError(t, err)
	assert.Equal(t, []string{brokenURL, maceURL, stubURL, swordURL}, urls)

	latest := h.outcomes(t)
	require.Len(t, latest, 4)
	assert.Equal(t, types.OutcomeSuccess, latest[swordURL].Outcome)
	assert.Equal(t, types.OutcomeSuccess, latest[maceURL].Outcome)
	assert.Equal(t, types.OutcomeSkip, latest[stubURL].Outcome)
	assert.Equal(t, types.OutcomeFail, latest[brokenURL].Outcome)
	assert.NotEmpty(t, latest[brokenURL].Error)
	assert.Equal(t, r.RunID(), latest[swordURL].RunID)

	// the root index is read once for segments and once as a segment;
	// every other URL is fetched exactly once
	assert.Equal(t, 2, h.fetcher.Calls(root))
	for _, u := range []string{root + "?from=M", swordURL, maceURL, stubURL, brokenURL} {
		assert.Equal(t, 1, h.fetcher.Calls(u), u)
	}
	assert.True(t, h.fetcher.Closed())
}

func TestRunResumeSkipsCompleted(t *testing.T) {
	h := newHarness(t)
	_, err := h.runner(t, wikiPages(), nil).Run(context.Background())
	require.NoError(t, err)

	// second run: the broken page now exists
	pages := wikiPages()
	pages[brokenURL] = articlePage("Broken", "Fixed now.")
	r := h.runner(t, pages, nil)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, h.fetcher.Calls(root), "frontier comes from the checkpoint")
	assert.Zero(t, h.fetcher.Calls(swordURL))
	assert.Zero(t, h.fetcher.Calls(stubURL))
	assert.Equal(t, 1, h.fetcher.Calls(brokenURL))

	assert.Equal(t, int64(3), sum.AlreadyComplete)
	assert.Equal(t, int64(1), sum.Attempted)
	assert.Equal(t, int64(1), sum.Succeeded)
	assert.Equal(t, types.OutcomeSuccess, h.outcomes(t)[brokenURL].Outcome)
	assert.ElementsMatch(t, []string{"Sword.json", "Mace.json", "Broken.json"}, h.outputFiles(t))
}

func TestRunResumeWithoutRetryingFailures(t *testing.T) {
	h := newHarness(t)
	_, err := h.runner(t, wikiPages(), nil).Run(context.Background())
	require.NoError(t, err)

	h.cfg.Checkpoint.RetryFailed = false
	r := h.runner(t, wikiPages(), nil)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sum.Attempted)
	assert.Equal(t, int64(4), sum.AlreadyComplete)
	assert.Empty(t, h.fetcher.Order())
}

func TestRunFreshIsIdempotent(t *testing.T) {
	h := newHarness(t)
	_, err := h.runner(t, wikiPages(), nil).Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(h.outDir, "Sword.json"))
	require.NoError(t, err)

	h.cfg.Checkpoint.Resume = false
	sum, err := h.runner(t, wikiPages(), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, h.fetcher.Calls(root), "fresh run rediscovers links")
	assert.Zero(t, sum.AlreadyComplete)
	assert.Equal(t, int64(4), sum.Attempted)

	second, err := os.ReadFile(filepath.Join(h.outDir, "Sword.json"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.ElementsMatch(t, []string{"Sword.json", "Mace.json"}, h.outputFiles(t))
}

type brokenStore struct{ closed bool }

func (b *brokenStore) Write(context.Context, *types.ArticleRecord) error {
	return &types.StorageError{Backend: "broken", Err: errors.New("read-only file system")}
}
func (b *brokenStore) Close() error { b.closed = true; return nil }
func (b *brokenStore) Name() string { return "broken" }

func TestRunStorageFaultsContinue(t *testing.T) {
	h := newHarness(t)
	h.cfg.Engine.StorageFaultThreshold = 1
	store := &brokenStore{}
	r := h.runner(t, wikiPages(), store)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), sum.Attempted, "every article is still attempted")
	assert.Equal(t, int64(2), sum.StorageFaults)
	assert.Equal(t, int64(3), sum.Failed)
	assert.Zero(t, sum.Succeeded)
	assert.True(t, store.closed)

	latest := h.outcomes(t)
	assert.Equal(t, types.OutcomeFail, latest[swordURL].Outcome)
	assert.Contains(t, latest[swordURL].Error, "read-only")
}

func TestRunCancelFinishesInflight(t *testing.T) {
	h := newHarness(t)
	r := h.runner(t, wikiPages(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the first article in sorted order is Broken; cancel while it is in flight
	h.fetcher.OnFetch = func(url string) {
		if url == brokenURL {
			cancel()
		}
	}

	sum, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateDone, r.State())
	assert.True(t, sum.Interrupted)
	assert.Equal(t, int64(1), sum.Attempted)
	assert.Equal(t, int64(3), sum.Remaining)

	// the in-flight outcome was flushed
	latest := h.outcomes(t)
	require.Len(t, latest, 1)
	assert.Equal(t, types.OutcomeFail, latest[brokenURL].Outcome)
	assert.Zero(t, h.fetcher.Calls(maceURL))
	assert.True(t, h.fetcher.Closed())
}

func TestRunCancelledDuringDiscovery(t *testing.T) {
	h := newHarness(t)
	r := h.runner(t, wikiPages(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sum.Interrupted)
	assert.Equal(t, StateDone, r.State())
	assert.False(t, h.ckpt.HasFrontier())
}

func TestRunSetupFault(t *testing.T) {
	h := newHarness(t)
	r := h.runner(t, wikiPages(), nil)
	require.NoError(t, os.RemoveAll(h.cfg.Checkpoint.Dir))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, r.State())
	assert.Empty(t, h.fetcher.Order(), "nothing is fetched once setup fails")
	assert.True(t, h.fetcher.Closed())
}

func TestRunOnlyOnce(t *testing.T) {
	h := newHarness(t)
	r := h.runner(t, wikiPages(), nil)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorContains(t, err, "cannot start")
}

func TestRunnerMetrics(t *testing.T) {
	h := newHarness(t)
	r := h.runner(t, wikiPages(), nil)
	m := observability.NewMetrics(testLogger)
	r.RegisterMetrics(m)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, int64(StateDone), snap["wikiscrape_runner_state"])
	assert.Equal(t, int64(4), snap["wikiscrape_articles_attempted_total"])
	assert.Equal(t, int64(2), snap["wikiscrape_articles_saved_total"])
	assert.Equal(t, int64(1), snap["wikiscrape_articles_skipped_total"])
}
