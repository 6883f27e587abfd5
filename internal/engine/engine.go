// Package engine drives a full crawl: link discovery, then extraction of
// every pending article with outcomes recorded for resume.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/wikiscrape/internal/checkpoint"
	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/frontier"
	"github.com/IshaanNene/wikiscrape/internal/storage"
	"github.com/IshaanNene/wikiscrape/internal/types"
	"github.com/IshaanNene/wikiscrape/internal/wiki"
)

// Runner owns one crawl run. It is single-use: Run may be called once.
type Runner struct {
	cfg        *config.Config
	site       *wiki.Site
	collector  *wiki.LinkCollector
	extractor  *wiki.ArticleExtractor
	checkpoint *checkpoint.Store
	store      storage.RecordStore
	logger     *slog.Logger

	runID           string
	state           atomic.Int32
	stats           *Stats
	storageFaultRun atomic.Int64
	releaseOnce     sync.Once
	releaseErr      error
}

// NewRunner wires a runner. The runner takes ownership of site.Fetcher and
// store and releases both when Run returns or Close is called.
func NewRunner(cfg *config.Config, site *wiki.Site, ckpt *checkpoint.Store,
	store storage.RecordStore, logger *slog.Logger) *Runner {
	runID := uuid.NewString()
	logger = logger.With("component", "runner")

	collector := wiki.NewLinkCollector(site,
		wiki.NewSegmentDiscoverer(site, logger),
		wiki.NewSegmentCrawler(site, cfg.Engine.MaxSegmentPages, logger),
		ckpt,
		cfg.Engine.DiscoveryConcurrency,
		logger,
	)

	return &Runner{
		cfg:        cfg,
		site:       site,
		collector:  collector,
		extractor:  wiki.NewArticleExtractor(site, logger),
		checkpoint: ckpt,
		store:      store,
		logger:     logger,
		runID:      runID,
		stats:      &Stats{},
	}
}

// RunID identifies this run in the outcome log.
func (r *Runner) RunID() string { return r.runID }

// State returns the current lifecycle state.
func (r *Runner) State() State { return State(r.state.Load()) }

// Stats returns the live counters.
func (r *Runner) Stats() *Stats { return r.stats }

// Run executes the crawl. Cancelling ctx stops new fetches; in-flight ones
// finish, outcomes are flushed and the summary is returned with ctx's error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateDiscovering)) {
		return Summary{}, fmt.Errorf("runner is in state %s, cannot start", r.State())
	}
	defer r.Close()

	r.stats.StartTime = time.Now()
	r.logger.Info("run starting",
		"run_id", r.runID,
		"index", r.cfg.Site.IndexURL(),
		"fetcher", r.site.Fetcher.Type(),
		"parser", r.site.Parser.Engine(),
		"storage", r.store.Name(),
		"concurrency", r.cfg.Engine.Concurrency,
		"resume", r.cfg.Checkpoint.Resume,
	)

	if !r.cfg.Checkpoint.Resume {
		if err := r.checkpoint.Reset(); err != nil {
			return r.fail(fmt.Errorf("reset checkpoint: %w", err))
		}
	}

	outcomes, err := r.checkpoint.OpenLog()
	if err != nil {
		return r.fail(fmt.Errorf("open outcome log: %w", err))
	}

	front, err := r.frontier(ctx)
	if err != nil {
		outcomes.Close()
		if ctx.Err() != nil {
			return r.finish(ctx)
		}
		return r.fail(err)
	}

	latest, err := outcomes.Load()
	if err != nil {
		outcomes.Close()
		return r.fail(fmt.Errorf("load outcome log: %w", err))
	}
	index := checkpoint.NewIndex(latest, r.cfg.Checkpoint.RetryFailed)

	all := front.Sorted()
	pending := index.Pending(all)
	r.stats.Total.Store(int64(len(all)))
	r.stats.AlreadyComplete.Store(int64(len(all) - len(pending)))
	r.stats.Pending.Store(int64(len(pending)))

	r.state.Store(int32(StateExtracting))
	r.logger.Info("extraction starting",
		"total", len(all),
		"already_complete", len(all)-len(pending),
		"pending", len(pending),
	)

	rec := checkpoint.NewRecorder(outcomes, r.runID, r.cfg.Engine.Concurrency*4, r.logger)
	r.extractAll(ctx, pending, rec)
	if err := rec.Close(); err != nil {
		r.logger.Error("outcome log incomplete", "error", err)
	}

	return r.finish(ctx)
}

// frontier loads the persisted URL list when resuming, or collects a new one.
func (r *Runner) frontier(ctx context.Context) (*frontier.Frontier, error) {
	if r.cfg.Checkpoint.Resume && r.checkpoint.HasFrontier() {
		urls, err := r.checkpoint.LoadFrontier()
		if err == nil {
			r.logger.Info("resuming from saved frontier", "path", r.checkpoint.FrontierPath(), "urls", len(urls))
			return frontier.FromURLs(urls), nil
		}
		if !errors.Is(err, types.ErrNoFrontier) {
			return nil, fmt.Errorf("load frontier: %w", err)
		}
	}
	return r.collector.Collect(ctx)
}

type job struct {
	index int
	url   string
}

// extractAll feeds pending URLs to a bounded pool of workers.
func (r *Runner) extractAll(ctx context.Context, pending []string, rec *checkpoint.Recorder) {
	workers := max(r.cfg.Engine.Concurrency, 1)
	jobs := make(chan job)

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				r.process(ctx, j, len(pending), rec)
			}
			return nil
		})
	}

feed:
	for i, u := range pending {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- job{index: i, url: u}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	_ = g.Wait()
}

// process extracts and stores one article and records its outcome.
func (r *Runner) process(ctx context.Context, j job, total int, rec *checkpoint.Recorder) {
	r.logger.Info(fmt.Sprintf("scraping (%d/%d)", j.index+1, total), "url", j.url)
	r.stats.Attempted.Add(1)

	fctx, cancel := r.inflightContext(ctx)
	defer cancel()

	article, err := r.extractor.Extract(fctx, j.url)
	switch {
	case errors.Is(err, types.ErrNoContent):
		r.stats.Skipped.Add(1)
		r.logger.Info("skipping page, no content found", "url", j.url, "reason", err)
		rec.Record(j.url, types.OutcomeSkip, nil)
		return
	case err != nil:
		r.stats.Failed.Add(1)
		r.logger.Error("error scraping page", "url", j.url, "error", err)
		rec.Record(j.url, types.OutcomeFail, err)
		return
	}

	if err := r.store.Write(fctx, article); err != nil {
		r.stats.Failed.Add(1)
		r.stats.StorageFaults.Add(1)
		r.logger.Error("failed to store article", "url", j.url, "title", article.Title, "error", err)
		if n := r.storageFaultRun.Add(1); n%int64(r.cfg.Engine.StorageFaultThreshold) == 0 {
			r.logger.Warn("consecutive storage faults, check the output destination",
				"consecutive", n,
				"storage", r.store.Name(),
			)
		}
		rec.Record(j.url, types.OutcomeFail, err)
		return
	}

	r.storageFaultRun.Store(0)
	r.stats.Succeeded.Add(1)
	r.logger.Info("article saved", "url", j.url, "title", article.Title)
	rec.Record(j.url, types.OutcomeSuccess, nil)
}

// inflightContext detaches a fetch from ctx's cancellation. Once ctx is
// cancelled the fetch gets a further request_timeout to finish.
func (r *Runner) inflightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	grace := r.cfg.Engine.RequestTimeout
	stop := context.AfterFunc(ctx, func() {
		time.AfterFunc(grace, cancel)
	})
	return fctx, func() {
		stop()
		cancel()
	}
}

// finish moves to Done and logs the summary.
func (r *Runner) finish(ctx context.Context) (Summary, error) {
	r.state.Store(int32(StateDone))
	sum := r.summary()
	sum.Interrupted = ctx.Err() != nil

	if sum.Interrupted {
		r.logger.Warn("run interrupted", sum.LogAttrs()...)
		return sum, ctx.Err()
	}
	r.logger.Info("run summary", sum.LogAttrs()...)
	r.logger.Info("all pages processed")
	return sum, nil
}

// fail moves to Failed for setup faults that make the run impossible.
func (r *Runner) fail(err error) (Summary, error) {
	r.state.Store(int32(StateFailed))
	sum := r.summary()
	r.logger.Error("run failed", append([]any{"error", err}, sum.LogAttrs()...)...)
	return sum, err
}

func (r *Runner) summary() Summary {
	sum := r.stats.Snapshot()
	sum.RunID = r.runID
	return sum
}

// Close releases the fetcher and the record store. It is safe to call
// more than once.
func (r *Runner) Close() error {
	r.releaseOnce.Do(func() {
		var errs []error
		if err := r.site.Fetcher.Close(); err != nil {
			r.logger.Error("fetcher close error", "error", err)
			errs = append(errs, err)
		}
		if err := r.store.Close(); err != nil {
			r.logger.Error("storage close error", "error", err)
			errs = append(errs, err)
		}
		r.releaseErr = errors.Join(errs...)
	})
	return r.releaseErr
}
