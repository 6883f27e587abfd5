package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// PoliteOptions configures the shared rate limit and retry policy.
type PoliteOptions struct {
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

// Polite wraps a PageFetcher with one rate limiter shared by every caller,
// a per-attempt timeout and retries for retryable faults. All discovery and
// extraction fetches of a run go through a single Polite, so the limit
// bounds total requests rather than per-worker requests.
type Polite struct {
	next    PageFetcher
	limiter *rate.Limiter
	opts    PoliteOptions
	logger  *slog.Logger

	attempts atomic.Int64
	retries  atomic.Int64
}

// NewPolite creates a rate-limited, retrying fetcher around next.
func NewPolite(next PageFetcher, opts PoliteOptions, logger *slog.Logger) *Polite {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Polite{
		next:    next,
		limiter: rate.NewLimiter(limit, opts.Burst),
		opts:    opts,
		logger:  logger.With("component", "polite_fetcher"),
	}
}

// Fetch waits for the limiter, then fetches with retries.
// A timed-out attempt is reported as a non-retryable FetchError.
func (p *Polite) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	var lastErr error
	for attempt := 0; attempt <= p.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff(attempt, lastErr)
			p.retries.Add(1)
			p.logger.Warn("retrying fetch",
				"url", req.URL,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, &types.FetchError{URL: req.URL, Err: err}
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, &types.FetchError{URL: req.URL, Err: err}
		}

		page, err := p.attempt(ctx, req)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil || !types.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *Polite) attempt(ctx context.Context, req *types.Request) (*types.Page, error) {
	p.attempts.Add(1)
	if p.opts.Timeout <= 0 {
		return p.next.Fetch(ctx, req)
	}

	actx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	page, err := p.next.Fetch(actx, req)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return nil, &types.FetchError{
			URL: req.URL,
			Err: fmt.Errorf("timed out after %s: %w", p.opts.Timeout, context.DeadlineExceeded),
		}
	}
	return page, err
}

// backoff grows linearly with the attempt number; a server Retry-After wins if longer.
func (p *Polite) backoff(attempt int, lastErr error) time.Duration {
	delay := p.opts.RetryDelay * time.Duration(attempt)
	var fe *types.FetchError
	if errors.As(lastErr, &fe) && fe.RetryAfter > delay {
		delay = fe.RetryAfter
	}
	return delay
}

// Attempts returns how many fetch attempts reached the underlying fetcher.
func (p *Polite) Attempts() int64 { return p.attempts.Load() }

// Retries returns how many attempts were retries.
func (p *Polite) Retries() int64 { return p.retries.Load() }

// Close closes the wrapped fetcher.
func (p *Polite) Close() error { return p.next.Close() }

// Type returns the wrapped fetcher's type.
func (p *Polite) Type() string { return p.next.Type() }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
