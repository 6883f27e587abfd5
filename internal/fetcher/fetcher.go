package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// PageFetcher is the interface for all page fetcher implementations.
type PageFetcher interface {
	// Fetch retrieves the rendered HTML at the request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the configured fetcher stack: the base fetcher, optionally
// guarded by robots.txt, wrapped in the shared rate limiter and retry policy.
// A failure here is a setup fault; nothing has been fetched yet.
func New(cfg *config.Config, logger *slog.Logger) (PageFetcher, error) {
	var base PageFetcher
	switch cfg.Fetcher.Type {
	case "browser":
		bf, err := NewBrowserFetcher(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("browser fetcher: %w", err)
		}
		base = bf
	case "http":
		hf, err := NewHTTPFetcher(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("http fetcher: %w", err)
		}
		base = hf
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Fetcher.Type)
	}

	if cfg.Engine.RespectRobotsTxt {
		base = NewRobotsGuard(base, cfg.Engine.UserAgent, nil, logger)
	}

	return NewPolite(base, PoliteOptions{
		RequestsPerSecond: cfg.Engine.RequestsPerSecond,
		Timeout:           cfg.Engine.RequestTimeout,
		MaxRetries:        cfg.Engine.MaxRetries,
		RetryDelay:        cfg.Engine.RetryDelay,
	}, logger), nil
}
