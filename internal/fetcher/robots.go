package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// RobotsGuard refuses fetches that the site's robots.txt disallows for our agent.
// robots.txt is fetched once per scheme+host; an unreachable file allows everything.
type RobotsGuard struct {
	next   PageFetcher
	agent  string
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

// NewRobotsGuard wraps next. A nil client gets a 10s-timeout default.
func NewRobotsGuard(next PageFetcher, agent string, client *http.Client, logger *slog.Logger) *RobotsGuard {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsGuard{
		next:   next,
		agent:  agent,
		client: client,
		logger: logger.With("component", "robots_guard"),
		groups: make(map[string]*robotstxt.Group),
	}
}

// Fetch checks robots.txt before delegating.
func (g *RobotsGuard) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: types.ErrInvalidURL}
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !g.group(ctx, u).Test(path) {
		g.logger.Debug("disallowed by robots.txt", "url", req.URL)
		return nil, &types.FetchError{URL: req.URL, Err: types.ErrBlocked}
	}
	return g.next.Fetch(ctx, req)
}

func (g *RobotsGuard) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	defer g.mu.Unlock()
	if grp, ok := g.groups[key]; ok {
		return grp
	}

	data := g.load(ctx, key+"/robots.txt")
	grp := data.FindGroup(g.agent)
	g.groups[key] = grp
	return grp
}

func (g *RobotsGuard) load(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	allowAll, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return allowAll
	}
	if g.agent != "" {
		req.Header.Set("User-Agent", g.agent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("robots.txt unreachable, allowing all", "url", robotsURL, "error", err)
		return allowAll
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		g.logger.Warn("robots.txt unparsable, allowing all", "url", robotsURL, "error", err)
		return allowAll
	}
	g.logger.Info("robots.txt loaded", "url", robotsURL, "status", resp.StatusCode)
	return data
}

// Close closes the wrapped fetcher.
func (g *RobotsGuard) Close() error { return g.next.Close() }

// Type returns the wrapped fetcher's type.
func (g *RobotsGuard) Type() string { return g.next.Type() }
