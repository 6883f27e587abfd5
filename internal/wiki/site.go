// Package wiki discovers and extracts articles from a MediaWiki site
// through its Special:AllPages index.
package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/fetcher"
	"github.com/IshaanNene/wikiscrape/internal/parser"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// Site bundles what every wiki component needs: the shared fetcher, the
// document parser, URL normalization and the selectors for the parser's dialect.
type Site struct {
	Fetcher    fetcher.PageFetcher
	Parser     parser.DocumentParser
	Normalizer *Normalizer
	Selectors  Selectors

	IndexSettle   time.Duration
	ArticleSettle time.Duration

	logger *slog.Logger
}

// NewSite wires a Site from configuration.
func NewSite(cfg *config.Config, f fetcher.PageFetcher, p parser.DocumentParser, logger *slog.Logger) (*Site, error) {
	norm, err := NewNormalizer(cfg.Site)
	if err != nil {
		return nil, err
	}
	sel, err := SelectorsFor(p.Engine())
	if err != nil {
		return nil, err
	}
	return &Site{
		Fetcher:       f,
		Parser:        p,
		Normalizer:    norm,
		Selectors:     sel,
		IndexSettle:   cfg.Fetcher.IndexSettleDelay,
		ArticleSettle: cfg.Fetcher.ArticleSettleDelay,
		logger:        logger,
	}, nil
}

// load fetches url and parses the result.
func (s *Site) load(ctx context.Context, url string, kind types.LinkKind) (parser.Node, error) {
	settle := s.ArticleSettle
	if kind == types.KindIndexSegment {
		settle = s.IndexSettle
	}

	req, err := types.NewRequest(url, kind, settle)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err}
	}
	page, err := s.Fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if page.Size() == 0 {
		return nil, &types.FetchError{URL: url, StatusCode: page.StatusCode, Err: types.ErrEmptyResponse}
	}

	doc, err := s.Parser.Parse(page.HTML)
	if err != nil {
		return nil, &types.ParseError{URL: url, Err: fmt.Errorf("parse document: %w", err)}
	}
	return doc, nil
}
