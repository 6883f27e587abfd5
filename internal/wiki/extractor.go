package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/wikiscrape/internal/parser"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// ArticleExtractor turns an article page into an ArticleRecord.
type ArticleExtractor struct {
	site   *Site
	logger *slog.Logger
}

// NewArticleExtractor creates an extractor for site.
func NewArticleExtractor(site *Site, logger *slog.Logger) *ArticleExtractor {
	return &ArticleExtractor{
		site:   site,
		logger: logger.With("component", "article_extractor"),
	}
}

// Extract fetches url and extracts its record.
//
// Three outcomes: a record; an error wrapping types.ErrNoContent when the
// page lacks a title or content container (an expected skip); or a fetch or
// parse fault.
func (e *ArticleExtractor) Extract(ctx context.Context, url string) (*types.ArticleRecord, error) {
	doc, err := e.site.load(ctx, url, types.KindArticle)
	if err != nil {
		return nil, err
	}
	return e.FromDocument(url, doc)
}

// FromDocument extracts a record from an already parsed page.
func (e *ArticleExtractor) FromDocument(url string, doc parser.Node) (*types.ArticleRecord, error) {
	sel := e.site.Selectors

	titleNode, ok := parser.First(doc, sel.Title)
	if !ok {
		return nil, fmt.Errorf("%w: no title element", types.ErrNoContent)
	}
	content, ok := parser.First(doc, sel.Content)
	if !ok {
		return nil, fmt.Errorf("%w: no content container", types.ErrNoContent)
	}
	title := titleNode.Text()
	if title == "" {
		return nil, fmt.Errorf("%w: blank title", types.ErrNoContent)
	}

	rec := types.NewArticleRecord(url, title)
	rec.Paragraphs = append(rec.Paragraphs, parser.Texts(content.Children(sel.Paragraph), true)...)
	rec.Headers = append(rec.Headers, parser.Texts(content.Find(sel.Headers), false)...)
	rec.ListItems = append(rec.ListItems, parser.Texts(content.Find(sel.ListItems), false)...)

	e.logger.Debug("article extracted",
		"url", url,
		"title", title,
		"paragraphs", len(rec.Paragraphs),
		"headers", len(rec.Headers),
		"list_items", len(rec.ListItems),
	)
	return rec, nil
}
