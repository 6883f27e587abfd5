package parser

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// CSSParser builds goquery documents and answers CSS selector queries.
type CSSParser struct{}

// NewCSSParser creates a new CSS selector parser.
func NewCSSParser() *CSSParser {
	return &CSSParser{}
}

// Parse implements DocumentParser.
func (p *CSSParser) Parse(html []byte) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	return cssNode{sel: doc.Selection}, nil
}

// Engine implements DocumentParser.
func (p *CSSParser) Engine() string { return "css" }

type cssNode struct {
	sel *goquery.Selection
}

func (n cssNode) Find(selector string) []Node {
	return wrapSelection(n.sel.Find(selector))
}

func (n cssNode) Children(selector string) []Node {
	return wrapSelection(n.sel.ChildrenFiltered(selector))
}

func (n cssNode) Text() string {
	return normalizeSpace(n.sel.Text())
}

func (n cssNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func wrapSelection(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, cssNode{sel: s})
	})
	return nodes
}
