package parser

import (
	"bytes"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPathParser answers XPath step expressions via htmlquery.
//
// Selectors are relative steps such as `div[@id='x']` or `*[self::h2 or self::h3]`;
// Find evaluates them on the descendant axis and Children on the child axis.
type XPathParser struct{}

// NewXPathParser creates a new XPath parser.
func NewXPathParser() *XPathParser {
	return &XPathParser{}
}

// Parse implements DocumentParser.
func (p *XPathParser) Parse(raw []byte) (Node, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return xpathNode{n: doc}, nil
}

// Engine implements DocumentParser.
func (p *XPathParser) Engine() string { return "xpath" }

type xpathNode struct {
	n *html.Node
}

func (x xpathNode) Find(selector string) []Node {
	return x.query(".//" + selector)
}

func (x xpathNode) Children(selector string) []Node {
	return x.query("./" + selector)
}

func (x xpathNode) query(expr string) []Node {
	found, err := htmlquery.QueryAll(x.n, expr)
	if err != nil {
		return nil
	}
	nodes := make([]Node, 0, len(found))
	for _, n := range found {
		nodes = append(nodes, xpathNode{n: n})
	}
	return nodes
}

func (x xpathNode) Text() string {
	return normalizeSpace(htmlquery.InnerText(x.n))
}

func (x xpathNode) Attr(name string) (string, bool) {
	for _, a := range x.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
