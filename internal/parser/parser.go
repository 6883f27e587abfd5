package parser

import (
	"fmt"
	"strings"
)

// DocumentParser turns fetched HTML into a queryable tree.
type DocumentParser interface {
	// Parse builds a document tree. The returned Node is the document root.
	Parse(html []byte) (Node, error)

	// Engine returns the selector dialect this parser understands ("css" or "xpath").
	Engine() string
}

// Node is one element, or the document root, of a parsed page.
// Selector syntax depends on the parser engine.
type Node interface {
	// Find returns every descendant matching selector, in document order.
	Find(selector string) []Node

	// Children returns the direct children matching selector, in document order.
	Children(selector string) []Node

	// Text returns the node's text content with whitespace runs collapsed and trimmed.
	Text() string

	// Attr returns the named attribute and whether it is present.
	Attr(name string) (string, bool)
}

// New returns the parser for the given engine name.
func New(engine string) (DocumentParser, error) {
	switch engine {
	case "", "css":
		return NewCSSParser(), nil
	case "xpath":
		return NewXPathParser(), nil
	default:
		return nil, fmt.Errorf("unknown parser engine %q", engine)
	}
}

// First returns the first descendant of n matching selector.
func First(n Node, selector string) (Node, bool) {
	nodes := n.Find(selector)
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

// Texts returns the normalized text of each node, dropping blanks when skipEmpty is set.
func Texts(nodes []Node, skipEmpty bool) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		t := n.Text()
		if skipEmpty && t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
