package wiki

import "fmt"

// Selectors locates the MediaWiki page structures this package reads.
// Values are in the dialect of the active parser engine.
type Selectors struct {
	// AllPages index
	Nav      string // navigation block holding segment/pagination links
	ListBody string // article list container
	Anchor   string

	// Article pages
	Title     string
	Content   string
	Paragraph string // matched against direct children of Content
	Headers   string
	ListItems string
}

// hasClass builds an XPath predicate step matching one class token.
func hasClass(tag, class string) string {
	return fmt.Sprintf("%s[contains(concat(' ', normalize-space(@class), ' '), ' %s ')]", tag, class)
}

var (
	cssSelectors = Selectors{
		Nav:       "div.mw-allpages-nav",
		ListBody:  ".mw-allpages-body",
		Anchor:    "a",
		Title:     "h1#firstHeading",
		Content:   "div.mw-parser-output",
		Paragraph: "p",
		Headers:   "h2, h3",
		ListItems: "li",
	}

	xpathSelectors = Selectors{
		Nav:       hasClass("div", "mw-allpages-nav"),
		ListBody:  hasClass("*", "mw-allpages-body"),
		Anchor:    "a",
		Title:     "h1[@id='firstHeading']",
		Content:   hasClass("div", "mw-parser-output"),
		Paragraph: "p",
		Headers:   "*[self::h2 or self::h3]",
		ListItems: "li",
	}
)

// SelectorsFor returns the MediaWiki selectors for a parser engine.
func SelectorsFor(engine string) (Selectors, error) {
	switch engine {
	case "css":
		return cssSelectors, nil
	case "xpath":
		return xpathSelectors, nil
	default:
		return Selectors{}, fmt.Errorf("no selectors for parser engine %q", engine)
	}
}
