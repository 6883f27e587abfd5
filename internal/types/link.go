package types

// LinkKind classifies a normalized wiki URL.
type LinkKind int

const (
	// KindOther is any same-site URL that is neither an article nor an index page.
	KindOther LinkKind = iota
	// KindArticle is a content page under the article path prefix.
	KindArticle
	// KindIndexSegment is an entry point (or pagination step) of the AllPages index.
	KindIndexSegment
)

func (k LinkKind) String() string {
	switch k {
	case KindArticle:
		return "article"
	case KindIndexSegment:
		return "index_segment"
	default:
		return "other"
	}
}

// WikiLink is an absolute, normalized URL on the target wiki.
// Two links are equal iff their URL strings are byte-equal.
type WikiLink struct {
	URL  string
	Kind LinkKind
}

func (l WikiLink) String() string { return l.URL }

// IsArticle reports whether the link points at a content page.
func (l WikiLink) IsArticle() bool { return l.Kind == KindArticle }
