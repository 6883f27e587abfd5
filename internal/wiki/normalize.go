package wiki

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// Normalizer turns hrefs found on wiki pages into canonical absolute links.
//
// Canonical form: scheme and host lowercased, default port dropped, fragment
// removed, path and query kept as served. A href that was naively prefixed
// with the base URL twice ("https://hosthttps://host/wiki/A") is repaired.
type Normalizer struct {
	base          *url.URL
	baseString    string
	indexPath     string
	articlePrefix string
	specialPrefix string
	pagination    string
}

// NewNormalizer builds a Normalizer for the configured site layout.
func NewNormalizer(site config.SiteConfig) (*Normalizer, error) {
	base, err := url.Parse(strings.TrimRight(site.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q", types.ErrInvalidURL, site.BaseURL)
	}
	base.Scheme = strings.ToLower(base.Scheme)
	base.Host = strings.ToLower(base.Host)
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Normalizer{
		base:          base,
		baseString:    base.String(),
		indexPath:     site.IndexPath,
		articlePrefix: site.ArticlePrefix,
		specialPrefix: site.SpecialPrefix,
		pagination:    site.PaginationPrefix,
	}, nil
}

// Root returns the root AllPages index segment.
func (n *Normalizer) Root() types.WikiLink {
	link, _ := n.Normalize(n.indexPath)
	link.Kind = types.KindIndexSegment
	return link
}

// Normalize resolves href against the site and classifies it. ok is false
// for empty, external, non-http, or unclassifiable links.
func (n *Normalizer) Normalize(href string) (link types.WikiLink, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return types.WikiLink{}, false
	}
	href = n.stripDuplicateBase(href)

	ref, err := url.Parse(href)
	if err != nil {
		return types.WikiLink{}, false
	}
	u := n.base.ResolveReference(ref)
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return types.WikiLink{}, false
	}
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}
	if u.Host != n.base.Host {
		return types.WikiLink{}, false
	}
	u.Fragment = ""
	u.RawFragment = ""

	kind := n.classify(u)
	if kind == types.KindOther {
		return types.WikiLink{}, false
	}
	return types.WikiLink{URL: u.String(), Kind: kind}, true
}

// NormalizeArticle is Normalize restricted to article links.
func (n *Normalizer) NormalizeArticle(href string) (types.WikiLink, bool) {
	link, ok := n.Normalize(href)
	if !ok || !link.IsArticle() {
		return types.WikiLink{}, false
	}
	return link, true
}

// IsPagination reports whether link is an AllPages continuation ("?from=") page.
func (n *Normalizer) IsPagination(link types.WikiLink) bool {
	if link.Kind != types.KindIndexSegment {
		return false
	}
	u, err := url.Parse(link.URL)
	if err != nil {
		return false
	}
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return strings.HasPrefix(target, n.pagination)
}

func (n *Normalizer) classify(u *url.URL) types.LinkKind {
	switch {
	case u.Path == n.indexPath:
		return types.KindIndexSegment
	case strings.HasPrefix(u.Path, n.specialPrefix):
		return types.KindOther
	case strings.HasPrefix(u.Path, n.articlePrefix) && len(u.Path) > len(n.articlePrefix):
		return types.KindArticle
	default:
		return types.KindOther
	}
}

// stripDuplicateBase repairs "BASE" + absolute-URL concatenations.
func (n *Normalizer) stripDuplicateBase(href string) string {
	for {
		rest, found := strings.CutPrefix(href, n.baseString)
		if !found {
			return href
		}
		if strings.HasPrefix(rest, "http://") || strings.HasPrefix(rest, "https://") || strings.HasPrefix(rest, "//") {
			href = rest
			continue
		}
		return href
	}
}
