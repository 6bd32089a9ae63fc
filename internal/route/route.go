// Package route recognises the article paths that get prerendered.
package route

import (
	"net/url"
	"strings"
)

// ArticlePrefix is the path prefix of article pages.
const ArticlePrefix = "/article/"

// Matcher matches paths of the form <Prefix><slug>, where slug is a single
// non-empty path segment.
type Matcher struct {
	Prefix string
}

// Articles is the matcher for ArticlePrefix.
var Articles = Matcher{Prefix: ArticlePrefix}

// Match returns the raw segment when path is exactly one segment below the
// prefix. path must be percent-encoded, so an escaped slash (%2F) stays part
// of the segment.
func (m Matcher) Match(path string) (string, bool) {
	segment, found := strings.CutPrefix(path, m.Prefix)
	if !found || segment == "" || strings.Contains(segment, "/") {
		return "", false
	}
	return segment, true
}

// MatchURL matches the escaped path of u and returns the decoded slug.
func (m Matcher) MatchURL(u *url.URL) (string, bool) {
	segment, ok := m.Match(u.EscapedPath())
	if !ok {
		return "", false
	}
	slug, err := url.PathUnescape(segment)
	if err != nil {
		return segment, true
	}
	return slug, true
}

// Path builds the escaped route of a decoded slug.
func (m Matcher) Path(slug string) string {
	return m.Prefix + url.PathEscape(slug)
}
