// Package metatags renders link-preview tags and splices them into the SPA
// shell.
package metatags

import (
	"github.com/originesmedia/og-prerender/internal/route"
)

// Site holds the per-site values used when rendering tags. It is built once
// at start-up and never mutated.
type Site struct {
	DefaultTitle       string
	DefaultDescription string
	DefaultImage       string
	SiteName           string
	Locale             string
	TwitterSite        string
	// Origin is the canonical scheme+host, without a trailing slash.
	Origin        string
	ArticlePrefix string
	ImageWidth    int
	ImageHeight   int
}

// Default image dimensions advertised to crawlers.
const (
	DefaultImageWidth  = 1200
	DefaultImageHeight = 630
)

// DefaultSite returns the Origines Media values.
func DefaultSite() Site {
	return Site{
		DefaultTitle:       "Origines Media - La profondeur du récit",
		DefaultDescription: "Une expérience média premium pour les chercheurs de sens. Découvrez des récits authentiques et des univers narratifs profonds.",
		DefaultImage:       "https://origines.media/og-image.png",
		SiteName:           "Origines Media",
		Locale:             "fr_FR",
		TwitterSite:        "@originesmedia",
		Origin:             "https://origines.media",
		ArticlePrefix:      route.ArticlePrefix,
		ImageWidth:         DefaultImageWidth,
		ImageHeight:        DefaultImageHeight,
	}
}

// CanonicalURL returns the public URL of the decoded article slug. The slug
// is percent-encoded as one path segment.
func (s Site) CanonicalURL(slug string) string {
	return s.Origin + route.Matcher{Prefix: s.ArticlePrefix}.Path(slug)
}
