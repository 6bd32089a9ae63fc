package metatags

import (
	"strconv"
	"strings"

	"github.com/originesmedia/og-prerender/internal/domain"
)

// headClose is the anchor the block is inserted before.
const headClose = "</head>"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape replaces & < > " ' with their entities.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

// resolved holds the values after per-field defaulting.
type resolved struct {
	title       string
	description string
	image       string
	canonical   string
	publishedAt string
	author      string
}

func (s Site) resolve(meta *domain.ContentMetadata, slug string) resolved {
	r := resolved{
		title:       s.DefaultTitle,
		description: s.DefaultDescription,
		image:       s.DefaultImage,
		canonical:   s.CanonicalURL(slug),
	}
	if meta == nil {
		return r
	}

	if meta.Title != "" {
		r.title = meta.Title
	}
	if meta.Description != "" {
		r.description = meta.Description
	}
	if meta.Image != "" {
		r.image = meta.Image
	}
	r.publishedAt = meta.PublishedAt
	r.author = meta.Author
	return r
}

// Block renders the tag block for slug. A nil meta renders the site defaults.
func (s Site) Block(meta *domain.ContentMetadata, slug string) string {
	r := s.resolve(meta, slug)

	var b strings.Builder
	b.Grow(2048)

	line := func(text string) { b.WriteString("    " + text + "\n") }
	metaName := func(name, content string) {
		line(`<meta name="` + name + `" content="` + Escape(content) + `" />`)
	}
	metaProperty := func(property, content string) {
		line(`<meta property="` + property + `" content="` + Escape(content) + `" />`)
	}

	b.WriteString("\n")
	line("<!-- Article Meta Tags -->")
	line("<title>" + Escape(r.title) + " | " + Escape(s.SiteName) + "</title>")
	metaName("title", r.title)
	metaName("description", r.description)
	line(`<link rel="canonical" href="` + Escape(r.canonical) + `" />`)

	b.WriteString("\n")
	line("<!-- Open Graph -->")
	metaProperty("og:type", "article")
	metaProperty("og:url", r.canonical)
	metaProperty("og:title", r.title)
	metaProperty("og:description", r.description)
	metaProperty("og:image", r.image)
	metaProperty("og:image:width", strconv.Itoa(s.ImageWidth))
	metaProperty("og:image:height", strconv.Itoa(s.ImageHeight))
	metaProperty("og:site_name", s.SiteName)
	metaProperty("og:locale", s.Locale)
	if r.publishedAt != "" {
		metaProperty("article:published_time", r.publishedAt)
	}
	if r.author != "" {
		metaProperty("article:author", r.author)
	}

	b.WriteString("\n")
	line("<!-- Twitter -->")
	metaName("twitter:card", "summary_large_image")
	metaName("twitter:url", r.canonical)
	metaName("twitter:title", r.title)
	metaName("twitter:description", r.description)
	metaName("twitter:image", r.image)
	metaName("twitter:site", s.TwitterSite)
	b.WriteString("  ")

	return b.String()
}

// Inject inserts the tag block immediately before the first </head> of
// baseDocument. A document without </head> is returned unchanged. Existing
// tags are left in place.
func (s Site) Inject(meta *domain.ContentMetadata, slug, baseDocument string) string {
	i := strings.Index(baseDocument, headClose)
	if i < 0 {
		return baseDocument
	}
	return baseDocument[:i] + s.Block(meta, slug) + baseDocument[i:]
}
