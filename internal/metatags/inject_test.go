package metatags_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originesmedia/og-prerender/internal/domain"
	"github.com/originesmedia/og-prerender/internal/metatags"
)

const shell = `<!doctype html><html lang="fr"><head><meta charset="UTF-8" /></head><body><div id="root"></div></body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func metaContent(doc *goquery.Document, selector string) (string, bool) {
	return doc.Find(selector).First().Attr("content")
}

func TestInject_FullMetadata(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()
	meta := &domain.ContentMetadata{
		Title:       "My Story",
		Description: "A tale",
		Image:       "https://cdn/x.jpg",
		PublishedAt: "2024-01-01",
		Author:      "Jane",
	}

	out := site.Inject(meta, "my-story", shell)
	doc := parse(t, out)

	assert.Equal(t, "My Story | Origines Media", doc.Find("title").Text())

	href, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	assert.Equal(t, "https://origines.media/article/my-story", href)

	expectations := map[string]string{
		`meta[name="title"]`:                      "My Story",
		`meta[name="description"]`:                "A tale",
		`meta[property="og:type"]`:                "article",
		`meta[property="og:url"]`:                 "https://origines.media/article/my-story",
		`meta[property="og:title"]`:               "My Story",
		`meta[property="og:description"]`:         "A tale",
		`meta[property="og:image"]`:               "https://cdn/x.jpg",
		`meta[property="og:image:width"]`:         "1200",
		`meta[property="og:image:height"]`:        "630",
		`meta[property="og:site_name"]`:           "Origines Media",
		`meta[property="og:locale"]`:              "fr_FR",
		`meta[property="article:published_time"]`: "2024-01-01",
		`meta[property="article:author"]`:         "Jane",
		`meta[name="twitter:card"]`:               "summary_large_image",
		`meta[name="twitter:url"]`:                "https://origines.media/article/my-story",
		`meta[name="twitter:title"]`:              "My Story",
		`meta[name="twitter:description"]`:        "A tale",
		`meta[name="twitter:image"]`:              "https://cdn/x.jpg",
		`meta[name="twitter:site"]`:               "@originesmedia",
	}
	for selector, want := range expectations {
		got, ok := metaContent(doc, selector)
		assert.True(t, ok, selector)
		assert.Equal(t, want, got, selector)
	}

	assert.Contains(t, out, `<meta property="og:title" content="My Story" />`)
}

func TestInject_EscapesEveryInterpolatedValue(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()
	hostile := `<script>alert(1)</script> & "quotes" 'apostrophes'`
	meta := &domain.ContentMetadata{
		Title:       hostile,
		Description: hostile,
		Image:       `https://cdn/x.jpg"><script>alert(2)</script>`,
		PublishedAt: `2024"><script>`,
		Author:      hostile,
	}

	block := site.Block(meta, `slug"onload='x'`)

	assert.NotContains(t, block, "<script>")
	assert.Contains(t, block, "&lt;script&gt;alert(1)&lt;/script&gt; &amp; &quot;quotes&quot; &#039;apostrophes&#039;")
	assert.Contains(t, block, `content="https://cdn/x.jpg&quot;&gt;&lt;script&gt;alert(2)&lt;/script&gt;"`)
	assert.Contains(t, block, `href="https://origines.media/article/slug%22onload=%27x%27"`)

	doc := parse(t, site.Inject(meta, "s", shell))
	assert.Equal(t, 0, doc.Find("head script").Length())
	title, _ := metaContent(doc, `meta[property="og:title"]`)
	assert.Equal(t, hostile, title)
}

func TestInject_PerFieldDefaults(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()
	doc := parse(t, site.Inject(&domain.ContentMetadata{Title: "T"}, "t", shell))

	assert.Equal(t, "T | Origines Media", doc.Find("title").Text())

	desc, _ := metaContent(doc, `meta[name="description"]`)
	assert.Equal(t, site.DefaultDescription, desc)

	image, _ := metaContent(doc, `meta[property="og:image"]`)
	assert.Equal(t, site.DefaultImage, image)
}

func TestInject_NilMetadataUsesDefaults(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()

	fromNil := site.Inject(nil, "x", shell)
	fromEmpty := site.Inject(&domain.ContentMetadata{}, "x", shell)
	assert.Equal(t, fromNil, fromEmpty)

	doc := parse(t, fromNil)
	assert.Equal(t, site.DefaultTitle+" | Origines Media", doc.Find("title").Text())
}

func TestInject_NoAnchorIsIdentity(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()
	docs := []string{
		"",
		"<html><body>no head close</body></html>",
		"<HEAD></HEAD>",
		"plain text",
	}
	for _, d := range docs {
		assert.Equal(t, d, site.Inject(&domain.ContentMetadata{Title: "<b>"}, "x", d))
	}
}

func TestInject_ConditionalArticleTags(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()

	without := site.Block(&domain.ContentMetadata{Title: "T"}, "x")
	assert.NotContains(t, without, "article:published_time")
	assert.NotContains(t, without, "article:author")

	with := site.Block(&domain.ContentMetadata{PublishedAt: "2024-01-01", Author: "Zoé & Léa"}, "x")
	assert.Contains(t, with, `<meta property="article:published_time" content="2024-01-01" />`)
	assert.Contains(t, with, `<meta property="article:author" content="Zoé &amp; Léa" />`)
}

func TestInject_SplicesBeforeFirstHeadClose(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()
	base := "<head><meta charset=\"UTF-8\" /></head><body></head></body>"
	block := site.Block(nil, "x")

	out := site.Inject(nil, "x", base)

	assert.Equal(t, `<head><meta charset="UTF-8" />`+block+"</head><body></head></body>", out)
}

func TestInject_DoesNotDedupe(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()
	once := site.Inject(nil, "x", shell)
	twice := site.Inject(nil, "x", once)

	assert.Equal(t, 2, strings.Count(twice, `property="og:title"`))
}

func TestSite_CustomValues(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()
	site.Origin = "https://staging.origines.media"
	site.ArticlePrefix = "/a/"
	site.TwitterSite = "@staging"

	block := site.Block(nil, "slug")

	assert.Contains(t, block, `href="https://staging.origines.media/a/slug"`)
	assert.Contains(t, block, `<meta name="twitter:site" content="@staging" />`)
}

func TestSite_CanonicalURLEscapesSlug(t *testing.T) {
	t.Parallel()

	site := metatags.DefaultSite()

	assert.Equal(t, "https://origines.media/article/r%C3%A9cit%22%3Cx", site.CanonicalURL(`récit"<x`))
	assert.Equal(t, "https://origines.media/article/a%2Fb", site.CanonicalURL("a/b"))
	assert.Equal(t, "https://origines.media/article/a%20b", site.CanonicalURL("a b"))

	doc := parse(t, site.Inject(nil, "récit", shell))
	ogURL, _ := doc.Find(`meta[property="og:url"]`).Attr("content")
	assert.Equal(t, "https://origines.media/article/r%C3%A9cit", ogURL)
}

func TestEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "&amp;&lt;&gt;&quot;&#039;", metatags.Escape(`&<>"'`))
	assert.Equal(t, "déjà vu", metatags.Escape("déjà vu"))
	assert.Equal(t, "&amp;amp;", metatags.Escape("&amp;"))
}
