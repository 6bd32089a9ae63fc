package sanity

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// ArticleMetaQuery selects the preview fields of a published article.
const ArticleMetaQuery = `*[_type == "production" && slug.current == $slug][0] {
  "title": titre,
  "description": description,
  "image": coalesce(image.asset->url, imageUrl),
  "publishedAt": datePublication,
  "author": auteur->nom
}`

// SitemapQuery lists the slugs and update times of every published document
// that has a public page, newest first within each section.
const SitemapQuery = `{
  "articles": *[_type == "production" && defined(slug.current)] | order(datePublication desc) [0...500] {
    "slug": slug.current,
    "updatedAt": _updatedAt
  },
  "series": *[_type == "serie" && defined(slug.current)] | order(_createdAt desc) [0...100] {
    "slug": slug.current,
    "updatedAt": _updatedAt
  },
  "histoires": *[_type == "portrait" && defined(slug.current)] | order(datePublication desc) [0...200] {
    "slug": slug.current,
    "updatedAt": _updatedAt
  },
  "recommandations": *[_type == "recommandation" && defined(slug.current)] | order(_createdAt desc) [0...100] {
    "slug": slug.current,
    "updatedAt": _updatedAt
  },
  "univers": *[_type == "verticale" && defined(slug.current)] [0...20] {
    "slug": slug.current,
    "updatedAt": _updatedAt
  }
}`

// Endpoint returns the query endpoint of a project dataset.
func Endpoint(projectID, dataset, apiVersion string, useCDN bool) string {
	host := "api"
	if useCDN {
		host = "apicdn"
	}
	return fmt.Sprintf("https://%s.%s.sanity.io/v%s/data/query/%s",
		projectID, host, strings.TrimPrefix(apiVersion, "v"), dataset)
}

// QueryURL builds a GET query URL. Params are bound as $name, JSON-encoded,
// so values never become part of the GROQ text.
func QueryURL(endpoint, query string, params map[string]string) (string, error) {
	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteString("?query=")
	b.WriteString(url.QueryEscape(query))

	for _, name := range slices.Sorted(maps.Keys(params)) {
		encoded, err := json.Marshal(params[name])
		if err != nil {
			return "", fmt.Errorf("encode param %s: %w", name, err)
		}
		b.WriteString("&$")
		b.WriteString(url.QueryEscape(name))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(string(encoded)))
	}
	return b.String(), nil
}
