package domain

import "context"

// SitemapEntry is one published document listed in the sitemap.
type SitemapEntry struct {
	Slug      string `json:"slug"`
	UpdatedAt string `json:"updatedAt"`
}

// SitemapContent groups the published documents by public section.
type SitemapContent struct {
	Articles        []SitemapEntry `json:"articles"`
	Series          []SitemapEntry `json:"series"`
	Histoires       []SitemapEntry `json:"histoires"`
	Recommandations []SitemapEntry `json:"recommandations"`
	Univers         []SitemapEntry `json:"univers"`
}

// SitemapSource lists the published documents for the sitemap. A nil result
// with a nil error means the content lake returned nothing.
type SitemapSource interface {
	FetchSitemapContent(ctx context.Context) (*SitemapContent, error)
}
