// Package domain holds the content records shared by the prerender path and
// the sitemap.
package domain

import "context"

// ContentMetadata is the subset of an article record used for link previews.
// JSON null and absent fields decode to "".
type ContentMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Author      string `json:"author"`
}

// IsEmpty reports whether m carries nothing usable. A nil record is empty.
func (m *ContentMetadata) IsEmpty() bool {
	return m == nil || *m == ContentMetadata{}
}

// MetadataFetcher looks up the metadata of an article by slug. A nil result
// with a nil error means no article has that slug.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, slug string) (*ContentMetadata, error)
}
