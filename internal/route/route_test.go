package route_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originesmedia/og-prerender/internal/route"
)

func TestMatcher_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		wantSlug string
		wantOK   bool
	}{
		{"/article/le-souffle-du-monde", "le-souffle-du-monde", true},
		{"/article/x", "x", true},
		{"/article/%C3%A9t%C3%A9", "%C3%A9t%C3%A9", true},
		{"/article/a%2Fb", "a%2Fb", true},
		{"/article/", "", false},
		{"/article", "", false},
		{"/article/a/b", "", false},
		{"/article/a/", "", false},
		{"/other/x", "", false},
		{"/", "", false},
		{"", "", false},
		{"/articles/x", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			slug, ok := route.Articles.Match(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSlug, slug)
		})
	}
}

func TestMatcher_MatchURLDecodesSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rawURL   string
		wantSlug string
		wantOK   bool
	}{
		{"/article/plain", "plain", true},
		{"/article/r%C3%A9cit", "récit", true},
		{"/article/a%2Fb", "a/b", true},
		{"/article/a%20b?utm_source=x", "a b", true},
		{"/article/a/b", "", false},
		{"/article/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.rawURL)
			require.NoError(t, err)

			slug, ok := route.Articles.MatchURL(u)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSlug, slug)
		})
	}
}

func TestMatcher_PathEscapesSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/article/r%C3%A9cit", route.Articles.Path("récit"))
	assert.Equal(t, "/article/a%2Fb", route.Articles.Path("a/b"))

	u, err := url.Parse(route.Articles.Path(`d'"<x>`))
	require.NoError(t, err)
	slug, ok := route.Articles.MatchURL(u)
	require.True(t, ok)
	assert.Equal(t, `d'"<x>`, slug)
}

func TestMatcher_CustomPrefix(t *testing.T) {
	t.Parallel()

	m := route.Matcher{Prefix: "/univers/"}

	slug, ok := m.Match("/univers/recits")
	assert.True(t, ok)
	assert.Equal(t, "recits", slug)
	assert.Equal(t, "/univers/recits", m.Path(slug))

	_, ok = m.Match("/article/recits")
	assert.False(t, ok)
}
