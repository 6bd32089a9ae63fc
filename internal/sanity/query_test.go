package sanity_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originesmedia/og-prerender/internal/sanity"
)

func TestEndpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://r941i081.api.sanity.io/v2024-03-01/data/query/production",
		sanity.Endpoint("r941i081", "production", "2024-03-01", false))
	assert.Equal(t,
		"https://r941i081.apicdn.sanity.io/v2024-03-01/data/query/production",
		sanity.Endpoint("r941i081", "production", "v2024-03-01", true))
}

func TestQueryURL_BindsSlugAsJSONParameter(t *testing.T) {
	t.Parallel()

	slug := `a"] | *[_type == "secret"]{...}` + "\n"
	raw, err := sanity.QueryURL("https://p.api.sanity.io/v1/data/query/ds", sanity.ArticleMetaQuery, map[string]string{"slug": slug})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, sanity.ArticleMetaQuery, q.Get("query"))
	assert.Equal(t, `"a\"] | *[_type == \"secret\"]{...}\n"`, q.Get("$slug"))
	assert.NotContains(t, q.Get("query"), "secret")
}
