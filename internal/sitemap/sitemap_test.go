package sitemap_test

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/originesmedia/og-prerender/infrastructure/logger"
	"github.com/originesmedia/og-prerender/internal/domain"
	"github.com/originesmedia/og-prerender/internal/sitemap"
	"github.com/originesmedia/og-prerender/internal/telemetry"
)

type mockSource struct{ mock.Mock }

func (m *mockSource) FetchSitemapContent(ctx context.Context) (*domain.SitemapContent, error) {
	args := m.Called(ctx)
	content, _ := args.Get(0).(*domain.SitemapContent)
	return content, args.Error(1)
}

type parsedURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type parsedSet struct {
	XMLName xml.Name    `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	URLs    []parsedURL `xml:"url"`
}

func parse(t *testing.T, body []byte) parsedSet {
	t.Helper()

	var set parsedSet
	require.NoError(t, xml.Unmarshal(body, &set))
	return set
}

func byLoc(set parsedSet) map[string]parsedURL {
	out := make(map[string]parsedURL, len(set.URLs))
	for _, u := range set.URLs {
		out[u.Loc] = u
	}
	return out
}

var fixedNow = time.Date(2025, 3, 14, 23, 30, 0, 0, time.FixedZone("CET", 3600))

func newGenerator(source domain.SitemapSource, metrics *telemetry.Metrics) *sitemap.Generator {
	return sitemap.New(source, sitemap.Config{
		BaseURL:      "https://origines.media/",
		CacheControl: "public, s-maxage=3600, stale-while-revalidate=86400",
	}, logger.NewNop(), metrics, sitemap.WithClock(func() time.Time { return fixedNow }))
}

func TestBuild_ListsStaticPagesAndContent(t *testing.T) {
	t.Parallel()

	source := &mockSource{}
	source.On("FetchSitemapContent", mock.Anything).Return(&domain.SitemapContent{
		Articles: []domain.SitemapEntry{
			{Slug: "racines", UpdatedAt: "2024-05-02T23:30:00-02:00"},
			{Slug: "récit d'été"},
			{Slug: ""},
		},
		Series:          []domain.SitemapEntry{{Slug: "origines", UpdatedAt: "2024-01-01T00:00:00Z"}},
		Histoires:       []domain.SitemapEntry{{Slug: "marie", UpdatedAt: "not a date"}},
		Recommandations: []domain.SitemapEntry{{Slug: "livre", UpdatedAt: "2023-12-31T12:00:00Z"}},
		Univers:         []domain.SitemapEntry{{Slug: "recits", UpdatedAt: "2024-02-02T00:00:00Z"}},
	}, nil).Once()

	body, err := newGenerator(source, nil).Build(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(body), xml.Header))
	set := parse(t, body)
	require.Len(t, set.URLs, len(sitemap.StaticPages)+6)

	urls := byLoc(set)
	assert.Equal(t, parsedURL{Loc: "https://origines.media/", ChangeFreq: "daily", Priority: "1.0"}, urls["https://origines.media/"])
	assert.Equal(t, parsedURL{Loc: "https://origines.media/cgv", ChangeFreq: "yearly", Priority: "0.3"}, urls["https://origines.media/cgv"])

	assert.Equal(t, parsedURL{
		Loc:        "https://origines.media/article/racines",
		LastMod:    "2024-05-03",
		ChangeFreq: "weekly",
		Priority:   "0.8",
	}, urls["https://origines.media/article/racines"])
	assert.Equal(t, "2025-03-14", urls["https://origines.media/article/r%C3%A9cit%20d%27%C3%A9t%C3%A9"].LastMod)
	assert.Equal(t, "0.7", urls["https://origines.media/series/origines"].Priority)
	assert.Equal(t, "2025-03-14", urls["https://origines.media/histoire/marie"].LastMod)
	assert.Equal(t, "monthly", urls["https://origines.media/recommandation/livre"].ChangeFreq)
	assert.Equal(t, "2024-02-02", urls["https://origines.media/univers/recits"].LastMod)
}

func TestBuild_ContentFailureListsStaticPagesOnly(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	tel := telemetry.NewProvider(reg)

	source := &mockSource{}
	source.On("FetchSitemapContent", mock.Anything).Return(nil, errors.New("sanity down")).Once()

	body, err := newGenerator(source, tel.Metrics).Build(context.Background())
	require.NoError(t, err)

	set := parse(t, body)
	require.Len(t, set.URLs, len(sitemap.StaticPages))
	for i, p := range sitemap.StaticPages {
		assert.Equal(t, "https://origines.media"+p.Path, set.URLs[i].Loc)
		assert.Empty(t, set.URLs[i].LastMod)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(tel.Metrics.FetchFailures.WithLabelValues(sitemap.StageSitemap)), 0)
}

func TestBuild_NilContentListsStaticPagesOnly(t *testing.T) {
	t.Parallel()

	source := &mockSource{}
	source.On("FetchSitemapContent", mock.Anything).Return(nil, nil).Once()

	body, err := newGenerator(source, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, parse(t, body).URLs, len(sitemap.StaticPages))
}

func TestBuild_CustomPages(t *testing.T) {
	t.Parallel()

	source := &mockSource{}
	source.On("FetchSitemapContent", mock.Anything).Return(nil, nil).Once()

	g := sitemap.New(source, sitemap.Config{
		BaseURL: "https://staging.origines.media",
		Pages:   []sitemap.Page{{Path: "/", ChangeFreq: sitemap.Daily, Priority: 0.5}},
	}, logger.NewNop(), nil)

	body, err := g.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []parsedURL{{Loc: "https://staging.origines.media/", ChangeFreq: "daily", Priority: "0.5"}}, parse(t, body).URLs)
}

func TestHandle(t *testing.T) {
	t.Parallel()

	source := &mockSource{}
	source.On("FetchSitemapContent", mock.Anything).Return(&domain.SitemapContent{
		Articles: []domain.SitemapEntry{{Slug: "racines", UpdatedAt: "2024-05-02T10:00:00Z"}},
	}, nil).Once()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/sitemap.xml", newGenerator(source, nil).Handle)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sitemap.xml", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sitemap.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "public, s-maxage=3600, stale-while-revalidate=86400", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), "<loc>https://origines.media/article/racines</loc>")
	source.AssertExpectations(t)
}
