package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shell = `<html><head><meta charset="UTF-8" /></head><body><div id="root"></div></body></html>`

func writeConfig(t *testing.T, sanityEndpoint string) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yml")
	yml := "sanity:\n  endpoint: " + sanityEndpoint + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderCommand_PrintsInjectedHTML(t *testing.T) {
	sanity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"title":"Racines","description":"Un récit"}}`))
	}))
	defer sanity.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/index.html", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(shell))
	}))
	defer origin.Close()

	cfgPath := writeConfig(t, sanity.URL+"/v1/data/query/production")

	out, err := runRoot(t, "render", "--config", cfgPath, "--slug", "racines", "--origin", origin.URL)
	require.NoError(t, err)

	assert.Contains(t, out, `<meta property="og:title" content="Racines" />`)
	assert.Contains(t, out, `<link rel="canonical" href="https://origines.media/article/racines" />`)
	assert.Contains(t, out, `<div id="root"></div>`)
}

func TestRenderCommand_RejectsBlankSlug(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1/v1/data/query/production")

	_, err := runRoot(t, "render", "--config", cfgPath, "--slug", "  ")
	require.ErrorIs(t, err, ErrInvalidSlug)
}

func TestRenderCommand_RequiresSlug(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1/v1/data/query/production")

	_, err := runRoot(t, "render", "--config", cfgPath)
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1/v1/data/query/production")

	out, err := runRoot(t, "version", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "og-prerender 0.1.0\n", out)
}
