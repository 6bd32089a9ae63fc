// Package document fetches the SPA shell the link-preview tags are injected
// into.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	infrahttp "github.com/originesmedia/og-prerender/infrastructure/http"
)

// FallbackTemplate is served as the shell when the real one cannot be fetched.
const FallbackTemplate = `<!doctype html>
<html lang="fr">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <link rel="icon" type="image/png" sizes="32x32" href="/favicon-32x32.png" />
    <link rel="icon" type="image/png" sizes="16x16" href="/favicon-16x16.png" />
    <link rel="apple-touch-icon" sizes="180x180" href="/apple-touch-icon.png" />
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.tsx"></script>
  </body>
</html>`

// Defaults for Config.
const (
	DefaultIndexPath    = "/index.html"
	DefaultTimeout      = 3 * time.Second
	DefaultMaxBodyBytes = 2 << 20
)

var (
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrNotText is returned when the response is not a text document.
	ErrNotText = errors.New("response is not text")
	// ErrTooLarge is returned when the body exceeds MaxBodyBytes.
	ErrTooLarge = errors.New("document too large")
)

// Config configures a Fetcher. Zero values take the defaults.
type Config struct {
	IndexPath    string
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Fetcher self-fetches the SPA entry document from the request origin.
type Fetcher struct {
	client       *http.Client
	indexPath    string
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
}

// NewFetcher creates a Fetcher. A nil client gets a pooled client from the
// shared http package.
func NewFetcher(cfg Config, client *http.Client) *Fetcher {
	if cfg.IndexPath == "" {
		cfg.IndexPath = DefaultIndexPath
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "og-prerender"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if client == nil {
		client = infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: cfg.Timeout})
	}

	return &Fetcher{
		client:       client,
		indexPath:    cfg.IndexPath,
		userAgent:    cfg.UserAgent,
		timeout:      cfg.Timeout,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch GETs {origin}{indexPath} and returns the body. Any failure is returned
// as an error.
func (f *Fetcher) Fetch(ctx context.Context, origin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url := strings.TrimSuffix(origin, "/") + f.indexPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build document request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("fetch %s: %w: %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}
	if !isText(resp.Header.Get("Content-Type")) {
		return "", fmt.Errorf("fetch %s: %w: %q", url, ErrNotText, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return "", fmt.Errorf("fetch %s: %w", url, ErrTooLarge)
	}

	return string(body), nil
}

func isText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}
