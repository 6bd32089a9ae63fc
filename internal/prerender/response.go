package prerender

import (
	"net/http"
)

// Default response header values.
const (
	ContentTypeHTML     = "text/html; charset=utf-8"
	DefaultCacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"
	DefaultRobotsTag    = "index, follow"
)

// Response is a prerendered page ready to be written.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// Assembler builds responses with fixed caching headers.
type Assembler struct {
	CacheControl string
	RobotsTag    string
}

// DefaultAssembler uses the default header values.
var DefaultAssembler = Assembler{
	CacheControl: DefaultCacheControl,
	RobotsTag:    DefaultRobotsTag,
}

// Assemble wraps html in a 200 response.
func (a Assembler) Assemble(html string) *Response {
	h := make(http.Header, 3)
	h.Set("Content-Type", ContentTypeHTML)
	if a.CacheControl != "" {
		h.Set("Cache-Control", a.CacheControl)
	}
	if a.RobotsTag != "" {
		h.Set("X-Robots-Tag", a.RobotsTag)
	}

	return &Response{
		StatusCode: http.StatusOK,
		Header:     h,
		Body:       html,
	}
}

// Write copies the response to w.
func (r *Response) Write(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.Header {
		dst[k] = append([]string(nil), v...)
	}
	w.WriteHeader(r.StatusCode)
	_, err := w.Write([]byte(r.Body))
	return err
}
