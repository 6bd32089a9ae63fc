// Package useragent classifies requests from link-preview crawlers.
package useragent

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// DefaultPatterns are the link-preview crawlers that get prerendered pages.
var DefaultPatterns = []string{
	"facebookexternalhit",
	"Facebot",
	"Twitterbot",
	"LinkedInBot",
	"WhatsApp",
	"TelegramBot",
	"Slackbot",
	"Discordbot",
	"SkypeUriPreview",
	"pinterest",
	"redditbot",
}

// Registry is an immutable set of case-insensitive User-Agent substrings.
// It is safe for concurrent use.
type Registry struct {
	patterns []string
	matcher  *ahocorasick.Matcher
}

// NewRegistry compiles patterns into a single automaton. Blank patterns are
// ignored.
func NewRegistry(patterns []string) *Registry {
	r := &Registry{patterns: make([]string, 0, len(patterns))}

	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		r.patterns = append(r.patterns, p)
		lowered = append(lowered, asciiLower(p))
	}

	if len(lowered) > 0 {
		r.matcher = ahocorasick.NewStringMatcher(lowered)
	}
	return r
}

// DefaultRegistry returns a registry over DefaultPatterns.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultPatterns)
}

// IsCrawler reports whether userAgent contains any registered pattern,
// ignoring ASCII case. An empty User-Agent is never a crawler.
func (r *Registry) IsCrawler(userAgent string) bool {
	if userAgent == "" || r.matcher == nil {
		return false
	}
	return len(r.matcher.MatchThreadSafe([]byte(asciiLower(userAgent)))) > 0
}

// Patterns returns a copy of the registered patterns.
func (r *Registry) Patterns() []string {
	out := make([]string, len(r.patterns))
	copy(out, r.patterns)
	return out
}

func asciiLower(s string) string {
	hasUpper := false
	for i := range len(s) {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}

	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
