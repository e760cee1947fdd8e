package sparql

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/dyluth/encoding-music/internal/fetch"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// EncodedURL returns endpoint?query=<query> with the query percent-encoded
// the way the data lab links expect: letters, digits, "_.-~" and "/" are
// kept and everything else, including spaces, is %XX-escaped.
func EncodedURL(endpoint, query string) string {
	return endpoint + "?query=" + quote(query)
}

func quote(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func keep(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("_.-~/", c) >= 0
}

// Link returns an anchor opening url in a new tab.
func Link(url string) template.HTML {
	return template.HTML(`<a href="` + html.EscapeString(url) + `" target="_blank">Encoded Query</a>`)
}

// Fetcher loads the query guide.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// DocsError reports a guide that could not be loaded.
type DocsError struct {
	URL        string
	StatusCode int
}

func (e *DocsError) Error() string {
	return fmt.Sprintf("Error loading content from %s. Status code: %d", e.URL, e.StatusCode)
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Docs fetches the markdown query guide at url and renders it to HTML.
// An upstream non-200 is reported as *DocsError.
func Docs(ctx context.Context, f Fetcher, url string) (template.HTML, error) {
	src, err := f.Fetch(ctx, url)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) {
			return "", &DocsError{URL: url, StatusCode: se.StatusCode}
		}
		return "", fmt.Errorf("failed to load query guide: %w", err)
	}

	var buf strings.Builder
	if err := markdown.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("failed to render query guide: %w", err)
	}
	return template.HTML(buf.String()), nil
}
