// Package extract pulls candidate article URLs out of email bodies.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// \s is ASCII-only in RE2, so Unicode spaces such as NBSP are excluded explicitly.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s\p{Z}<>'")\]]+`)

const trailingPunct = ".,;:!?)>]}"

// Extractor filters mail furniture, tracking links and asset URLs.
type Extractor struct {
	ignore     []string
	extensions []string
}

// New lowercases the filters once so matching stays case-insensitive.
func New(ignore, skipExtensions []string) *Extractor {
	return &Extractor{
		ignore:     lowerAll(ignore),
		extensions: lowerAll(skipExtensions),
	}
}

// URLs returns the article URLs in text in first-seen order, without duplicates.
func (e *Extractor) URLs(text string) []string {
	if text == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	urls := []string{}
	for _, match := range urlPattern.FindAllString(text, -1) {
		u := strings.TrimRight(match, trailingPunct)
		if e.skip(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

func (e *Extractor) skip(u string) bool {
	lower := strings.ToLower(u)
	if strings.TrimRight(lower, "/") == "http:" || strings.TrimRight(lower, "/") == "https:" {
		return true
	}
	for _, frag := range e.ignore {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	for _, ext := range e.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// HTMLText flattens an HTML body for URL extraction: every anchor href on its own
// line, then the visible text. Unparseable input is returned as-is.
func HTMLText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	var b strings.Builder
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			b.WriteString(strings.TrimSpace(href))
			b.WriteByte('\n')
		}
	})
	b.WriteString(doc.Text())
	return b.String()
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
