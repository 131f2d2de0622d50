package queue

import (
	"regexp"
	"strings"
)

const maxSlugLen = 80

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a URL into a filesystem-safe name: scheme dropped, lowercased,
// non-alphanumeric runs collapsed to "-", capped at 80 bytes.
func Slug(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[i+2:]
	}
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "article"
	}
	return s
}
