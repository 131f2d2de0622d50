package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	testIgnore = []string{
		"agentmail.to", "mailto:", "unsubscribe", "manage-preferences",
		"list-manage.com", "mailchimp.com", "fonts.googleapis.com", "fonts.gstatic.com",
	}
	testExts = []string{".png", ".jpg", ".gif", ".svg", ".css", ".js"}
)

func newTestExtractor() *Extractor {
	return New(testIgnore, testExts)
}

func TestURLs_DropsImage(t *testing.T) {
	text := "Check this out: https://example.com/a and also https://cdn.example.com/logo.png"
	assert.Equal(t, []string{"https://example.com/a"}, newTestExtractor().URLs(text))
}

func TestURLs_EmptyInput(t *testing.T) {
	urls := newTestExtractor().URLs("")
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestURLs_TrimsTrailingPunctuation(t *testing.T) {
	text := `Read (https://example.com/post). Or "https://blog.example.org/x?y=1"! Also https://a.example/b,`
	assert.Equal(t, []string{
		"https://example.com/post",
		"https://blog.example.org/x?y=1",
		"https://a.example/b",
	}, newTestExtractor().URLs(text))
}

func TestURLs_StableDedup(t *testing.T) {
	text := "https://b.example/1 https://a.example/2 https://b.example/1. https://a.example/2"
	assert.Equal(t, []string{"https://b.example/1", "https://a.example/2"}, newTestExtractor().URLs(text))
}

func TestURLs_IgnoreIsCaseInsensitive(t *testing.T) {
	text := "HTTPS://Example.com/story https://US1.List-Manage.com/track?u=1 https://x.example/Unsubscribe https://x.example/STYLE.CSS"
	assert.Equal(t, []string{"HTTPS://Example.com/story"}, newTestExtractor().URLs(text))
}

// Every result is a trimmed regex match, passes the filters, and appears once.
func TestURLs_Properties(t *testing.T) {
	inputs := []string{
		"plain text without links",
		"https://example.com/a https://example.com/a https://fonts.gstatic.com/s/x.woff2",
		"<a href=\"https://news.example/1\">x</a> https://cdn.example/app.js https://news.example/2)",
		"mailto:me@example.com https://agentmail.to/inbox https://mailchimp.com/x https://ok.example/path?q=1;",
		"https://x.example/a.png?w=1 https://x.example/b.PNG https://x.example/c.html",
	}
	ex := newTestExtractor()
	for _, in := range inputs {
		urls := ex.URLs(in)
		seen := map[string]bool{}
		for _, u := range urls {
			assert.False(t, seen[u], "duplicate %s", u)
			seen[u] = true

			found := false
			for _, m := range urlPattern.FindAllString(in, -1) {
				if strings.HasPrefix(m, u) {
					found = true
				}
			}
			assert.True(t, found, "%s is not a regex match of %q", u, in)

			lower := strings.ToLower(u)
			for _, frag := range testIgnore {
				assert.NotContains(t, lower, frag)
			}
			for _, ext := range testExts {
				assert.False(t, strings.HasSuffix(lower, ext), "%s ends in %s", u, ext)
			}
		}
	}
}

func TestHTMLText_CollectsHrefs(t *testing.T) {
	html := `<html><body><p>Links:</p>
<a href="https://example.com/story">A story</a>
<a href=" https://example.org/other ">Other</a>
<a name="anchor">no href</a></body></html>`

	urls := newTestExtractor().URLs(HTMLText(html))
	assert.Equal(t, []string{"https://example.com/story", "https://example.org/other"}, urls)
}

func TestHTMLText_Empty(t *testing.T) {
	assert.Equal(t, "", HTMLText("  "))
}

func TestURLs_StopsAtUnicodeSpace(t *testing.T) {
	// NBSP, thin space, ideographic space
	text := "Read https://example.com/a\u00a0today, and https://example.com/b\u2009now or https://example.com/c\u3000later"
	got := newTestExtractor().URLs(text)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}, got)
}

func TestURLs_NBSPFromHTMLFallback(t *testing.T) {
	text := HTMLText(`<p>Worth a look: https://example.com/story&nbsp;today</p>`)
	assert.Equal(t, []string{"https://example.com/story"}, newTestExtractor().URLs(text))
}
