package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"morsel/internal/model"
	"morsel/internal/retry"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReaderScraper_ParsesTitle(t *testing.T) {
	var gotPath, gotAccept, gotNoCache string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotNoCache = r.Header.Get("X-No-Cache")
		w.Write([]byte("Title: The Story \n\nURL Source: https://example.com/a\n\nMarkdown Content:\nHello"))
	}))
	defer srv.Close()

	s := NewReaderScraper(ReaderOptions{BaseURL: srv.URL + "/", NoCache: true}, zap.NewNop())
	art, err := s.Scrape(context.Background(), "https://example.com/a")
	require.NoError(t, err)

	assert.Equal(t, "/https://example.com/a", gotPath)
	assert.Equal(t, "text/markdown", gotAccept)
	assert.Equal(t, "true", gotNoCache)
	assert.Equal(t, "The Story", art.Title)
	assert.Equal(t, "https://example.com/a", art.URL)
	assert.Contains(t, art.Content, "Hello")
}

func TestReaderScraper_TitleFallsBackToURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no title here\nTitle: not on the first line"))
	}))
	defer srv.Close()

	s := NewReaderScraper(ReaderOptions{BaseURL: srv.URL + "/"}, zap.NewNop())
	art, err := s.Scrape(context.Background(), "https://example.com/b")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b", art.Title)
}

func TestReaderScraper_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("Title: Finally"))
	}))
	defer srv.Close()

	s := NewReaderScraper(ReaderOptions{
		BaseURL: srv.URL + "/",
		Policy:  retry.Policy{Attempts: 3, Sleep: retry.NoSleep},
	}, zap.NewNop())
	art, err := s.Scrape(context.Background(), "https://example.com/c")
	require.NoError(t, err)
	assert.Equal(t, "Finally", art.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReaderScraper_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewReaderScraper(ReaderOptions{
		BaseURL: srv.URL + "/",
		Policy:  retry.Policy{Attempts: 3, Sleep: retry.NoSleep},
	}, zap.NewNop())
	_, err := s.Scrape(context.Background(), "https://example.com/d")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

const articleHTML = `<html><head><title>Mocked Title</title></head><body>
<article><h2>Intro</h2>
<p>First <b>para</b> of a story long enough for readability to keep it as the main content of the page.</p>
<p>Second paragraph, also long enough to count as real article text rather than page chrome.</p>
</article></body></html>`

func TestReadabilityScraper_ConvertsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	s := NewReadabilityScraper(time.Second, retry.Policy{Attempts: 1}, zap.NewNop())
	art, err := s.Scrape(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Equal(t, "Mocked Title", art.Title)
	assert.Contains(t, art.Content, "First para of a story")
	assert.Contains(t, art.Content, "\n\nSecond paragraph")
}

func TestReadabilityScraper_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	s := NewReadabilityScraper(time.Second, retry.Policy{Attempts: 3, Sleep: retry.NoSleep}, zap.NewNop())
	art, err := s.Scrape(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Mocked Title", art.Title)
}

func TestReadabilityScraper_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := NewReadabilityScraper(time.Second, retry.Policy{Attempts: 3, Sleep: retry.NoSleep}, zap.NewNop())
	_, err := s.Scrape(context.Background(), srv.URL+"/gone")
	require.Error(t, err)

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

type countingScraper struct {
	calls int
	fail  bool
}

func (c *countingScraper) Scrape(_ context.Context, url string) (*model.ScrapedArticle, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("simulated 404 error")
	}
	return model.NewScrapedArticle(url, "Cached Title", "content"), nil
}

func TestCachedScraper_HitsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	inner := &countingScraper{}
	c, err := NewCachedScraper(context.Background(), inner, mr.Addr(), time.Hour, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	first, err := c.Scrape(ctx, "https://example.com/a")
	require.NoError(t, err)
	second, err := c.Scrape(ctx, "https://example.com/a")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(cacheKey("https://example.com/a")))
	assert.Equal(t, time.Hour, mr.TTL(cacheKey("https://example.com/a")))
}

func TestCachedScraper_FailuresNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	inner := &countingScraper{fail: true}
	c, err := NewCachedScraper(context.Background(), inner, mr.Addr(), time.Hour, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Scrape(context.Background(), "https://example.com/x")
	require.Error(t, err)
	_, err = c.Scrape(context.Background(), "https://example.com/x")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, mr.Keys())
}

func TestCachedScraper_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewCachedScraper(context.Background(), &countingScraper{}, addr, time.Hour, zap.NewNop())
	assert.Error(t, err)
}
