// Package scraper turns a URL into a title and readable body text.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"morsel/internal/model"
	"morsel/internal/retry"

	"go.uber.org/zap"
)

// Scraper defines the interface for downloading articles.
// The poller only sees this, so tests swap in a fake.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.ScrapedArticle, error)
}

var titleLine = regexp.MustCompile(`^Title:\s*(.+)`)

// ReaderScraper fetches markdown through a reader proxy (r.jina.ai style):
// GET <base><url> returns the page as markdown with a leading "Title:" line.
type ReaderScraper struct {
	base       string
	apiKey     string
	noCache    bool
	userAgent  string
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

// ReaderOptions configures a ReaderScraper.
type ReaderOptions struct {
	BaseURL   string
	APIKey    string
	NoCache   bool
	UserAgent string
	Timeout   time.Duration
	Policy    retry.Policy
}

func NewReaderScraper(opts ReaderOptions, logger *zap.Logger) *ReaderScraper {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s := &ReaderScraper{
		base:       opts.BaseURL,
		apiKey:     opts.APIKey,
		noCache:    opts.NoCache,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		policy:     opts.Policy,
		logger:     logger,
	}
	if s.policy.OnRetry == nil {
		s.policy.OnRetry = retryLogger(logger)
	}
	return s
}

func (s *ReaderScraper) Scrape(ctx context.Context, url string) (*model.ScrapedArticle, error) {
	var text string
	err := s.policy.Do(ctx, "scrape "+url, func(ctx context.Context) error {
		body, err := s.fetch(ctx, url)
		if err != nil {
			return err
		}
		text = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	title := ""
	if m := titleLine.FindStringSubmatch(text); m != nil {
		title = strings.TrimSpace(m[1])
	}
	return model.NewScrapedArticle(url, title, text), nil
}

func (s *ReaderScraper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/markdown")
	if s.noCache {
		req.Header.Set("X-No-Cache", "true")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", retry.NewHTTPError("reader", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

func retryLogger(logger *zap.Logger) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		logger.Warn("Attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
}
