package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"morsel/internal/model"
	"morsel/internal/retry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// ReadabilityScraper downloads the page itself and runs Mozilla's readability
// algorithm locally. No third-party reader service is involved.
type ReadabilityScraper struct {
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

func NewReadabilityScraper(timeout time.Duration, policy retry.Policy, logger *zap.Logger) *ReadabilityScraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if policy.OnRetry == nil {
		policy.OnRetry = retryLogger(logger)
	}
	return &ReadabilityScraper{
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
		logger:     logger,
	}
}

func (s *ReadabilityScraper) Scrape(ctx context.Context, rawURL string) (*model.ScrapedArticle, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", rawURL, err)
	}

	var art readability.Article
	err = s.policy.Do(ctx, "scrape "+rawURL, func(ctx context.Context) error {
		parsed, err := s.fetch(ctx, pageURL)
		if err != nil {
			return err
		}
		art = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model.NewScrapedArticle(rawURL, strings.TrimSpace(art.Title), htmlToText(art.Content)), nil
}

// fetch downloads the page so HTTP failures surface as *retry.HTTPError,
// then hands the body to readability.
func (s *ReadabilityScraper) fetch(ctx context.Context, pageURL *url.URL) (readability.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return readability.Article{}, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return readability.Article{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return readability.Article{}, retry.NewHTTPError("readability", resp)
	}
	art, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("parse page: %w", err)
	}
	return art, nil
}

// htmlToText keeps paragraph breaks so the script writer sees structure.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	var parts []string
	doc.Find("h1, h2, h3, h4, p, li, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(parts, "\n\n")
}
