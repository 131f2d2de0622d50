package model

import (
	"time"
)

// Article is one queued entry in a day's articles index.
// The body lives in a separate blob referenced by File.
type Article struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	File     string    `json:"file"`
	QueuedAt time.Time `json:"queued_at"`
}

// ScrapedArticle is what a scraper hands back for a single URL.
type ScrapedArticle struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// NewScrapedArticle fills in the URL as a title fallback.
func NewScrapedArticle(rawURL, title, content string) *ScrapedArticle {
	if title == "" {
		title = rawURL
	}
	return &ScrapedArticle{
		Title:   title,
		URL:     rawURL,
		Content: content,
	}
}

// Digest is the narration script and show notes generated for one day.
type Digest struct {
	Day          string
	Script       string
	ShowNotes    string
	ArticleCount int
}
