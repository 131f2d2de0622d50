package queue

import (
	"context"
	"errors"

	"morsel/internal/model"
)

var (
	ErrNotFound = errors.New("article content not found")
)

// Store is the per-day article queue.
type Store interface {
	Enqueue(ctx context.Context, day string, article *model.ScrapedArticle) (Result, error)
	Load(ctx context.Context, day string) ([]model.Article, error)
	Content(ctx context.Context, article model.Article) (string, error)
	Days(ctx context.Context) ([]string, error)
}

// Result reports what Enqueue did. Duplicate means the URL was already queued
// for that day and nothing was written.
type Result struct {
	Article   model.Article
	Duplicate bool
}

// ContentStore holds article bodies; the index keeps only the returned reference.
type ContentStore interface {
	Put(ctx context.Context, day, name, body string) (string, error)
	Get(ctx context.Context, ref string) (string, error)
	Close() error
}
