package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"morsel/internal/fileutil"
	"morsel/internal/model"

	"go.uber.org/zap"
)

const indexName = "articles.json"

var _ Store = (*FileQueue)(nil)

// FileQueue keeps one directory per day under <dataDir>/queue holding an
// articles.json index. Bodies go to the configured ContentStore.
type FileQueue struct {
	root    string
	content ContentStore
	lock    string
	logger  *zap.Logger
	now     func() time.Time
}

// NewFileQueue wires the queue to a content store. A nil store writes bodies
// next to the index.
func NewFileQueue(dataDir string, content ContentStore, logger *zap.Logger) *FileQueue {
	root := filepath.Join(dataDir, "queue")
	if content == nil {
		content = NewFSContent(root)
	}
	return &FileQueue{
		root:    root,
		content: content,
		lock:    filepath.Join(dataDir, ".queue.lock"),
		logger:  logger,
		now:     time.Now,
	}
}

// Close releases the content store.
func (q *FileQueue) Close() error {
	return q.content.Close()
}

// Enqueue appends a scraped article to the day's index unless its URL is already there.
func (q *FileQueue) Enqueue(ctx context.Context, day string, scraped *model.ScrapedArticle) (Result, error) {
	unlock, err := fileutil.Lock(ctx, q.lock)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	articles, err := q.Load(ctx, day)
	if err != nil {
		return Result{}, err
	}

	idx := slices.IndexFunc(articles, func(a model.Article) bool { return a.URL == scraped.URL })
	if idx >= 0 {
		q.logger.Info("Skipping duplicate", zap.String("day", day), zap.String("url", scraped.URL))
		return Result{Article: articles[idx], Duplicate: true}, nil
	}

	name := fmt.Sprintf("%02d-%s.md", len(articles), Slug(scraped.URL))
	ref, err := q.content.Put(ctx, day, name, renderBody(scraped))
	if err != nil {
		return Result{}, fmt.Errorf("store article body: %w", err)
	}

	article := model.Article{
		Title:    scraped.Title,
		URL:      scraped.URL,
		File:     ref,
		QueuedAt: q.now(),
	}
	articles = append(articles, article)
	if err := fileutil.WriteJSON(q.indexPath(day), articles); err != nil {
		return Result{}, fmt.Errorf("write queue index: %w", err)
	}

	q.logger.Info("Queued", zap.String("day", day), zap.String("title", truncate(article.Title, 60)))
	return Result{Article: article}, nil
}

// Load returns the day's articles in insertion order; nil when no queue exists.
func (q *FileQueue) Load(_ context.Context, day string) ([]model.Article, error) {
	var articles []model.Article
	if _, err := fileutil.ReadJSON(q.indexPath(day), &articles); err != nil {
		return nil, fmt.Errorf("read queue %s: %w", day, err)
	}
	return articles, nil
}

// Content loads the stored body for an article.
func (q *FileQueue) Content(ctx context.Context, article model.Article) (string, error) {
	return q.content.Get(ctx, article.File)
}

// Days lists the queue partitions, newest first.
func (q *FileQueue) Days(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(q.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var days []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(model.DateLayout, e.Name()); err == nil {
			days = append(days, e.Name())
		}
	}
	slices.Sort(days)
	slices.Reverse(days)
	return days, nil
}

func (q *FileQueue) indexPath(day string) string {
	return filepath.Join(q.root, day, indexName)
}

func renderBody(a *model.ScrapedArticle) string {
	return fmt.Sprintf("# %s\n\nSource: %s\n\n---\n\n%s", a.Title, a.URL, a.Content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
