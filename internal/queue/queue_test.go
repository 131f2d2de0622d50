package queue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"morsel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const day = "2026-02-18"

func newTestQueue(t *testing.T) (*FileQueue, string) {
	t.Helper()
	dir := t.TempDir()
	q := NewFileQueue(dir, nil, zap.NewNop())
	q.now = func() time.Time { return time.Date(2026, 2, 18, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { q.Close() })
	return q, dir
}

func TestFileQueue_Enqueue_WritesBodyAndIndex(t *testing.T) {
	q, dir := newTestQueue(t)
	ctx := context.Background()

	res, err := q.Enqueue(ctx, day, model.NewScrapedArticle("https://Example.com/Posts/Hello-World", "Hello", "body text"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	wantPath := filepath.Join(dir, "queue", day, "00-example-com-posts-hello-world.md")
	assert.Equal(t, wantPath, res.Article.File)

	body, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n\nSource: https://Example.com/Posts/Hello-World\n\n---\n\nbody text", string(body))

	articles, err := q.Load(ctx, day)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Hello", articles[0].Title)
	assert.Equal(t, time.Date(2026, 2, 18, 9, 30, 0, 0, time.UTC), articles[0].QueuedAt.UTC())
}

func TestFileQueue_Enqueue_DuplicateIsSkipped(t *testing.T) {
	q, dir := newTestQueue(t)
	ctx := context.Background()
	article := model.NewScrapedArticle("https://example.com/a", "A", "first")

	_, err := q.Enqueue(ctx, day, article)
	require.NoError(t, err)

	again := model.NewScrapedArticle("https://example.com/a", "A (again)", "second")
	res, err := q.Enqueue(ctx, day, again)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, "A", res.Article.Title)

	articles, err := q.Load(ctx, day)
	require.NoError(t, err)
	assert.Len(t, articles, 1)

	files, err := filepath.Glob(filepath.Join(dir, "queue", day, "*.md"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileQueue_Enqueue_PreservesOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	urls := []string{"https://c.example/3", "https://a.example/1", "https://b.example/2"}
	for _, u := range urls {
		_, err := q.Enqueue(ctx, day, model.NewScrapedArticle(u, "", "x"))
		require.NoError(t, err)
	}

	articles, err := q.Load(ctx, day)
	require.NoError(t, err)
	require.Len(t, articles, 3)
	for i, a := range articles {
		assert.Equal(t, urls[i], a.URL)
		assert.True(t, strings.HasPrefix(filepath.Base(a.File), []string{"00-", "01-", "02-"}[i]))
	}
}

func TestFileQueue_SameURLDifferentDays(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	a := model.NewScrapedArticle("https://example.com/a", "A", "x")

	_, err := q.Enqueue(ctx, "2026-02-18", a)
	require.NoError(t, err)
	res, err := q.Enqueue(ctx, "2026-02-19", a)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	days, err := q.Days(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-19", "2026-02-18"}, days)
}

func TestFileQueue_Load_Absent(t *testing.T) {
	q, _ := newTestQueue(t)
	articles, err := q.Load(context.Background(), "1999-01-01")
	require.NoError(t, err)
	assert.Nil(t, articles)

	days, err := q.Days(context.Background())
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestFileQueue_BadgerContent(t *testing.T) {
	content, err := NewBadgerContent("")
	require.NoError(t, err)

	dir := t.TempDir()
	q := NewFileQueue(dir, content, zap.NewNop())
	defer q.Close()
	ctx := context.Background()

	res, err := q.Enqueue(ctx, day, model.NewScrapedArticle("https://example.com/b", "B", "heavy body"))
	require.NoError(t, err)
	assert.Equal(t, "badger:queue/2026-02-18/00-example-com-b.md", res.Article.File)

	body, err := q.Content(ctx, res.Article)
	require.NoError(t, err)
	assert.Contains(t, body, "heavy body")

	// only the index lands on disk
	files, _ := filepath.Glob(filepath.Join(dir, "queue", day, "*.md"))
	assert.Empty(t, files)

	_, err = q.Content(ctx, model.Article{File: "badger:queue/none"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "example-com-a-b-c", Slug("https://example.com/a?b=c"))
	assert.Equal(t, "article", Slug("https://"))
	long := Slug("https://example.com/" + strings.Repeat("abc/", 40))
	assert.LessOrEqual(t, len(long), maxSlugLen)
	assert.False(t, strings.HasSuffix(long, "-"))
}
