// Package digest turns one day's queue into a narration script and show notes.
package digest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"morsel/internal/fileutil"
	"morsel/internal/llm"
	"morsel/internal/model"
	"morsel/internal/queue"

	"go.uber.org/zap"
)

// Options are the composer settings taken from config.
type Options struct {
	DataDir         string
	ShowTitle       string
	Model           string
	MaxTokens       int
	MaxArticleChars int
}

// Composer builds the daily digest.
type Composer struct {
	queue  queue.Store
	llm    llm.Completer
	opts   Options
	logger *zap.Logger
}

func NewComposer(q queue.Store, completer llm.Completer, opts Options, logger *zap.Logger) *Composer {
	return &Composer{queue: q, llm: completer, opts: opts, logger: logger}
}

// Compose returns nil, nil when the day has no queue or an empty one.
// A failed LLM call is returned as an error and nothing is written.
func (c *Composer) Compose(ctx context.Context, day string) (*model.Digest, error) {
	logger := c.logger.With(zap.String("day", day))

	articles, err := c.queue.Load(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		logger.Info("No articles queued, skipping")
		return nil, nil
	}

	logger.Info("Generating digest", zap.Int("articles", len(articles)))

	sources := make([]Source, 0, len(articles))
	for _, a := range articles {
		body, err := c.queue.Content(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("load article %s: %w", a.URL, err)
		}
		sources = append(sources, Source{Title: a.Title, URL: a.URL, Content: body})
	}

	prompt := BuildPrompt(c.opts.ShowTitle, day, sources, c.opts.MaxArticleChars)
	script, err := c.llm.Complete(ctx, prompt, c.opts.Model, c.opts.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}
	script = strings.TrimSpace(script)
	logger.Info("Script generated", zap.Int("words", len(strings.Fields(script))))

	d := &model.Digest{
		Day:          day,
		Script:       script,
		ShowNotes:    ShowNotes(c.opts.ShowTitle, day, articles),
		ArticleCount: len(articles),
	}
	if err := c.save(d); err != nil {
		return nil, err
	}
	return d, nil
}

// ScriptPath is where the script for day is written.
func (c *Composer) ScriptPath(day string) string {
	return filepath.Join(c.opts.DataDir, "digest", "digest-"+day+".txt")
}

// NotesPath is where the show notes for day are written.
func (c *Composer) NotesPath(day string) string {
	return filepath.Join(c.opts.DataDir, "digest", "show-notes-"+day+".txt")
}

func (c *Composer) save(d *model.Digest) error {
	if err := fileutil.WriteFileAtomic(c.ScriptPath(d.Day), []byte(d.Script), 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	if err := fileutil.WriteFileAtomic(c.NotesPath(d.Day), []byte(d.ShowNotes), 0o644); err != nil {
		return fmt.Errorf("write show notes: %w", err)
	}
	return nil
}

// ShowNotes lists the queued articles, numbered from 1 in queue order. It is built
// from the queue, not the script, so it stays accurate whatever the model wrote.
func ShowNotes(show, day string, articles []model.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n\n", show, day)
	b.WriteString("Articles covered in this episode:\n\n")
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s\n   %s\n\n", i+1, a.Title, a.URL)
	}
	return b.String()
}
