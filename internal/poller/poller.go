// Package poller turns mailbox messages into queued articles.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"morsel/internal/extract"
	"morsel/internal/mailbox"
	"morsel/internal/model"
	"morsel/internal/notify"
	"morsel/internal/queue"
	"morsel/internal/scraper"

	"go.uber.org/zap"
)

type Poller struct {
	mailbox   mailbox.Mailbox
	scraper   scraper.Scraper
	queue     queue.Store
	extractor *extract.Extractor
	notifier  notify.Notifier
	limit     int
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// Options tune a Poller. Zero values fall back to defaults.
type Options struct {
	Limit    int
	Location *time.Location
	Notifier notify.Notifier
}

func New(mb mailbox.Mailbox, sc scraper.Scraper, q queue.Store, ex *extract.Extractor, opts Options, logger *zap.Logger) *Poller {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New("", 0)
	}
	return &Poller{
		mailbox:   mb,
		scraper:   sc,
		queue:     q,
		extractor: ex,
		notifier:  opts.Notifier,
		limit:     opts.Limit,
		location:  opts.Location,
		logger:    logger,
		now:       time.Now,
	}
}

// Run polls immediately and then on every tick until ctx is done.
// Errors inside a cycle are logged; they never stop the loop.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	p.logger.Info("Poller started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Poll cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			p.logger.Info("Poller shutting down")
			return
		case <-ticker.C:
		}
	}
}

// PollOnce processes one batch of messages and returns how many new articles were queued.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	messages, err := p.mailbox.List(ctx, p.limit)
	if err != nil {
		return 0, fmt.Errorf("list messages: %w", err)
	}

	day := p.now().In(p.location).Format(model.DateLayout)
	var (
		queued int
		errs   []error
	)
	for _, summary := range messages {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if summary.State().Terminal() {
			continue
		}
		n, err := p.processMessage(ctx, day, summary)
		queued += n
		if err != nil {
			p.logger.Error("Message failed", zap.String("message_id", summary.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("message %s: %w", summary.ID, err))
		}
	}

	if queued > 0 {
		p.logger.Info("Queued articles", zap.String("day", day), zap.Int("count", queued))
		if err := p.notifier.ArticlesQueued(ctx, day, queued); err != nil {
			p.logger.Warn("Notification failed", zap.Error(err))
		}
	}
	return queued, errors.Join(errs...)
}

func (p *Poller) processMessage(ctx context.Context, day string, summary model.MessageSummary) (int, error) {
	logger := p.logger.With(zap.String("message_id", summary.ID))
	logger.Info("Processing message", zap.String("subject", summary.Subject))

	msg, err := p.mailbox.Get(ctx, summary.ID)
	if err != nil {
		return 0, fmt.Errorf("get: %w", err)
	}

	urls := p.extractor.URLs(msg.Text)
	if len(urls) == 0 && msg.HTML != "" {
		urls = p.extractor.URLs(extract.HTMLText(msg.HTML))
	}
	if len(urls) == 0 {
		logger.Info("No URLs found")
	}

	var queued, scraped, failed int
	for _, u := range urls {
		article, err := p.scraper.Scrape(ctx, u)
		if err != nil {
			logger.Warn("Scraping failed", zap.String("url", u), zap.Error(err))
			failed++
			continue
		}
		res, err := p.queue.Enqueue(ctx, day, article)
		if err != nil {
			// leave the message unlabeled so the next poll retries it
			return queued, fmt.Errorf("enqueue %s: %w", u, err)
		}
		scraped++
		if res.Duplicate {
			logger.Info("Already queued", zap.String("url", u))
			continue
		}
		queued++
		logger.Info("Queued", zap.String("title", res.Article.Title), zap.String("file", res.Article.File))
	}

	state := model.Transition(scraped, failed, len(urls))
	if state == model.StateUnlabeled {
		return queued, nil
	}
	if err := p.mailbox.AddLabels(ctx, summary.ID, state.Label()); err != nil {
		return queued, fmt.Errorf("label %s: %w", state.Label(), err)
	}
	logger.Info("Message labeled", zap.String("label", state.Label()),
		zap.Int("scraped", scraped), zap.Int("failed", failed))
	return queued, nil
}
