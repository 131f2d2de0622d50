package main

import (
	"context"
	"io"

	"morsel/internal/digest"
	"morsel/internal/extract"
	"morsel/internal/llm"
	"morsel/internal/mailbox"
	"morsel/internal/notify"
	"morsel/internal/objectstore"
	"morsel/internal/publisher"
	"morsel/internal/queue"
	"morsel/internal/retry"
	"morsel/internal/scraper"
	"morsel/internal/tts"

	"go.uber.org/zap"
)

// closers collects resources opened while wiring a command.
type closers []io.Closer

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			logger.Warn("Close failed", zap.Error(err))
		}
	}
}

func retryPolicy() retry.Policy {
	return retry.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}
}

func newNotifier() notify.Notifier {
	return notify.New(cfg.Notify.NtfyTopic, cfg.Notify.Timeout)
}

func newQueue() (*queue.FileQueue, error) {
	var content queue.ContentStore
	if cfg.Queue.ContentStore == "badger" {
		bc, err := queue.NewBadgerContent(cfg.Queue.BadgerDir)
		if err != nil {
			return nil, err
		}
		content = bc
	}
	return queue.NewFileQueue(cfg.DataDir, content, logger), nil
}

func newMailbox() *mailbox.AgentMail {
	return mailbox.NewAgentMail(cfg.Mailbox.BaseURL, cfg.Mailbox.APIKey, cfg.Mailbox.Inbox, retryPolicy())
}

func newExtractor() *extract.Extractor {
	return extract.New(cfg.Extract.Ignore, cfg.Extract.SkipExtensions)
}

// newScraper builds the configured backend, fronted by the Redis cache when one
// is configured and reachable.
func newScraper(ctx context.Context, cl *closers) scraper.Scraper {
	var s scraper.Scraper
	switch cfg.Scraper.Backend {
	case "readability":
		s = scraper.NewReadabilityScraper(cfg.Scraper.Timeout, retryPolicy(), logger)
	default:
		s = scraper.NewReaderScraper(scraper.ReaderOptions{
			BaseURL:   cfg.Scraper.ReaderURL,
			APIKey:    cfg.Scraper.ReaderKey,
			NoCache:   cfg.Scraper.NoCache,
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.Scraper.Timeout,
			Policy:    retryPolicy(),
		}, logger)
	}

	if cfg.Scraper.RedisAddr == "" {
		return s
	}
	cached, err := scraper.NewCachedScraper(ctx, s, cfg.Scraper.RedisAddr, cfg.Scraper.CacheTTL, logger)
	if err != nil {
		logger.Warn("Scrape cache disabled", zap.String("addr", cfg.Scraper.RedisAddr), zap.Error(err))
		return s
	}
	*cl = append(*cl, cached)
	return cached
}

func newObjectStore() (objectstore.Store, error) {
	if !cfg.RemoteStorage() {
		return objectstore.NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicURL), nil
	}
	return objectstore.NewS3(objectstore.S3Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Region:          cfg.Storage.Region,
		UseSSL:          cfg.Storage.UseSSL,
		PublicURL:       cfg.Storage.PublicURL,
	})
}

func newComposer(q queue.Store) *digest.Composer {
	client := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.Timeout,
	}, retryPolicy(), logger)
	return digest.NewComposer(q, client, digest.Options{
		DataDir:         cfg.DataDir,
		ShowTitle:       cfg.Podcast.Title,
		Model:           cfg.LLM.Model,
		MaxTokens:       cfg.LLM.MaxTokens,
		MaxArticleChars: cfg.Digest.MaxArticleChars,
	}, logger)
}

// newPublisher wires the publisher. Commands that never synthesize pass withTTS=false.
func newPublisher(withTTS bool) (*publisher.Publisher, error) {
	store, err := newObjectStore()
	if err != nil {
		return nil, err
	}
	var synth tts.Synthesizer
	if withTTS {
		synth = tts.NewSpeechClient(tts.Config{
			BaseURL:       cfg.TTS.BaseURL,
			APIKey:        cfg.TTS.APIKey,
			Model:         cfg.TTS.Model,
			MaxChunkChars: cfg.TTS.MaxChunkChars,
			Timeout:       cfg.TTS.Timeout,
		}, retryPolicy(), logger)
	}
	return publisher.New(synth, store, newNotifier(), publisher.Options{
		DataDir:           cfg.DataDir,
		Voice:             cfg.TTS.Voice,
		BitrateKbps:       cfg.TTS.BitrateKbps,
		FeedCacheControl:  cfg.Storage.FeedCacheControl,
		FeedRetentionDays: cfg.Storage.FeedRetentionDays,
		RetentionDays:     cfg.Storage.RetentionDays,
		Feed: publisher.FeedInfo{
			Title:       cfg.Podcast.Title,
			Description: cfg.Podcast.Description,
			Author:      cfg.Podcast.Author,
			Language:    cfg.Podcast.Language,
			ImageURL:    cfg.Podcast.ImageURL,
			SiteURL:     cfg.Storage.PublicURL,
		},
	}, logger), nil
}
