// Package publisher turns a digest into a published podcast episode.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"morsel/internal/audio"
	"morsel/internal/fileutil"
	"morsel/internal/model"
	"morsel/internal/notify"
	"morsel/internal/objectstore"
	"morsel/internal/tts"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	audioPrefix = "audio/"
	feedKey     = "feed.xml"
)

// Options are the publisher settings taken from config.
type Options struct {
	DataDir           string
	Voice             string
	BitrateKbps       int
	FeedCacheControl  string
	FeedRetentionDays int
	RetentionDays     int
	Feed              FeedInfo
}

// Publisher synthesizes, uploads and indexes episodes.
type Publisher struct {
	tts      tts.Synthesizer
	store    objectstore.Store
	index    *Index
	notifier notify.Notifier
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func New(synth tts.Synthesizer, store objectstore.Store, notifier notify.Notifier, opts Options, logger *zap.Logger) *Publisher {
	if notifier == nil {
		notifier = notify.New("", 0)
	}
	if opts.Feed.FeedURL == "" {
		opts.Feed.FeedURL = store.PublicURL(feedKey)
	}
	return &Publisher{
		tts:      synth,
		store:    store,
		index:    NewIndex(opts.DataDir),
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// AudioKey is the object key of a day's episode audio.
func AudioKey(day string) string {
	return audioPrefix + "digest-" + day + ".mp3"
}

// AudioPath is where the synthesized audio for day is kept locally.
func (p *Publisher) AudioPath(day string) string {
	return filepath.Join(p.opts.DataDir, "audio", "digest-"+day+".mp3")
}

// Episodes returns the current episode index.
func (p *Publisher) Episodes() ([]model.Episode, error) {
	return p.index.Load()
}

// Publish synthesizes the script, uploads the audio, upserts the episode for the
// digest's day and republishes the feed. The index is written last, so any
// failure before that leaves it as it was.
func (p *Publisher) Publish(ctx context.Context, d *model.Digest) (*model.Episode, error) {
	if d == nil {
		return nil, errors.New("publish: no digest")
	}
	logger := p.logger.With(zap.String("day", d.Day))

	logger.Info("Generating audio", zap.String("voice", p.opts.Voice))
	data, err := p.tts.Synthesize(ctx, d.Script, p.opts.Voice)
	if err != nil {
		return nil, fmt.Errorf("synthesize audio: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("synthesize audio: empty output")
	}

	audioPath := p.AudioPath(d.Day)
	if err := fileutil.WriteFileAtomic(audioPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("stat audio: %w", err)
	}
	duration := audio.Duration(data, p.opts.BitrateKbps)
	logger.Info("Audio saved",
		zap.String("path", audioPath),
		zap.Float64("size_mb", float64(info.Size())/(1024*1024)),
		zap.Duration("duration", duration))

	audioURL, err := p.store.Put(ctx, AudioKey(d.Day), data, objectstore.PutOptions{ContentType: "audio/mpeg"})
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	logger.Info("Uploaded", zap.String("key", AudioKey(d.Day)), zap.String("url", audioURL))

	ep := model.Episode{
		Title:       p.opts.Feed.Title + " — " + d.Day,
		Description: d.ShowNotes,
		ShowNotes:   d.ShowNotes,
		AudioURL:    audioURL,
		AudioSize:   info.Size(),
		Date:        d.Day,
		Duration:    model.FormatDuration(duration),
		GUID:        EpisodeGUID(audioURL),
	}

	if err := p.updateIndex(ctx, func(episodes []model.Episode) []model.Episode {
		return Upsert(episodes, ep)
	}); err != nil {
		return nil, err
	}

	if err := p.notifier.EpisodePublished(ctx, ep.Title, ep.AudioURL); err != nil {
		logger.Warn("Notification failed", zap.Error(err))
	}
	return &ep, nil
}

// RefreshFeed re-renders and re-uploads the feed from the stored index.
func (p *Publisher) RefreshFeed(ctx context.Context) error {
	return p.updateIndex(ctx, func(episodes []model.Episode) []model.Episode {
		return episodes
	})
}

// updateIndex applies change under the index lock, publishes the resulting feed,
// and only then persists the new index.
func (p *Publisher) updateIndex(ctx context.Context, change func([]model.Episode) []model.Episode) error {
	unlock, err := p.index.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	episodes, err := p.index.Load()
	if err != nil {
		return err
	}
	episodes = change(episodes)

	now := p.now()
	feed, err := RenderFeed(p.opts.Feed, Retain(episodes, p.opts.FeedRetentionDays, now), now)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(p.opts.DataDir, feedKey), feed, 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	feedURL, err := p.store.Put(ctx, feedKey, feed, objectstore.PutOptions{
		ContentType:  "application/rss+xml",
		CacheControl: p.opts.FeedCacheControl,
	})
	if err != nil {
		return fmt.Errorf("upload feed: %w", err)
	}

	if err := p.index.Save(episodes); err != nil {
		return err
	}
	p.logger.Info("Feed published", zap.String("url", feedURL), zap.Int("episodes", len(episodes)))
	return nil
}

// Prune deletes stored audio older than RetentionDays, judged by object
// modification time. The episode index is not consulted or changed.
func (p *Publisher) Prune(ctx context.Context) ([]string, error) {
	keep := p.opts.RetentionDays
	if keep <= 0 {
		return nil, nil
	}

	objects, err := p.store.List(ctx, audioPrefix)
	if err != nil {
		return nil, fmt.Errorf("list audio: %w", err)
	}

	now := p.now()
	var (
		deleted []string
		errs    []error
	)
	for _, obj := range objects {
		age := int(now.Sub(obj.LastModified).Hours() / 24)
		if age <= keep {
			continue
		}
		if err := p.store.Delete(ctx, obj.Key); err != nil {
			p.logger.Error("Failed to delete old episode", zap.String("key", obj.Key), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		p.logger.Info("Deleted old episode", zap.String("key", obj.Key), zap.Int("age_days", age))
		deleted = append(deleted, obj.Key)
	}
	if len(deleted) > 0 {
		p.logger.Info("Cleaned up old episodes", zap.Int("count", len(deleted)))
	}
	return deleted, errors.Join(errs...)
}

// EpisodeGUID is a stable identifier derived from the audio URL, so republishing
// a day under the same key keeps the same GUID.
func EpisodeGUID(audioURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(audioURL))).String()
}
