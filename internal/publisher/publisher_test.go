package publisher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"morsel/internal/model"
	"morsel/internal/objectstore"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSynth struct {
	calls int
	err   error
}

func (f *fakeSynth) Synthesize(context.Context, string, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	// 16000 bytes at 128 kbps is one second
	return bytes.Repeat([]byte{0}, 16000), nil
}

type failingStore struct {
	objectstore.Store
	failKey string
}

func (s failingStore) Put(ctx context.Context, key string, data []byte, opts objectstore.PutOptions) (string, error) {
	if key == s.failKey {
		return "", errors.New("bucket unavailable")
	}
	return s.Store.Put(ctx, key, data, opts)
}

var now = time.Date(2026, 2, 21, 7, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Publisher, *fakeSynth, *objectstore.Local, string) {
	t.Helper()
	dir := t.TempDir()
	store := objectstore.NewLocal(filepath.Join(dir, "public"), "https://cdn.example/pod")
	synth := &fakeSynth{}
	p := New(synth, store, nil, Options{
		DataDir:       dir,
		Voice:         "en-US-AndrewMultilingualNeural",
		BitrateKbps:   128,
		RetentionDays: 7,
		Feed: FeedInfo{
			Title:       "Morsel",
			Description: "Daily digest",
			Author:      "Morsel",
			Language:    "en-us",
		},
	}, zap.NewNop())
	p.now = func() time.Time { return now }
	return p, synth, store, dir
}

func digestFor(day, notes string) *model.Digest {
	return &model.Digest{Day: day, Script: "Hello for " + day, ShowNotes: notes, ArticleCount: 1}
}

func TestPublish_WritesEpisode(t *testing.T) {
	p, _, store, dir := setup(t)

	ep, err := p.Publish(context.Background(), digestFor("2026-02-20", "notes"))
	require.NoError(t, err)

	assert.Equal(t, "Morsel — 2026-02-20", ep.Title)
	assert.Equal(t, "https://cdn.example/pod/audio/digest-2026-02-20.mp3", ep.AudioURL)
	assert.Equal(t, int64(16000), ep.AudioSize)
	assert.Equal(t, "00:00:01", ep.Duration)
	assert.Equal(t, EpisodeGUID(ep.AudioURL), ep.GUID)

	_, err = os.Stat(p.AudioPath("2026-02-20"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(store.Root(), "audio", "digest-2026-02-20.mp3"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(store.Root(), "feed.xml"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "feed.xml"))
	require.NoError(t, err)

	episodes, err := p.Episodes()
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, *ep, episodes[0])
}

func TestPublish_SameDateReplaces(t *testing.T) {
	p, _, _, _ := setup(t)

	_, err := p.Publish(context.Background(), digestFor("2026-02-20", "first"))
	require.NoError(t, err)
	_, err = p.Publish(context.Background(), digestFor("2026-02-20", "second"))
	require.NoError(t, err)

	episodes, err := p.Episodes()
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "second", episodes[0].ShowNotes)
}

func TestPublish_FeedOrderAndItems(t *testing.T) {
	p, _, store, _ := setup(t)

	for _, day := range []string{"2026-02-18", "2026-02-20", "2026-02-18"} {
		_, err := p.Publish(context.Background(), digestFor(day, "notes "+day))
		require.NoError(t, err)
	}

	episodes, err := p.Episodes()
	require.NoError(t, err)
	assert.Len(t, episodes, 2)

	f, err := os.Open(filepath.Join(store.Root(), "feed.xml"))
	require.NoError(t, err)
	defer f.Close()

	feed, err := gofeed.NewParser().Parse(f)
	require.NoError(t, err)
	assert.Equal(t, "Morsel", feed.Title)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Morsel — 2026-02-20", feed.Items[0].Title)
	assert.Equal(t, "Morsel — 2026-02-18", feed.Items[1].Title)
	require.Len(t, feed.Items[0].Enclosures, 1)
	assert.Equal(t, "audio/mpeg", feed.Items[0].Enclosures[0].Type)
	assert.Equal(t, "16000", feed.Items[0].Enclosures[0].Length)
	assert.NotEqual(t, feed.Items[0].GUID, feed.Items[1].GUID)
	require.NotNil(t, feed.Items[0].ITunesExt)
	assert.Equal(t, "00:00:01", feed.Items[0].ITunesExt.Duration)
}

func TestPublish_SynthesisFailureLeavesIndex(t *testing.T) {
	p, synth, _, _ := setup(t)
	_, err := p.Publish(context.Background(), digestFor("2026-02-18", "kept"))
	require.NoError(t, err)

	synth.err = errors.New("quota exceeded")
	_, err = p.Publish(context.Background(), digestFor("2026-02-20", "lost"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesize audio")

	episodes, err := p.Episodes()
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "kept", episodes[0].ShowNotes)
}

func TestPublish_FeedUploadFailureLeavesIndex(t *testing.T) {
	p, _, store, _ := setup(t)
	p.store = failingStore{Store: store, failKey: feedKey}

	_, err := p.Publish(context.Background(), digestFor("2026-02-20", "notes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload feed")

	episodes, err := p.Episodes()
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestRefreshFeed_EmptyIndex(t *testing.T) {
	p, _, store, _ := setup(t)
	require.NoError(t, p.RefreshFeed(context.Background()))

	f, err := os.Open(filepath.Join(store.Root(), "feed.xml"))
	require.NoError(t, err)
	defer f.Close()
	feed, err := gofeed.NewParser().Parse(f)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
}

func TestPrune_DeletesByAge(t *testing.T) {
	p, _, store, _ := setup(t)
	ctx := context.Background()

	ages := map[string]int{
		"audio/digest-2026-02-20.mp3": 1,
		"audio/digest-2026-02-14.mp3": 7,
		"audio/digest-2026-02-10.mp3": 8,
		"audio/digest-2026-01-01.mp3": 50,
	}
	for key, days := range ages {
		_, err := store.Put(ctx, key, []byte("mp3"), objectstore.PutOptions{})
		require.NoError(t, err)
		mod := now.Add(-time.Duration(days)*24*time.Hour - time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(store.Root(), filepath.FromSlash(key)), mod, mod))
	}
	_, err := store.Put(ctx, feedKey, []byte("<rss/>"), objectstore.PutOptions{})
	require.NoError(t, err)

	deleted, err := p.Prune(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"audio/digest-2026-02-10.mp3", "audio/digest-2026-01-01.mp3"}, deleted)

	left, err := store.List(ctx, "")
	require.NoError(t, err)
	var keys []string
	for _, o := range left {
		keys = append(keys, o.Key)
	}
	assert.ElementsMatch(t, []string{"audio/digest-2026-02-20.mp3", "audio/digest-2026-02-14.mp3", feedKey}, keys)
}

func TestRetain(t *testing.T) {
	eps := []model.Episode{{Date: "2026-02-20"}, {Date: "2026-02-01"}}
	assert.Len(t, Retain(eps, 0, now), 2)
	kept := Retain(eps, 7, now)
	require.Len(t, kept, 1)
	assert.Equal(t, "2026-02-20", kept[0].Date)
}

func TestEpisodeGUID_Stable(t *testing.T) {
	a := EpisodeGUID("https://cdn.example/pod/audio/digest-2026-02-20.mp3")
	assert.Equal(t, a, EpisodeGUID("https://cdn.example/pod/audio/digest-2026-02-20.mp3"))
	assert.NotEqual(t, a, EpisodeGUID("https://cdn.example/pod/audio/digest-2026-02-18.mp3"))
}
