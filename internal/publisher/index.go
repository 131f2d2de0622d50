package publisher

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"morsel/internal/fileutil"
	"morsel/internal/model"
)

// Index is the persisted episode index at <dataDir>/episodes.json.
type Index struct {
	path string
	lock string
}

func NewIndex(dataDir string) *Index {
	return &Index{
		path: filepath.Join(dataDir, "episodes.json"),
		lock: filepath.Join(dataDir, ".episodes.lock"),
	}
}

// Load returns the stored episodes; an absent index is empty.
func (i *Index) Load() ([]model.Episode, error) {
	var episodes []model.Episode
	if _, err := fileutil.ReadJSON(i.path, &episodes); err != nil {
		return nil, fmt.Errorf("read episode index: %w", err)
	}
	return episodes, nil
}

// Save rewrites the whole index.
func (i *Index) Save(episodes []model.Episode) error {
	if episodes == nil {
		episodes = []model.Episode{}
	}
	if err := fileutil.WriteJSON(i.path, episodes); err != nil {
		return fmt.Errorf("write episode index: %w", err)
	}
	return nil
}

// Lock serializes read-modify-write cycles on the index file.
func (i *Index) Lock(ctx context.Context) (func(), error) {
	return fileutil.Lock(ctx, i.lock)
}

// Upsert drops any episode with the same date and appends ep.
// The input slice is not modified.
func Upsert(episodes []model.Episode, ep model.Episode) []model.Episode {
	out := make([]model.Episode, 0, len(episodes)+1)
	for _, e := range episodes {
		if e.Date != ep.Date {
			out = append(out, e)
		}
	}
	return append(out, ep)
}

// Retain keeps episodes dated within the last days days of now. days <= 0 keeps all.
func Retain(episodes []model.Episode, days int, now time.Time) []model.Episode {
	if days <= 0 {
		return slices.Clone(episodes)
	}
	cutoff := now.UTC().AddDate(0, 0, -days).Format(model.DateLayout)
	var out []model.Episode
	for _, e := range episodes {
		if e.Date >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

// NewestFirst returns a copy sorted by date, newest first.
func NewestFirst(episodes []model.Episode) []model.Episode {
	out := slices.Clone(episodes)
	slices.SortStableFunc(out, func(a, b model.Episode) int {
		return strings.Compare(b.Date, a.Date)
	})
	return out
}
