package model

import (
	"fmt"
	"time"
)

// DateLayout is the partition key format used for queues and episodes.
const DateLayout = "2006-01-02"

// Episode is one published entry of the episode index, keyed by Date.
type Episode struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ShowNotes   string `json:"show_notes"`
	AudioURL    string `json:"audio_url"`
	AudioSize   int64  `json:"audio_size"`
	Date        string `json:"date"`
	Duration    string `json:"duration,omitempty"`
	GUID        string `json:"guid,omitempty"`
}

// Day parses the episode date as midnight UTC.
func (e Episode) Day() (time.Time, error) {
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("episode date %q: %w", e.Date, err)
	}
	return t, nil
}

// FormatDuration renders d as HH:MM:SS for itunes:duration. Zero renders "0".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
