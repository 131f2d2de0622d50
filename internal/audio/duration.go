// Package audio measures synthesized episodes.
package audio

import (
	"bytes"
	"time"

	"github.com/tcolgate/mp3"
)

// Duration sums MP3 frame durations. When no frame decodes it falls back to
// size over the nominal bitrate, and to zero when that is unknown too.
func Duration(data []byte, fallbackKbps int) time.Duration {
	if d := frameDuration(data); d > 0 {
		return d
	}
	if fallbackKbps <= 0 || len(data) == 0 {
		return 0
	}
	bits := int64(len(data)) * 8
	return time.Duration(bits * int64(time.Second) / int64(fallbackKbps*1000))
}

func frameDuration(data []byte) time.Duration {
	dec := mp3.NewDecoder(bytes.NewReader(data))
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		// EOF or garbage mid-stream: trust what decoded so far
		if err := dec.Decode(&frame, &skipped); err != nil {
			return total
		}
		total += frame.Duration()
	}
}
