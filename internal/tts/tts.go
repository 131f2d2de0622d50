// Package tts turns a narration script into MP3 audio.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"morsel/internal/retry"

	"go.uber.org/zap"
)

// Synthesizer renders text with the given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Config configures a SpeechClient.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	MaxChunkChars int
	Timeout       time.Duration
}

// SpeechClient calls an OpenAI-compatible /audio/speech endpoint. Scripts longer
// than the per-request input limit are split on paragraph and sentence
// boundaries, and the MP3 responses are concatenated in order.
type SpeechClient struct {
	cfg        Config
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

var _ Synthesizer = (*SpeechClient)(nil)

func NewSpeechClient(cfg Config, policy retry.Policy, logger *zap.Logger) *SpeechClient {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = 4000
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &SpeechClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
		logger:     logger,
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (c *SpeechClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("tts: api key required")
	}
	chunks := Chunk(text, c.cfg.MaxChunkChars)
	if len(chunks) == 0 {
		return nil, errors.New("tts: empty script")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		c.logger.Debug("Synthesizing chunk", zap.Int("chunk", i+1), zap.Int("of", len(chunks)), zap.Int("chars", len(chunk)))
		payload, err := json.Marshal(speechRequest{
			Model:          c.cfg.Model,
			Input:          chunk,
			Voice:          voice,
			ResponseFormat: "mp3",
		})
		if err != nil {
			return nil, err
		}

		var data []byte
		err = c.policy.Do(ctx, fmt.Sprintf("tts chunk %d/%d", i+1, len(chunks)), func(ctx context.Context) error {
			var err error
			data, err = c.send(ctx, payload)
			return err
		})
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}
	return audio.Bytes(), nil
}

func (c *SpeechClient) send(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, retry.NewHTTPError("tts request", resp)
	}
	return io.ReadAll(resp.Body)
}

// Chunk splits text into pieces of at most limit bytes, preferring paragraph
// breaks, then sentence ends, then spaces.
func Chunk(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := splitPoint(text, limit)
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func splitPoint(text string, limit int) int {
	window := text[:limit]
	if i := strings.LastIndex(window, "\n\n"); i > limit/2 {
		return i
	}
	for _, sep := range []string{". ", "? ", "! ", "\n"} {
		if i := strings.LastIndex(window, sep); i > limit/2 {
			return i + 1
		}
	}
	if i := strings.LastIndex(window, " "); i > 0 {
		return i
	}
	// no break available; back off to a rune boundary
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}
