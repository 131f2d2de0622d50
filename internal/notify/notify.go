package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "morsel/1.0"

// Notifier pushes pipeline milestones to the operator.
type Notifier interface {
	ArticlesQueued(ctx context.Context, day string, count int) error
	EpisodePublished(ctx context.Context, title, audioURL string) error
	Failure(ctx context.Context, stage string, err error) error
}

// New returns an ntfy-backed notifier, or a noop one when topic is empty.
// topic is a full URL such as https://ntfy.sh/my-morsel.
func New(topic string, timeout time.Duration) Notifier {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return noop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfy{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

type noop struct{}

func (noop) ArticlesQueued(context.Context, string, int) error {
	return nil
}

func (noop) EpisodePublished(context.Context, string, string) error {
	return nil
}

func (noop) Failure(context.Context, string, error) error {
	return nil
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfy struct {
	endpoint string
	client   *http.Client
}

func (n *ntfy) ArticlesQueued(ctx context.Context, day string, count int) error {
	return n.send(ctx, payload{
		title:   "Morsel - Articles Queued",
		message: fmt.Sprintf("%d new article(s) queued for %s", count, day),
		tags:    []string{"morsel", "queue"},
	})
}

func (n *ntfy) EpisodePublished(ctx context.Context, title, audioURL string) error {
	return n.send(ctx, payload{
		title:   "Morsel - Episode Published",
		message: title,
		tags:    []string{"morsel", "headphones"},
		click:   audioURL,
	})
}

func (n *ntfy) Failure(ctx context.Context, stage string, err error) error {
	return n.send(ctx, payload{
		title:    "Morsel - " + stage + " failed",
		message:  err.Error(),
		tags:     []string{"morsel", "warning"},
		priority: "high",
	})
}

func (n *ntfy) send(ctx context.Context, p payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(p.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Title", p.title)
	req.Header.Set("User-Agent", userAgent)
	if len(p.tags) > 0 {
		req.Header.Set("Tags", strings.Join(p.tags, ","))
	}
	if p.priority != "" {
		req.Header.Set("Priority", p.priority)
	}
	if p.click != "" {
		req.Header.Set("Click", p.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
