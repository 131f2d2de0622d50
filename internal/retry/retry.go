package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Policy retries transient failures a fixed number of times with a fixed delay.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// OnRetry is called before each sleep; nil is fine.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep overrides the wait between attempts (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

// HTTPError carries a non-2xx response so the policy can classify it.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

// NewHTTPError reads at most 1 KiB of the body for the message.
func NewHTTPError(op string, resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}

// Do runs fn until it succeeds, returns a non-transient error, or runs out of attempts.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		err   error
		tried int
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		tried = attempt
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == attempts || !Transient(err) || ctx.Err() != nil {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, p.Delay)
		}
		if serr := p.sleep(ctx, p.Delay); serr != nil {
			return fmt.Errorf("%s: %w", op, serr)
		}
	}
	if tried > 1 {
		return fmt.Errorf("%s: failed after %d attempts: %w", op, tried, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Transient reports whether err is worth another attempt: timeouts, 408, 429 and 5xx.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode
		return code == http.StatusRequestTimeout ||
			code == http.StatusTooManyRequests ||
			code >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// NoSleep is a Sleep func that returns immediately.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
