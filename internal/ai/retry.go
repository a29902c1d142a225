package ai

import (
	"context"
	"strings"
	"time"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
	defaultMaxBackoff     = 10 * time.Second
)

// Retrying wraps a completer with exponential backoff on transient API errors
// (429, 500, 503).
type Retrying struct {
	Completer      Completer
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NewRetrying wraps c with the default retry schedule of 2s doubling to 10s
// across three attempts.
func NewRetrying(c Completer) *Retrying {
	return &Retrying{
		Completer:      c,
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

func (r *Retrying) Enabled() bool {
	return r != nil && r.Completer != nil && r.Completer.Enabled()
}

func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	if !r.Enabled() {
		return "", ErrDisabled
	}

	attempts := r.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	delay := r.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		answer, err := r.Completer.Complete(ctx, prompt)
		if err == nil {
			return answer, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !shouldRetry(err) || attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if r.MaxBackoff > 0 && delay > r.MaxBackoff {
			delay = r.MaxBackoff
		}
	}
	return "", lastErr
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status 429") || strings.Contains(msg, "status 500") || strings.Contains(msg, "status 503")
}
