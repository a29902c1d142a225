package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrEmptyAnswer is returned when a completer replies with blank text.
var ErrEmptyAnswer = errors.New("ai completer returned an empty answer")

type completerChain struct {
	primary  Completer
	fallback Completer
}

// WithFallback returns a completer that asks primary first and falls back when
// primary is disabled, fails or answers with blank text. A cancelled context
// is not retried on the fallback.
func WithFallback(primary, fallback Completer) Completer {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &completerChain{primary: primary, fallback: fallback}
}

func (c *completerChain) Enabled() bool {
	return c != nil && (c.primary.Enabled() || c.fallback.Enabled())
}

func (c *completerChain) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	var primaryErr error
	if c.primary.Enabled() {
		answer, err := c.primary.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer, nil
		}
		if err == nil {
			err = ErrEmptyAnswer
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		primaryErr = err
		logrus.WithError(err).Warn("primary completer failed; trying fallback")
	}

	if !c.fallback.Enabled() {
		return "", primaryErr
	}
	answer, err := c.fallback.Complete(ctx, prompt)
	if err != nil {
		if primaryErr != nil {
			return "", fmt.Errorf("fallback completer: %w (primary: %v)", err, primaryErr)
		}
		return "", err
	}
	return answer, nil
}
