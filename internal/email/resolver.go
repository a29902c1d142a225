package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"officer-intel/backend/internal/ai"
)

// Source records how a format was decided.
type Source string

const (
	SourceSamples   Source = "samples"
	SourceCompleter Source = "completer"
	SourceDefault   Source = "default"
	SourceRequested Source = "requested"
)

// Resolution is the chosen local-part format and where it came from.
type Resolution struct {
	Format Format `json:"format"`
	Source Source `json:"source"`
}

// Resolver picks a company's email format from observed addresses, asking a
// completer only when the addresses say nothing.
type Resolver struct {
	completer ai.Completer
}

// NewResolver builds a resolver. A nil completer disables the fallback.
func NewResolver(completer ai.Completer) *Resolver {
	return &Resolver{completer: completer}
}

var formatToken = regexp.MustCompile(`[a-z_]+(?:\.[a-z_]+)?`)

// Resolve decides the email format for company at domain. It never fails on a
// missing or failing completer; DefaultFormat is used instead. Only context
// cancellation is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, company, domain string, samples []string, knownNames ...string) (Resolution, error) {
	if f, ok := InferFormat(samples, knownNames); ok {
		return Resolution{Format: f, Source: SourceSamples}, nil
	}

	if r.completer != nil && r.completer.Enabled() {
		reply, err := r.completer.Complete(ctx, formatPrompt(company, domain, samples))
		switch {
		case err == nil:
			if f, ok := parseFormatReply(reply); ok {
				return Resolution{Format: f, Source: SourceCompleter}, nil
			}
			logrus.WithFields(logrus.Fields{"company": company, "reply": reply}).Debug("completer reply had no email format")
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return Resolution{}, err
		case errors.Is(err, ai.ErrDisabled):
		default:
			logrus.WithError(err).WithField("company", company).Warn("email format completion failed")
		}
	}

	return Resolution{Format: DefaultFormat, Source: SourceDefault}, nil
}

func formatPrompt(company, domain string, samples []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "What email address format does %s use", strings.TrimSpace(company))
	if d := NormalizeDomain(domain); d != "" {
		fmt.Fprintf(&b, " at %s", d)
	}
	b.WriteString("? Reply with exactly one of: ")
	for i, f := range Formats {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(f))
	}
	b.WriteString(".")
	if len(samples) > 0 {
		fmt.Fprintf(&b, " Known addresses: %s.", strings.Join(samples, ", "))
	}
	return b.String()
}

func parseFormatReply(reply string) (Format, bool) {
	for _, token := range formatToken.FindAllString(strings.ToLower(reply), -1) {
		if f, ok := ParseFormat(token); ok {
			return f, true
		}
	}
	return "", false
}
