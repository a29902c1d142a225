package facility

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"officer-intel/backend/internal/ai"
)

// Summary renders a facility on one line, for example
// "$132M Revolver @ SOFR + 1.61% – mat. 12/2026 (Citibank)".
func Summary(f Facility) string {
	var b strings.Builder
	if f.MaxAmount > 0 {
		b.WriteString(formatAmount(f.MaxAmount, f.Currency))
		b.WriteString(" ")
	}
	b.WriteString(f.Name)
	if f.InterestRate != "" {
		b.WriteString(" @ ")
		b.WriteString(f.InterestRate)
	}
	if f.Maturity != "" {
		b.WriteString(" – mat. ")
		b.WriteString(f.Maturity)
	}
	if f.LeadEntity != "" {
		fmt.Fprintf(&b, " (%s)", f.LeadEntity)
	}
	return b.String()
}

// Lines renders every facility and note with Summary.
func Lines(res Result) []string {
	out := make([]string, 0, len(res.Facilities)+len(res.Notes))
	for _, f := range res.Facilities {
		out = append(out, Summary(f))
	}
	for _, f := range res.Notes {
		out = append(out, Summary(f))
	}
	return out
}

func formatAmount(v float64, currency string) string {
	symbol, ok := currencySymbols[currency]
	switch {
	case ok:
	case currency == "":
		symbol = "$"
	default:
		symbol = currency + " "
	}
	unit, div := "", 1.0
	switch {
	case v >= 1e9:
		unit, div = "B", 1e9
	case v >= 1e6:
		unit, div = "M", 1e6
	case v >= 1e3:
		unit, div = "K", 1e3
	}
	scaled := math.Round(v/div*100) / 100
	return symbol + strconv.FormatFloat(scaled, 'f', -1, 64) + unit
}

// FormatWithCompleter asks the completer for a short plain-English overview of
// the extracted instruments. It returns ai.ErrDisabled when no completer is
// configured.
func FormatWithCompleter(ctx context.Context, completer ai.Completer, res Result) (string, error) {
	if completer == nil || !completer.Enabled() {
		return "", ai.ErrDisabled
	}
	lines := Lines(res)
	if len(lines) == 0 {
		return "No credit facilities disclosed.", nil
	}
	prompt := "Summarize the following debt facilities and notes for a treasury analyst in two or three plain-English sentences. " +
		"Use only the figures listed and do not invent terms.\n\n" + strings.Join(lines, "\n")
	out, err := completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize facilities: %w", err)
	}
	return strings.TrimSpace(out), nil
}
