package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	protocolStripper = regexp.MustCompile(`^https?://`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	quoteChars       = regexp.MustCompile("[\"“”]")
	alphaRun         = regexp.MustCompile(`[A-Za-z]+`)
)

// NameKey returns the merge key for a person name: case-folded, trimmed and
// whitespace-collapsed.
func NameKey(name string) string {
	return strings.ToLower(CleanName(name))
}

// CleanName strips quote characters and collapses whitespace.
func CleanName(name string) string {
	name = quoteChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Words splits a cleaned name into its tokens.
func Words(name string) []string {
	return strings.Fields(CleanName(name))
}

// CompanyTokens returns the lowercase alphabetic tokens of a company name.
func CompanyTokens(company string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range alphaRun.FindAllString(strings.ToLower(company), -1) {
		tokens[token] = struct{}{}
	}
	return tokens
}

// FoldASCII removes diacritics so "José Núñez" becomes "Jose Nunez".
func FoldASCII(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, input)
	if err != nil {
		return input
	}
	return out
}

// HostOf extracts the lowercase host of a URL or bare domain, without a
// leading "www." or port.
func HostOf(input string) string {
	lower := strings.ToLower(strings.TrimSpace(input))
	lower = protocolStripper.ReplaceAllString(lower, "")

	for _, sep := range []string{"/", "?", "#"} {
		if idx := strings.Index(lower, sep); idx >= 0 {
			lower = lower[:idx]
		}
	}

	// Drop credentials if present (user:pass@)
	if idx := strings.LastIndex(lower, "@"); idx >= 0 {
		lower = lower[idx+1:]
	}

	lower = strings.Trim(lower, ".")
	lower = strings.TrimPrefix(lower, "www.")

	if idx := strings.IndexRune(lower, ':'); idx >= 0 {
		lower = lower[:idx]
	}
	return lower
}

// RegistrableDomain trims a host down to its last two labels, or three when the
// public suffix is a two-letter country code under a second-level label
// ("acme.co.uk").
func RegistrableDomain(host string) string {
	segments := compactSegments(strings.Split(HostOf(host), "."))
	if len(segments) <= 2 {
		return strings.Join(segments, ".")
	}
	tld := segments[len(segments)-1]
	second := segments[len(segments)-2]
	if len(tld) == 2 && len(second) <= 3 {
		return strings.Join(segments[len(segments)-3:], ".")
	}
	return strings.Join(segments[len(segments)-2:], ".")
}

func compactSegments(in []string) []string {
	var out []string
	for _, seg := range in {
		if trimmed := strings.TrimSpace(seg); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
