package email

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"officer-intel/backend/internal/match"
)

// Format is a local-part convention such as "first.last".
type Format string

const (
	FirstDotLast    Format = "first.last"
	FirstLast       Format = "firstlast"
	InitialDotLast  Format = "f.last"
	InitialLast     Format = "flast"
	FirstOnly       Format = "first"
	LastOnly        Format = "last"
	FirstUnderLast  Format = "first_last"
	FirstDotInitial Format = "first.l"
	InitialInitial  Format = "fl"
)

// DefaultFormat is used when nothing better can be inferred.
const DefaultFormat = FirstDotLast

// Formats lists every supported format in preference order.
var Formats = []Format{
	FirstDotLast, FirstLast, InitialDotLast, InitialLast, FirstOnly,
	LastOnly, FirstUnderLast, FirstDotInitial, InitialInitial,
}

var formatAliases = map[string]Format{
	"first_initial.last":        InitialDotLast,
	"first_initiallast":         InitialLast,
	"first.last_initial":        FirstDotInitial,
	"first_initiallast_initial": InitialInitial,
	"firstname.lastname":        FirstDotLast,
	"firstnamelastname":         FirstLast,
}

// ErrIncompleteName is returned when a format needs a first and last name
// but the supplied name has only one usable part.
var ErrIncompleteName = errors.New("name needs a first and last part for this format")

var (
	nameSuffixes = map[string]struct{}{
		"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}, "phd": {}, "cpa": {}, "cfa": {}, "mba": {},
	}
	nonLetters  = regexp.MustCompile(`[^a-z]`)
	addressExpr = regexp.MustCompile(`[a-zA-Z0-9_.+\-]+@[a-zA-Z0-9\-]+(?:\.[a-zA-Z0-9\-]+)+`)
)

// genericLocals are role mailboxes that never reveal a personal convention.
var genericLocals = map[string]struct{}{
	"info": {}, "contact": {}, "ir": {}, "investor": {}, "investors": {}, "investorrelations": {},
	"press": {}, "media": {}, "pr": {}, "support": {}, "help": {}, "sales": {}, "hello": {},
	"admin": {}, "careers": {}, "jobs": {}, "hr": {}, "noreply": {}, "no-reply": {},
	"webmaster": {}, "privacy": {}, "legal": {}, "treasury": {}, "finance": {}, "office": {},
}

// ParseFormat maps a format token, including common long-hand aliases, onto a Format.
func ParseFormat(value string) (Format, bool) {
	value = strings.ToLower(strings.Trim(strings.TrimSpace(value), `"'.`))
	for _, f := range Formats {
		if string(f) == value {
			return f, true
		}
	}
	if f, ok := formatAliases[value]; ok {
		return f, true
	}
	return "", false
}

// NameParts returns the lowercase ASCII first and last name of a person.
// Middle names, initials and generational suffixes are dropped.
func NameParts(name string) (first, last string) {
	var parts []string
	for _, word := range match.Words(match.FoldASCII(name)) {
		clean := nonLetters.ReplaceAllString(strings.ToLower(word), "")
		if clean == "" {
			continue
		}
		if _, ok := nameSuffixes[clean]; ok {
			continue
		}
		parts = append(parts, clean)
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}

// LocalPart renders the local part of an address for name in format f.
func LocalPart(name string, f Format) (string, error) {
	first, last := NameParts(name)
	if first == "" {
		return "", fmt.Errorf("empty name %q", name)
	}
	needBoth := f != FirstOnly && f != LastOnly
	if needBoth && last == "" {
		return "", ErrIncompleteName
	}
	switch f {
	case FirstDotLast:
		return first + "." + last, nil
	case FirstLast:
		return first + last, nil
	case InitialDotLast:
		return first[:1] + "." + last, nil
	case InitialLast:
		return first[:1] + last, nil
	case FirstOnly:
		return first, nil
	case LastOnly:
		if last == "" {
			return first, nil
		}
		return last, nil
	case FirstUnderLast:
		return first + "_" + last, nil
	case FirstDotInitial:
		return first + "." + last[:1], nil
	case InitialInitial:
		return first[:1] + last[:1], nil
	}
	return "", fmt.Errorf("unknown email format %q", f)
}

// Build constructs an address for name at domain using format f.
func Build(name, domain string, f Format) (string, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return "", errors.New("email domain is required")
	}
	local, err := LocalPart(name, f)
	if err != nil {
		return "", err
	}
	return local + "@" + domain, nil
}

// NormalizeDomain accepts "acme.com", "@acme.com" or a URL and returns the bare host.
func NormalizeDomain(domain string) string {
	return match.HostOf(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
}

// IsGeneric reports whether an address is a role mailbox such as info@ or ir@.
func IsGeneric(address string) bool {
	local, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(address)), "@")
	if !ok {
		return false
	}
	_, generic := genericLocals[local]
	return generic
}

// ExtractAddresses returns the distinct non-generic addresses at domain found in
// text, in order of appearance. An empty domain accepts any domain.
func ExtractAddresses(text, domain string) []string {
	domain = NormalizeDomain(domain)
	seen := make(map[string]struct{})
	var out []string
	for _, addr := range addressExpr.FindAllString(text, -1) {
		addr = strings.ToLower(strings.TrimRight(addr, "."))
		_, host, _ := strings.Cut(addr, "@")
		if domain != "" && host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		if IsGeneric(addr) {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// InferFormat detects the local-part convention from sample addresses. Samples
// that match a known name vote for the format that rebuilds them; when no
// sample matches a name the local part's shape is used instead.
func InferFormat(samples []string, knownNames []string) (Format, bool) {
	votes := make(map[Format]int)
	for _, sample := range samples {
		if IsGeneric(sample) {
			continue
		}
		local, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(sample)), "@")
		if !ok || local == "" {
			continue
		}
		for _, name := range knownNames {
			for _, f := range Formats {
				built, err := LocalPart(name, f)
				if err == nil && built == local {
					votes[f]++
					break
				}
			}
		}
	}
	if len(votes) > 0 {
		return topVote(votes), true
	}

	for _, sample := range samples {
		if IsGeneric(sample) {
			continue
		}
		local, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(sample)), "@")
		if f, ok := shapeOf(local); ok {
			return f, true
		}
	}
	return "", false
}

func topVote(votes map[Format]int) Format {
	ranked := make([]Format, 0, len(votes))
	for f := range votes {
		ranked = append(ranked, f)
	}
	order := make(map[Format]int, len(Formats))
	for i, f := range Formats {
		order[f] = i
	}
	sort.Slice(ranked, func(i, j int) bool {
		if votes[ranked[i]] != votes[ranked[j]] {
			return votes[ranked[i]] > votes[ranked[j]]
		}
		return order[ranked[i]] < order[ranked[j]]
	})
	return ranked[0]
}

func shapeOf(local string) (Format, bool) {
	if first, last, ok := strings.Cut(local, "."); ok && first != "" && last != "" && !strings.Contains(last, ".") {
		switch {
		case len(first) == 1:
			return InitialDotLast, true
		case len(last) == 1:
			return FirstDotInitial, true
		}
		return FirstDotLast, true
	}
	if first, last, ok := strings.Cut(local, "_"); ok && first != "" && last != "" {
		return FirstUnderLast, true
	}
	return "", false
}
