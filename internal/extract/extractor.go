package extract

import (
	"regexp"
	"strings"

	"officer-intel/backend/internal/names"
)

// ContextRadius is how many bytes of text either side of a name are kept as context.
const ContextRadius = 100

// Mention is one validated name occurrence inside a blob.
type Mention struct {
	Name    string `json:"name"`
	Context string `json:"context"`
	Rule    string `json:"rule"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Recognizer finds candidate person names in free text.
type Recognizer interface {
	Extract(text, company string) []Mention
}

// Extractor applies a rule table and keeps only names the validator accepts.
type Extractor struct {
	validator *names.Validator
	rules     []Rule
}

// NewExtractor builds an extractor. A nil rule slice selects DefaultRules.
func NewExtractor(validator *names.Validator, rules []Rule) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Extractor{validator: validator, rules: rules}
}

// Rules returns the rule table in evaluation order.
func (e *Extractor) Rules() []Rule {
	return e.rules
}

// Extract runs every rule over text. Mentions are returned in rule order and,
// within a rule, in text order. The same name may appear more than once.
func (e *Extractor) Extract(text, company string) []Mention {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []Mention
	for _, r := range e.rules {
		for _, loc := range r.Pattern.FindAllStringSubmatchIndex(text, -1) {
			groups, start, end := captured(text, loc)
			if len(groups) == 0 {
				continue
			}
			name := core(r.Combine, groups)
			if name == "" || !e.validator.IsValidPersonName(name, company) {
				continue
			}
			out = append(out, Mention{
				Name:    name,
				Context: window(text, start, end),
				Rule:    r.ID,
				Start:   start,
				End:     end,
			})
		}
	}
	return out
}

// captured returns the non-empty capture groups and the span they cover.
func captured(text string, loc []int) ([]string, int, int) {
	var groups []string
	start, end := -1, -1
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			continue
		}
		groups = append(groups, text[loc[i]:loc[i+1]])
		if start < 0 || loc[i] < start {
			start = loc[i]
		}
		if loc[i+1] > end {
			end = loc[i+1]
		}
	}
	return groups, start, end
}

func window(text string, start, end int) string {
	lo := start - ContextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + ContextRadius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !runeStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !runeStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}

func runeStart(b byte) bool {
	return b&0xC0 != 0x80
}

var linkedInProfile = regexp.MustCompile(`https?://(?:www\.)?linkedin\.com/in/[a-zA-Z0-9\-_]+`)

// LinkedInRadius bounds how far from a name a profile URL may sit.
const LinkedInRadius = 250

// LinkedInURL returns the first linkedin.com/in profile URL found near the
// first occurrence of name, or "" when there is none.
func LinkedInURL(name, text string) string {
	name = strings.TrimSpace(name)
	if name == "" || text == "" {
		return ""
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(name))
	if idx < 0 {
		return ""
	}
	lo := idx - LinkedInRadius
	if lo < 0 {
		lo = 0
	}
	hi := idx + len(name) + LinkedInRadius
	if hi > len(text) {
		hi = len(text)
	}
	return linkedInProfile.FindString(text[lo:hi])
}
