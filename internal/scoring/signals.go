package scoring

import (
	"regexp"
	"strings"
)

var (
	softOutdated = []string{
		"former treasurer", "past treasurer", "previously treasurer",
		"until 201", "until 202", "through 201", "through 202",
		"ended in 201", "ended in 202", "left in 201", "left in 202",
	}
	definiteOutdated = []string{
		"former treasurer", "past treasurer", "previously treasurer",
		"until 2022", "until 2023", "through 2022", "through 2023",
		"left in 2022", "left in 2023", "ended in 2022", "ended in 2023",
		"resigned in 2022", "resigned in 2023", "retired in 2022", "retired in 2023",
	}
	pastRoleWords  = []string{"former", "past", "previous", "until"}
	executiveWords = []string{"executive", "officer", "management"}
)

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// looseName matches the name with up to two tokens (a middle initial or a
// nickname) allowed between its first and last word.
func looseName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	if len(words) == 0 {
		return ""
	}
	if len(words) == 1 {
		return regexp.QuoteMeta(words[0])
	}
	return regexp.QuoteMeta(words[0]) + `(?:\s+\S+){0,2}?\s+` + regexp.QuoteMeta(words[len(words)-1])
}

// exactName matches the name's tokens in order separated by whitespace only.
func exactName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, `\s+`)
}

// quoteStripper removes the quotes around nicknames so Giuseppe "Joe" DiSalvo
// reads as a plain token run.
var quoteStripper = strings.NewReplacer(`"`, "", "“", "", "”", "")

// hasProperContext reports whether the name and a treasurer role phrase share a
// line of the lowercased context. A role on the line directly below the name
// also counts, which is how rendered leadership cards lay out name and title.
func hasProperContext(name, lowerContext string) bool {
	n := looseName(name)
	if n == "" {
		return false
	}
	patterns := []string{
		n + `[^\n]*(?:\n[^\n]*)?treasurer`,
		`treasurer[^\n]*` + n,
		n + `[^\n]*(?:\n[^\n]*)?principal[^\n]*accounting[^\n]*officer`,
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if re.MatchString(lowerContext) {
			return true
		}
	}
	return false
}

var capitalizedToken = regexp.MustCompile(`^[A-ZÀ-Þ]`)

// isHighQualityName reports whether a two-token capitalized name sits directly
// against treasurer role text, for example "Sarah Rana, Vice President and
// Treasurer" or "Treasurer: Mark Lee".
func isHighQualityName(name, lowerContext string) bool {
	words := strings.Fields(name)
	if len(words) != 2 {
		return false
	}
	for _, w := range words {
		if !capitalizedToken.MatchString(w) {
			return false
		}
	}
	n := exactName(name)
	patterns := []string{
		n + `\s*[,:\-–—]?\s*(?:(?:serves\s+as|appointed|vice\s+president\s+and|assistant)\s+)?treasurer`,
		`treasurer\s*[:,\-–—]?\s*` + n + `\b`,
	}
	for _, p := range patterns {
		if regexp.MustCompile(p).MatchString(lowerContext) {
			return true
		}
	}
	return false
}
