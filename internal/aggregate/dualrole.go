package aggregate

import (
	"regexp"
	"strings"
)

var (
	definitivePhrases = []string{
		"cfo and treasurer",
		"chief financial officer and treasurer",
		"cfo & treasurer",
		"chief financial officer & treasurer",
		"serves as cfo and treasurer",
		"serves as chief financial officer and treasurer",
		"appointed cfo and treasurer",
		"appointed chief financial officer and treasurer",
		"dual role of cfo and treasurer",
		"dual role of chief financial officer and treasurer",
	}

	separateTreasurerHints = []string{
		"separate treasurer",
		"treasurer department",
		"assistant treasurer",
		"treasurer since",
	}

	combinedAppointment = compileAll(
		`cfo.*treasurer.*appointed.*together`,
		`chief financial officer.*treasurer.*appointed.*together`,
		`appointed.*cfo.*treasurer.*together`,
		`appointed.*chief financial officer.*treasurer.*together`,
		`cfo.*also.*treasurer`,
		`chief financial officer.*also.*treasurer`,
		`cfo.*serves.*as.*treasurer`,
		`chief financial officer.*serves.*as.*treasurer`,
		`cfo.*dual.*role.*treasurer`,
		`chief financial officer.*dual.*role.*treasurer`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsDefinitiveDualRole reports whether a blob states that the CFO also holds the
// treasurer role. Such a blob contributes no treasurer candidates.
func IsDefinitiveDualRole(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range definitivePhrases {
		if !strings.Contains(lower, phrase) {
			continue
		}
		separate := false
		for _, hint := range separateTreasurerHints {
			if strings.Contains(lower, hint) {
				separate = true
				break
			}
		}
		if !separate {
			return true
		}
	}
	return matchAny(combinedAppointment, lower)
}
