package facility

import (
	"regexp"
	"strings"
)

// DebtKeywords locate the debt note of a filing.
var DebtKeywords = []string{
	"Debt", "Indebtedness", "Long-term Debt", "Short-term Debt", "Borrowings",
	"Credit Facilities", "Term Loans", "Revolving Credit", "Notes Payable",
	"Debt and Credit Facilities", "Credit Agreement",
}

// LiquidityKeywords locate the liquidity discussion of a filing.
var LiquidityKeywords = []string{
	"Liquidity and Capital Resources", "Liquidity", "Capital Resources",
	"Cash and Cash Equivalents", "Working Capital", "Sources and Uses of Cash", "Cash Flow",
}

var (
	noteHeader = regexp.MustCompile(`(?im)^[ \t]*Note[ \t]*\d+[A-Z]?\.[ \t]*([A-Za-z0-9 ,&\-/]+)`)

	sectionEnds = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^[ \t]*Item[ \t]*\d+[A-Z]?\.[ \t]*[A-Z][A-Za-z \t]{10,}$`),
		regexp.MustCompile(`(?im)^[ \t]*Note[ \t]*\d+[A-Z]?\.[ \t]*[A-Z][A-Za-z ,&\-/\t]{3,}$`),
		regexp.MustCompile(`(?m)^[ \t]*[A-Z][A-Z \t]{15,}$`),
		regexp.MustCompile(`(?im)^[ \t]*PART[ \t]+[IVX]+\b`),
		regexp.MustCompile(`(?im)^[ \t]*SIGNATURES?[ \t]*$`),
	}
)

// headerPattern matches a line that is only the keyword, optionally preceded by
// an "Item N." label and followed by a period or colon.
func headerPattern(keywords []string) *regexp.Regexp {
	alts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		quoted := regexp.QuoteMeta(strings.TrimSpace(kw))
		alts = append(alts, strings.ReplaceAll(quoted, " ", `[ \t]+`))
	}
	return regexp.MustCompile(`(?im)^[ \t]*(?:Item[ \t]*\d+[A-Z]?\.[ \t]*)?(?:` + strings.Join(alts, "|") + `)[ \t]*[.:]?[ \t]*$`)
}

// ExtractSection returns the filing section introduced by a header matching one
// of keywords. A "Note N." header whose title contains a keyword wins; otherwise
// the last matching header line is used so a table of contents is skipped. The
// section runs to the next Item, Note, PART or SIGNATURES header or ALL-CAPS
// line. It returns "" when no header matches.
func ExtractSection(text string, keywords []string) string {
	if strings.TrimSpace(text) == "" || len(keywords) == 0 {
		return ""
	}

	start := -1
	for _, loc := range noteHeader.FindAllStringSubmatchIndex(text, -1) {
		title := strings.ToLower(text[loc[2]:loc[3]])
		if containsKeyword(title, keywords) {
			start = loc[0]
			break
		}
	}
	if start < 0 {
		matches := headerPattern(keywords).FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			return ""
		}
		start = matches[len(matches)-1][0]
	}

	bodyStart := len(text)
	if nl := strings.IndexByte(text[start:], '\n'); nl >= 0 {
		bodyStart = start + nl + 1
	}
	end := len(text)
	rest := text[bodyStart:]
	for _, re := range sectionEnds {
		if loc := re.FindStringIndex(rest); loc != nil && bodyStart+loc[0] < end {
			end = bodyStart + loc[0]
		}
	}
	return strings.TrimSpace(text[start:end])
}

// Sections returns the debt and liquidity sections of a filing.
func Sections(text string) (debt, liquidity string) {
	return ExtractSection(text, DebtKeywords), ExtractSection(text, LiquidityKeywords)
}

func containsKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
