package extract

import (
	"regexp"
	"strings"
)

// Combine says how a rule's capture groups collapse into a two-word core name.
type Combine int

const (
	// CombineWhole uses group 1 as the full name.
	CombineWhole Combine = iota
	// CombineFirstLast joins group 1 and group 2, skipping whatever sat between
	// them (a middle initial, a formal first name before a nickname).
	CombineFirstLast
	// CombineCoreOfThree keeps the first and last word of a three-word group.
	CombineCoreOfThree
	// CombineStripSuffix drops a generational suffix (Jr, Sr, III, IV).
	CombineStripSuffix
	// CombineFirstTwoOfGroup keeps the first two words of group 1, dropping a
	// trailing word that belongs to the surrounding text.
	CombineFirstTwoOfGroup
)

// Rule is one entry of the pattern table.
type Rule struct {
	ID      string
	Pattern *regexp.Regexp
	Combine Combine
}

const (
	word     = `(?:[A-Z]'[A-Z][a-zà-ÿ]+|[A-ZÀ-Þ][a-zà-ÿ]+(?:[A-Z][a-zà-ÿ]+)?(?:-[A-Z][a-zà-ÿ]+)?)`
	gap      = `[ \t]+`
	name2    = `(` + word + gap + word + `)`
	name3    = `(` + word + gap + word + gap + word + `)`
	suffixed = `(` + word + gap + word + `,?` + gap + `(?:Jr\.?|Sr\.?|III|II|IV))`
	role     = `(?i:(?:assistant\s+)?treasurer)`
	vpRole   = `(?i:(?:vice\s+president\s+and\s+)?treasurer)`
)

func rule(id, pattern string, combine Combine) Rule {
	return Rule{ID: id, Pattern: regexp.MustCompile(pattern), Combine: combine}
}

// DefaultRules returns the treasurer pattern table. Order only affects which
// mentions are found first; every rule is always evaluated.
func DefaultRules() []Rule {
	return []Rule{
		// Giuseppe "Joe" DiSalvo, Treasurer
		rule("quoted_nickname", `[A-Z][a-z]+[ \t]+["“]([A-Z][a-z]+)["”][ \t]+(`+word+`)[^.\n]{0,30}(?i:treasurer)`, CombineFirstLast),
		// Justin S. Forsberg - VP/Treasurer
		rule("middle_initial_line", `(?m)^[ \t]*(`+word+`)[ \t]+[A-Z]\.?[ \t]+(`+word+`)[ \t]*[-–—,][^.\n]*?(?i:treasurer)`, CombineFirstLast),
		rule("middle_initial_inline", `(`+word+`)[ \t]+[A-Z]\.[ \t]+(`+word+`)[^.\n]{0,60}?(?i:treasurer)`, CombineFirstLast),
		rule("current_or_serves_as", name2+`[ \t]+(?i:current|serves\s+as)\s+`+role, CombineWhole),
		rule("treasurer_since_year", role+`\s+(?i:since|from)\s+\d{4}[^.]*?`+name2, CombineWhole),
		rule("appointed", name2+`\s+(?i:appointed)\s+`+role, CombineWhole),
		// Sarah Rana, Vice President and Treasurer
		rule("vp_and_treasurer", name2+`[,\s]+`+vpRole, CombineWhole),
		rule("title_field_after", name2+`[^.]{0,100}(?i:title)[^.]{0,50}(?i:treasurer)`, CombineWhole),
		rule("title_field_before", `(?i:title)[^.]{0,50}(?i:treasurer)[^.]{0,50}?`+name2, CombineWhole),
		// Michael Knell ... as Treasurer
		rule("as_treasurer", name2+`[^.]{0,100}\b(?i:as)\s+`+role, CombineWhole),
		// Michael Suh's email & phone | Evolus's Treasurer
		rule("email_listing", name2+`'s\s+(?i:email)[^|]{0,30}\|[^|\n]*?(?i:treasurer)`, CombineWhole),
		rule("treasurer_of_at", name2+`[^.]{0,100}`+role+`\s+(?i:of|at)\b`, CombineWhole),
		// Michael Suh Evolus's Treasurer
		rule("name_before_possessive", `(`+word+gap+word+gap+word+`)'s\s+`+role, CombineFirstTwoOfGroup),
		rule("ellipsis", name2+`[^.]{0,60}\.\.\.[^.]{0,40}`+role, CombineWhole),
		rule("three_words_before", name3+`[^.]{0,50}(?i:treasurer)`, CombineCoreOfThree),
		rule("three_words_after", `(?i:treasurer)[^.]{0,50}?`+name3, CombineCoreOfThree),
		rule("suffix_before", suffixed+`[^.]{0,50}(?i:treasurer)`, CombineStripSuffix),
		rule("suffix_after", `(?i:treasurer)[^.]{0,50}?`+suffixed, CombineStripSuffix),
		rule("head_of_treasury_after", name2+`[^.]{0,100}(?i:head\s+of\s+treasury|treasury\s+head)`, CombineWhole),
		rule("head_of_treasury_before", `(?i:head\s+of\s+treasury|treasury\s+head)[^.]{0,100}?`+name2, CombineWhole),
		rule("director_of_treasury_after", name2+`[^.]{0,100}(?i:director\s+of\s+treasury)`, CombineWhole),
		rule("director_of_treasury_before", `(?i:director\s+of\s+treasury)[^.]{0,100}?`+name2, CombineWhole),
		rule("vp_treasury_after", name2+`[^.]{0,100}(?i:vp\s+treasury|vice\s+president\s+treasury)`, CombineWhole),
		rule("vp_treasury_before", `(?i:vp\s+treasury|vice\s+president\s+treasury)[^.]{0,100}?`+name2, CombineWhole),
		// John Smith - Treasurer
		rule("line_dash_role", `(?m)^[ \t]*`+name2+`[ \t]*[-–—]?[ \t]*`+role, CombineWhole),
		rule("line_near_role", `(?m)^[ \t]*`+name2+`[^.\n]{0,40}`+role, CombineWhole),
		rule("serves_as", name2+`\s+(?i:serves\s+as)\s+`+role, CombineWhole),
		// Treasurer: John Smith
		rule("role_colon", role+`[:\s]+`+name2, CombineWhole),
		rule("role_dash", role+`\s*[-–—]\s*`+name2, CombineWhole),
		rule("near_before", name2+`[^.]{0,40}`+role, CombineWhole),
		rule("broad_before", name2+`[^.]{0,200}`+role, CombineWhole),
		rule("broad_after", role+`[^.]{0,200}?`+name2, CombineWhole),
	}
}

var generationalSuffix = regexp.MustCompile(`,?[ \t]+(?:Jr\.?|Sr\.?|III|II|IV)$`)

// core collapses a match's groups into a two-word name per the rule's combine mode.
func core(combine Combine, groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	switch combine {
	case CombineFirstLast:
		if len(groups) < 2 {
			return ""
		}
		return strings.TrimSpace(groups[0]) + " " + strings.TrimSpace(groups[1])
	case CombineCoreOfThree:
		words := strings.Fields(groups[0])
		if len(words) < 3 {
			return strings.Join(words, " ")
		}
		return words[0] + " " + words[len(words)-1]
	case CombineFirstTwoOfGroup:
		words := strings.Fields(groups[0])
		if len(words) < 2 {
			return ""
		}
		return words[0] + " " + words[1]
	case CombineStripSuffix:
		return strings.TrimSpace(generationalSuffix.ReplaceAllString(strings.TrimSpace(groups[0]), ""))
	default:
		return strings.TrimSpace(groups[0])
	}
}
