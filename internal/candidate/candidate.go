package candidate

import (
	"sort"
	"strings"
)

// Channel identifies the evidence source a blob was gathered from.
type Channel string

const (
	LeadershipPage          Channel = "leadership_page"
	GeneralExecSearch       Channel = "general_exec_search"
	TreasurerSearch         Channel = "treasurer_search"
	CompanyTreasurySearch   Channel = "company_treasury_search"
	EnhancedTreasurerSearch Channel = "enhanced_treasurer_search"
	SECFilingSearch         Channel = "sec_filing_search"
	RecentTreasurerSearch   Channel = "recent_treasurer_search"
	LinkedInSearch          Channel = "linkedin_search"
	BroaderTreasurySearch   Channel = "broader_treasury_search"
	ExecTeamSearch          Channel = "exec_team_search"
)

// Channels lists every gather channel in reporting order.
var Channels = []Channel{
	LeadershipPage,
	GeneralExecSearch,
	TreasurerSearch,
	CompanyTreasurySearch,
	EnhancedTreasurerSearch,
	SECFilingSearch,
	RecentTreasurerSearch,
	LinkedInSearch,
	BroaderTreasurySearch,
	ExecTeamSearch,
}

// ParseChannel maps a wire value onto a known channel.
func ParseChannel(value string) (Channel, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, ch := range Channels {
		if string(ch) == value {
			return ch, true
		}
	}
	return Channel(value), false
}

// Blob is the text gathered from one channel for one query.
type Blob struct {
	Channel Channel `json:"channel"`
	Text    string  `json:"text"`
}

// Issue is a qualitative flag attached to a candidate during scoring.
type Issue string

const (
	PotentiallyOutdated     Issue = "potentially_outdated"
	PastRoleIndicator       Issue = "past_role_indicator"
	DualRoleMention         Issue = "dual_role_mention"
	BusinessEntity          Issue = "business_entity"
	LowQualityName          Issue = "low_quality_name"
	SearchResultUncertainty Issue = "search_result_uncertainty"
	LinkedInSnippet         Issue = "linkedin_snippet"
	DefinitelyOutdated      Issue = "definitely_outdated"
)

var issueRank = map[Issue]int{
	PotentiallyOutdated:     0,
	DefinitelyOutdated:      1,
	LinkedInSnippet:         2,
	PastRoleIndicator:       3,
	DualRoleMention:         4,
	SearchResultUncertainty: 5,
	LowQualityName:          6,
	BusinessEntity:          7,
}

// Issues is a set of issue tags kept in canonical order.
type Issues []Issue

// Has reports whether the set contains the issue.
func (s Issues) Has(issue Issue) bool {
	for _, existing := range s {
		if existing == issue {
			return true
		}
	}
	return false
}

// HasAny reports whether any of the supplied issues is present.
func (s Issues) HasAny(issues ...Issue) bool {
	for _, issue := range issues {
		if s.Has(issue) {
			return true
		}
	}
	return false
}

// Union merges the sets and returns the result in canonical order.
func (s Issues) Union(other Issues) Issues {
	out := make(Issues, 0, len(s)+len(other))
	for _, issue := range s {
		if !out.Has(issue) {
			out = append(out, issue)
		}
	}
	for _, issue := range other {
		if !out.Has(issue) {
			out = append(out, issue)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rankOf(out[i]) < rankOf(out[j])
	})
	return out
}

func rankOf(issue Issue) int {
	if rank, ok := issueRank[issue]; ok {
		return rank
	}
	return len(issueRank)
}

// Candidate is a named person extracted from text with its confidence and evidence.
type Candidate struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Source      Channel `json:"source"`
	Evidence    string  `json:"evidence"`
	Issues      Issues  `json:"potential_issues"`
	LinkedInURL string  `json:"linkedin_url,omitempty"`
}

// HasIssue reports whether the candidate carries the issue tag.
func (c Candidate) HasIssue(issue Issue) bool {
	return c.Issues.Has(issue)
}

const (
	// MaxExcerpt bounds a single evidence excerpt.
	MaxExcerpt = 200
	// MaxEvidence bounds the merged evidence of one candidate.
	MaxEvidence = 600
)

// Excerpt trims text to MaxExcerpt characters, marking truncation with an ellipsis.
func Excerpt(text string) string {
	return truncate(strings.TrimSpace(text), MaxExcerpt)
}

// AppendEvidence adds an excerpt from another channel while keeping the total bounded.
func AppendEvidence(existing string, from Channel, excerpt string) string {
	excerpt = strings.TrimSpace(excerpt)
	if excerpt == "" || strings.Contains(existing, excerpt) {
		return existing
	}
	excerpt = truncate(excerpt, 100)
	combined := existing + " | Additional from " + string(from) + ": " + excerpt
	return truncate(combined, MaxEvidence)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	// avoid splitting a multi-byte rune
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
