package scoring

import (
	"fmt"
	"sort"
	"strings"

	"officer-intel/backend/internal/candidate"
)

// Status is the outcome class of a detection run.
type Status string

const (
	StatusSingleConfident Status = "single_confident"
	StatusCombo           Status = "cfo_treasurer_combo"
	StatusMultiple        Status = "multiple_candidates"
	StatusUncertain       Status = "uncertain"
	StatusNoneFound       Status = "none_found"
)

// ConfidenceLevel is the coarse confidence attached to a result.
type ConfidenceLevel string

const (
	LevelHigh   ConfidenceLevel = "high"
	LevelMedium ConfidenceLevel = "medium"
	LevelLow    ConfidenceLevel = "low"
)

// EmailStrategy tells the email consumer which address to build.
type EmailStrategy string

const (
	UseTreasurer      EmailStrategy = "use_treasurer"
	UseCFOOnly        EmailStrategy = "use_cfo_only"
	ProvideFormatOnly EmailStrategy = "provide_format_only"
)

// SameAsCFO is the legacy primary-name sentinel for the combined CFO and
// treasurer role.
const SameAsCFO = "same"

// DetectionResult is the final, immutable answer for one company.
type DetectionResult struct {
	Company         string                `json:"company"`
	Status          Status                `json:"status"`
	Primary         *candidate.Candidate  `json:"primary_treasurer"`
	PrimaryName     string                `json:"primary_name,omitempty"`
	Candidates      []candidate.Candidate `json:"all_candidates"`
	ConfidenceLevel ConfidenceLevel       `json:"confidence_level"`
	Recommendation  string                `json:"recommendation"`
	EmailStrategy   EmailStrategy         `json:"email_strategy"`
}

// DecisionInput is everything the decision rules look at.
type DecisionInput struct {
	Company         string
	Candidates      []candidate.Candidate
	RoleCombination bool
}

// Decide applies the ordered decision rules. The first matching rule wins.
func Decide(in DecisionInput, th Thresholds) DetectionResult {
	cands := make([]candidate.Candidate, len(in.Candidates))
	copy(cands, in.Candidates)
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Confidence > cands[j].Confidence
	})

	res := DetectionResult{Company: in.Company, Candidates: cands}

	if len(cands) == 0 && !in.RoleCombination {
		res.Status = StatusNoneFound
		res.ConfidenceLevel = LevelLow
		res.Recommendation = "Contact company directly for treasurer information"
		res.EmailStrategy = UseCFOOnly
		return res
	}

	if in.RoleCombination || anyDualRole(cands) {
		res.Status = StatusCombo
		res.PrimaryName = SameAsCFO
		res.ConfidenceLevel = LevelHigh
		res.Recommendation = "CFO handles treasurer duties"
		res.EmailStrategy = UseCFOOnly
		return res
	}

	top := cands[0]
	second := 0.0
	if len(cands) > 1 {
		second = cands[1].Confidence
	}

	switch {
	case top.Confidence >= th.High && (len(cands) == 1 || second < th.Medium):
		return single(res, LevelHigh, fmt.Sprintf("High confidence: %s is the treasurer", top.Name))
	case len(cands) == 1 && top.Confidence >= th.Medium:
		return single(res, LevelMedium, fmt.Sprintf("Medium confidence: %s is likely the treasurer", top.Name))
	case top.Confidence >= th.Medium && atLeast(top.Confidence-second, th.Gap):
		return single(res, LevelMedium, fmt.Sprintf("Likely treasurer: %s (significant confidence gap)", top.Name))
	}

	var viable []string
	for _, c := range cands {
		if c.Confidence >= th.Usable {
			viable = append(viable, c.Name)
		}
	}
	if len(viable) > 1 {
		if len(viable) > 3 {
			viable = viable[:3]
		}
		res.Status = StatusMultiple
		res.ConfidenceLevel = LevelMedium
		res.Recommendation = fmt.Sprintf("Multiple possible treasurers found: %s - review LinkedIn profiles to verify", strings.Join(viable, ", "))
		res.EmailStrategy = UseCFOOnly
		return res
	}

	res.Status = StatusUncertain
	if top.Confidence >= th.Medium {
		primary := top
		res.Primary = &primary
		res.PrimaryName = top.Name
		res.ConfidenceLevel = LevelMedium
		res.Recommendation = fmt.Sprintf("Likely treasurer: %s (verify with LinkedIn profile)", top.Name)
		res.EmailStrategy = UseTreasurer
		if top.Issues.HasAny(candidate.PastRoleIndicator, candidate.PotentiallyOutdated, candidate.DefinitelyOutdated) {
			res.EmailStrategy = UseCFOOnly
		}
		return res
	}
	res.ConfidenceLevel = LevelLow
	res.Recommendation = "Treasurer information unclear - contact company for confirmation"
	res.EmailStrategy = UseCFOOnly
	return res
}

func single(res DetectionResult, level ConfidenceLevel, recommendation string) DetectionResult {
	primary := res.Candidates[0]
	res.Status = StatusSingleConfident
	res.Primary = &primary
	res.PrimaryName = primary.Name
	res.ConfidenceLevel = level
	res.Recommendation = recommendation
	res.EmailStrategy = UseTreasurer
	return res
}

func anyDualRole(cands []candidate.Candidate) bool {
	for _, c := range cands {
		if c.HasIssue(candidate.DualRoleMention) {
			return true
		}
	}
	return false
}

// atLeast compares with a small tolerance so 0.65-0.55 clears a 0.10 gap.
func atLeast(v, threshold float64) bool {
	return v >= threshold-1e-9
}

// LegacyFormat renders the one-line answer older consumers expect.
func LegacyFormat(res DetectionResult) string {
	switch {
	case res.Status == StatusSingleConfident && res.Primary != nil:
		return res.Primary.Name
	case res.Status == StatusCombo:
		return SameAsCFO
	case res.Status == StatusMultiple:
		top := make([]string, 0, 2)
		for _, c := range res.Candidates {
			if len(top) == 2 {
				break
			}
			top = append(top, c.Name)
		}
		return "Multiple possible: " + strings.Join(top, ", ")
	case res.Primary != nil:
		return res.Primary.Name + " (verify)"
	default:
		return SameAsCFO
	}
}

// EmailGuidance is what the email builder needs from a result.
type EmailGuidance struct {
	Strategy       EmailStrategy `json:"strategy"`
	TreasurerName  string        `json:"treasurer_name,omitempty"`
	FallbackReason string        `json:"fallback_reason"`
}

// Guidance extracts email-building guidance from a result.
func Guidance(res DetectionResult) EmailGuidance {
	g := EmailGuidance{Strategy: res.EmailStrategy, FallbackReason: res.Recommendation}
	if res.EmailStrategy == UseTreasurer && res.Primary != nil {
		g.TreasurerName = res.Primary.Name
	}
	return g
}
