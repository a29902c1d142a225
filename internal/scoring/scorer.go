package scoring

import (
	"strings"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/names"
)

// Scorer assigns an additive confidence to a name seen in a context.
type Scorer struct {
	vocab   *names.Vocabulary
	weights Weights
}

// NewScorer constructs a scorer with the supplied calibration.
func NewScorer(vocab *names.Vocabulary, weights Weights) *Scorer {
	return &Scorer{vocab: vocab, weights: weights}
}

// Weights exposes the scorer calibration.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns a confidence in [0,1] and the issue tags raised along the way.
func (s *Scorer) Score(name, context string, channel candidate.Channel) (float64, candidate.Issues) {
	w := s.weights
	lower := strings.ToLower(quoteStripper.Replace(context))
	var issues candidate.Issues

	confidence := w.Base + w.Channel(channel)

	if strings.Contains(lower, "current") || strings.Contains(lower, "serves as") {
		confidence += w.Bonus.CurrentRole
	}
	if strings.Contains(lower, "assistant treasurer") {
		confidence += w.Bonus.AssistantTreasurer
	}
	hasTreasurer := strings.Contains(lower, "treasurer")
	if hasTreasurer && strings.Contains(lower, "since") {
		confidence += w.Bonus.TreasurerSince
	}
	if hasTreasurer && strings.Contains(lower, "appointed") {
		confidence += w.Bonus.Appointed
	}
	if containsAny(lower, executiveWords) {
		confidence += w.Bonus.ExecutiveContext
	}
	if channel == candidate.LeadershipPage {
		confidence += w.Bonus.LeadershipPage
	}
	if hasProperContext(name, lower) {
		confidence += w.Bonus.ProperContext
	}

	if containsAny(lower, softOutdated) {
		confidence -= w.Penalty.PotentiallyOutdated
		issues = append(issues, candidate.PotentiallyOutdated)
	}
	if containsAny(lower, definiteOutdated) {
		confidence -= w.Penalty.DefinitelyOutdated
		issues = append(issues, candidate.DefinitelyOutdated)
	}
	if strings.Contains(lower, "linkedin") {
		confidence -= w.Penalty.LinkedInSnippet
		issues = append(issues, candidate.LinkedInSnippet)
	}
	if containsAny(lower, pastRoleWords) {
		confidence -= w.Penalty.PastRoleIndicator
		issues = append(issues, candidate.PastRoleIndicator)
	}
	if hasTreasurer && strings.Contains(lower, "cfo") {
		confidence -= w.Penalty.DualRoleMention
		issues = append(issues, candidate.DualRoleMention)
	}
	if channel == candidate.TreasurerSearch || channel == candidate.CompanyTreasurySearch {
		confidence -= w.Penalty.SearchResultUncertainty
		issues = append(issues, candidate.SearchResultUncertainty)
	}

	if isHighQualityName(name, lower) {
		confidence += w.Bonus.HighQualityName
	}
	if s.vocab != nil && s.vocab.IsLowQuality(name) {
		confidence -= w.Penalty.LowQualityName
		issues = append(issues, candidate.LowQualityName)
	}
	if s.vocab != nil && s.vocab.IsBusinessEntity(name) {
		confidence -= w.Penalty.BusinessEntity
		issues = append(issues, candidate.BusinessEntity)
	}

	return clamp(confidence), issues.Union(nil)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
