package scoring

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"officer-intel/backend/internal/candidate"
)

// Bonuses are the additive rewards applied by the Scorer.
type Bonuses struct {
	CurrentRole        float64 `yaml:"current_role" json:"current_role"`
	AssistantTreasurer float64 `yaml:"assistant_treasurer" json:"assistant_treasurer"`
	TreasurerSince     float64 `yaml:"treasurer_since" json:"treasurer_since"`
	Appointed          float64 `yaml:"appointed" json:"appointed"`
	ExecutiveContext   float64 `yaml:"executive_context" json:"executive_context"`
	LeadershipPage     float64 `yaml:"leadership_page" json:"leadership_page"`
	ProperContext      float64 `yaml:"proper_context" json:"proper_context"`
	HighQualityName    float64 `yaml:"high_quality_name" json:"high_quality_name"`
}

// Penalties are the additive deductions applied by the Scorer. Values are positive.
type Penalties struct {
	PotentiallyOutdated     float64 `yaml:"potentially_outdated" json:"potentially_outdated"`
	DefinitelyOutdated      float64 `yaml:"definitely_outdated" json:"definitely_outdated"`
	LinkedInSnippet         float64 `yaml:"linkedin_snippet" json:"linkedin_snippet"`
	PastRoleIndicator       float64 `yaml:"past_role_indicator" json:"past_role_indicator"`
	DualRoleMention         float64 `yaml:"dual_role_mention" json:"dual_role_mention"`
	SearchResultUncertainty float64 `yaml:"search_result_uncertainty" json:"search_result_uncertainty"`
	LowQualityName          float64 `yaml:"low_quality_name" json:"low_quality_name"`
	BusinessEntity          float64 `yaml:"business_entity" json:"business_entity"`
}

// Thresholds drive the decision rules and the post-scoring filter.
type Thresholds struct {
	High          float64 `yaml:"high" json:"high"`
	Medium        float64 `yaml:"medium" json:"medium"`
	Usable        float64 `yaml:"usable" json:"usable"`
	Gap           float64 `yaml:"gap" json:"gap"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

// Weights is the full calibration of the scorer and decision engine.
type Weights struct {
	Base           float64                       `yaml:"base" json:"base"`
	Channels       map[candidate.Channel]float64 `yaml:"channels" json:"channels"`
	DefaultChannel float64                       `yaml:"default_channel" json:"default_channel"`
	Bonus          Bonuses                       `yaml:"bonuses" json:"bonuses"`
	Penalty        Penalties                     `yaml:"penalties" json:"penalties"`
	Thresholds     Thresholds                    `yaml:"thresholds" json:"thresholds"`
}

// DefaultThresholds returns the stock decision thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:          0.75,
		Medium:        0.55,
		Usable:        0.45,
		Gap:           0.10,
		MinConfidence: 0.30,
	}
}

// DefaultWeights returns the stock calibration.
func DefaultWeights() Weights {
	return Weights{
		Base: 0.15,
		Channels: map[candidate.Channel]float64{
			candidate.LeadershipPage:          0.25,
			candidate.SECFilingSearch:         0.20,
			candidate.LinkedInSearch:          0.18,
			candidate.GeneralExecSearch:       0.15,
			candidate.BroaderTreasurySearch:   0.12,
			candidate.ExecTeamSearch:          0.12,
			candidate.TreasurerSearch:         0.10,
			candidate.EnhancedTreasurerSearch: 0.10,
			candidate.RecentTreasurerSearch:   0.10,
			candidate.CompanyTreasurySearch:   0.05,
		},
		DefaultChannel: 0.05,
		Bonus: Bonuses{
			CurrentRole:        0.10,
			AssistantTreasurer: 0.08,
			TreasurerSince:     0.15,
			Appointed:          0.12,
			ExecutiveContext:   0.03,
			LeadershipPage:     0.10,
			ProperContext:      0.20,
			HighQualityName:    0.08,
		},
		Penalty: Penalties{
			PotentiallyOutdated:     0.08,
			DefinitelyOutdated:      0.25,
			LinkedInSnippet:         0.02,
			PastRoleIndicator:       0.12,
			DualRoleMention:         0.03,
			SearchResultUncertainty: 0.02,
			LowQualityName:          0.20,
			BusinessEntity:          0.15,
		},
		Thresholds: DefaultThresholds(),
	}
}

// LoadWeights overlays a YAML calibration file on the defaults. Keys absent from
// the file keep their default value. An empty path returns the defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if path == "" {
		return w, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Weights{}, fmt.Errorf("read scoring config: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("unmarshal scoring config: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, fmt.Errorf("scoring config %s: %w", path, err)
	}
	return w, nil
}

// Channel returns the reliability weight of a channel.
func (w Weights) Channel(ch candidate.Channel) float64 {
	if v, ok := w.Channels[ch]; ok {
		return v
	}
	return w.DefaultChannel
}

// Validate checks that thresholds are ordered and inside [0,1].
func (w Weights) Validate() error {
	return w.Thresholds.Validate()
}

// Validate checks that thresholds are ordered and inside [0,1].
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.High, t.Medium, t.Usable, t.Gap, t.MinConfidence} {
		if v < 0 || v > 1 {
			return errors.New("thresholds must lie in [0,1]")
		}
	}
	if t.Medium > t.High {
		return errors.New("medium threshold exceeds high threshold")
	}
	if t.Usable > t.Medium {
		return errors.New("usable threshold exceeds medium threshold")
	}
	return nil
}
