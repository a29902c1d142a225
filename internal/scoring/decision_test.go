package scoring

import (
	"reflect"
	"strings"
	"testing"

	"officer-intel/backend/internal/candidate"
)

func cand(name string, confidence float64, issues ...candidate.Issue) candidate.Candidate {
	return candidate.Candidate{Name: name, Confidence: confidence, Source: candidate.GeneralExecSearch, Issues: issues}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		in       DecisionInput
		status   Status
		level    ConfidenceLevel
		strategy EmailStrategy
		primary  string
	}{
		{"none found", DecisionInput{}, StatusNoneFound, LevelLow, UseCFOOnly, ""},
		{"combo evidence only", DecisionInput{RoleCombination: true}, StatusCombo, LevelHigh, UseCFOOnly, SameAsCFO},
		{"combo beats confident candidate", DecisionInput{RoleCombination: true, Candidates: []candidate.Candidate{cand("Sarah Rana", 0.9)}}, StatusCombo, LevelHigh, UseCFOOnly, SameAsCFO},
		{"dual role issue", DecisionInput{Candidates: []candidate.Candidate{cand("Sarah Rana", 0.9), cand("Mark Lee", 0.5, candidate.DualRoleMention)}}, StatusCombo, LevelHigh, UseCFOOnly, SameAsCFO},
		{"single high", DecisionInput{Candidates: []candidate.Candidate{cand("Sarah Rana", 0.78), cand("Mark Lee", 0.40)}}, StatusSingleConfident, LevelHigh, UseTreasurer, "Sarah Rana"},
		{"only one medium", DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.60)}}, StatusSingleConfident, LevelMedium, UseTreasurer, "Mark Lee"},
		{"gap", DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.65), cand("Priya Shah", 0.55)}}, StatusSingleConfident, LevelMedium, UseTreasurer, "Mark Lee"},
		{"multiple", DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.58), cand("Priya Shah", 0.52)}}, StatusMultiple, LevelMedium, UseCFOOnly, ""},
		{"two usable of three", DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.58), cand("Priya Shah", 0.50), cand("Ana Cruz", 0.35)}}, StatusMultiple, LevelMedium, UseCFOOnly, ""},
		{"uncertain low", DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.40), cand("Priya Shah", 0.35)}}, StatusUncertain, LevelLow, UseCFOOnly, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Decide(tc.in, DefaultThresholds())
			if result.Status != tc.status {
				t.Fatalf("expected %s got %s", tc.status, result.Status)
			}
			if result.ConfidenceLevel != tc.level {
				t.Fatalf("expected level %s got %s", tc.level, result.ConfidenceLevel)
			}
			if result.EmailStrategy != tc.strategy {
				t.Fatalf("expected strategy %s got %s", tc.strategy, result.EmailStrategy)
			}
			if result.PrimaryName != tc.primary {
				t.Fatalf("expected primary %q got %q", tc.primary, result.PrimaryName)
			}
		})
	}
}

func TestDecideUncertainPrimary(t *testing.T) {
	// With default thresholds a runner-up above medium is always usable, so
	// raise Usable to reach the uncertain branch.
	th := DefaultThresholds()
	th.Usable = 0.57
	in := DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.58), cand("Priya Shah", 0.56)}}

	result := Decide(in, th)
	if result.Status != StatusUncertain || result.Primary == nil || result.Primary.Name != "Mark Lee" {
		t.Fatalf("expected uncertain with Mark Lee, got %+v", result)
	}
	if result.EmailStrategy != UseTreasurer {
		t.Fatalf("expected use_treasurer got %s", result.EmailStrategy)
	}

	in.Candidates[0].Issues = candidate.Issues{candidate.PastRoleIndicator}
	result = Decide(in, th)
	if result.EmailStrategy != UseCFOOnly {
		t.Fatalf("expected past role to downgrade strategy, got %s", result.EmailStrategy)
	}
}

func TestDecideMultipleListsNames(t *testing.T) {
	in := DecisionInput{Candidates: []candidate.Candidate{
		cand("Mark Lee", 0.58), cand("Priya Shah", 0.52), cand("Ana Cruz", 0.50), cand("Tom Hale", 0.47),
	}}
	result := Decide(in, DefaultThresholds())
	for _, name := range []string{"Mark Lee", "Priya Shah", "Ana Cruz"} {
		if !strings.Contains(result.Recommendation, name) {
			t.Fatalf("expected %s in %q", name, result.Recommendation)
		}
	}
	if strings.Contains(result.Recommendation, "Tom Hale") {
		t.Fatalf("expected at most three names in %q", result.Recommendation)
	}
	if result.Primary != nil {
		t.Fatalf("expected no primary")
	}
}

func TestDecideSortsAndIsPure(t *testing.T) {
	in := DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.40), cand("Sarah Rana", 0.80)}}
	first := Decide(in, DefaultThresholds())
	second := Decide(in, DefaultThresholds())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results")
	}
	if first.Candidates[0].Name != "Sarah Rana" {
		t.Fatalf("expected candidates sorted, got %s first", first.Candidates[0].Name)
	}
	if in.Candidates[0].Name != "Mark Lee" {
		t.Fatalf("input slice was reordered")
	}
}

func TestLegacyFormatAndGuidance(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name     string
		in       DecisionInput
		legacy   string
		treasure string
	}{
		{"single", DecisionInput{Candidates: []candidate.Candidate{cand("Sarah Rana", 0.8)}}, "Sarah Rana", "Sarah Rana"},
		{"combo", DecisionInput{RoleCombination: true}, "same", ""},
		{"multiple", DecisionInput{Candidates: []candidate.Candidate{cand("Mark Lee", 0.58), cand("Priya Shah", 0.52), cand("Ana Cruz", 0.5)}}, "Multiple possible: Mark Lee, Priya Shah", ""},
		{"none", DecisionInput{}, "same", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Decide(tc.in, th)
			if got := LegacyFormat(result); got != tc.legacy {
				t.Fatalf("expected %q got %q", tc.legacy, got)
			}
			g := Guidance(result)
			if g.TreasurerName != tc.treasure {
				t.Fatalf("expected treasurer %q got %q", tc.treasure, g.TreasurerName)
			}
			if g.FallbackReason != result.Recommendation || g.Strategy != result.EmailStrategy {
				t.Fatalf("guidance does not mirror result: %+v", g)
			}
		})
	}

	verify := DetectionResult{Status: StatusUncertain, Primary: &candidate.Candidate{Name: "Mark Lee"}}
	if got := LegacyFormat(verify); got != "Mark Lee (verify)" {
		t.Fatalf("expected verify suffix got %q", got)
	}
}
