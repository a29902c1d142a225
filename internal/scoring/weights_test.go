package scoring

import (
	"os"
	"testing"

	"officer-intel/backend/internal/candidate"
)

func TestLoadWeightsOverlaysDefaults(t *testing.T) {
	path := tempYAML(t, `
base: 0.2
channels:
  leadership_page: 0.3
thresholds:
  high: 0.8
`)
	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("load weights: %v", err)
	}
	if w.Base != 0.2 {
		t.Fatalf("expected base 0.2 got %.2f", w.Base)
	}
	if got := w.Channel(candidate.LeadershipPage); got != 0.3 {
		t.Fatalf("expected leadership 0.3 got %.2f", got)
	}
	if got := w.Channel(candidate.SECFilingSearch); got != 0.20 {
		t.Fatalf("expected untouched sec weight 0.20 got %.2f", got)
	}
	if w.Thresholds.High != 0.8 || w.Thresholds.Medium != 0.55 {
		t.Fatalf("unexpected thresholds %+v", w.Thresholds)
	}
	if w.Bonus.ProperContext != 0.20 {
		t.Fatalf("expected default proper context bonus got %.2f", w.Bonus.ProperContext)
	}
}

func TestLoadWeightsRejectsInvertedThresholds(t *testing.T) {
	path := tempYAML(t, "thresholds:\n  medium: 0.9\n")
	if _, err := LoadWeights(path); err == nil {
		t.Fatalf("expected error for medium above high")
	}
}

func TestLoadWeightsEmptyPath(t *testing.T) {
	w, err := LoadWeights("")
	if err != nil {
		t.Fatalf("load weights: %v", err)
	}
	if w.Thresholds != DefaultThresholds() {
		t.Fatalf("expected default thresholds got %+v", w.Thresholds)
	}
}

func tempYAML(t *testing.T, body string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "weights-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := f.WriteString(body); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return f.Name()
}
