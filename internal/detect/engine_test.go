package detect

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/extract"
	"officer-intel/backend/internal/match"
	"officer-intel/backend/internal/scoring"
)

type staticSource struct {
	blobs []candidate.Blob
	calls int
}

func (s *staticSource) Gather(ctx context.Context, company string) []candidate.Blob {
	s.calls++
	return s.blobs
}

type stubRecognizer struct {
	mentions []extract.Mention
}

func (s stubRecognizer) Extract(text, company string) []extract.Mention {
	return s.mentions
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

func emptyBlobs() []candidate.Blob {
	out := make([]candidate.Blob, 0, len(candidate.Channels))
	for _, ch := range candidate.Channels {
		out = append(out, candidate.Blob{Channel: ch})
	}
	return out
}

func withText(ch candidate.Channel, text string) []candidate.Blob {
	blobs := emptyBlobs()
	for i := range blobs {
		if blobs[i].Channel == ch {
			blobs[i].Text = text
		}
	}
	return blobs
}

func TestAnalyzeOfficialLeadershipPage(t *testing.T) {
	e := newTestEngine(t, Options{})
	res := e.Analyze("Acme Corp", withText(candidate.LeadershipPage, "Sarah Rana, Vice President and Treasurer"))

	assert.Equal(t, scoring.StatusSingleConfident, res.Status)
	assert.Equal(t, scoring.LevelHigh, res.ConfidenceLevel)
	assert.Equal(t, scoring.UseTreasurer, res.EmailStrategy)
	require.NotNil(t, res.Primary)
	assert.Equal(t, "Sarah Rana", res.Primary.Name)
	assert.Equal(t, candidate.LeadershipPage, res.Primary.Source)
	assert.InDelta(t, 0.78, res.Primary.Confidence, 1e-9)
}

func TestAnalyzeQuotedNickname(t *testing.T) {
	e := newTestEngine(t, Options{})
	res := e.Analyze("Acme Corp", withText(candidate.LeadershipPage, `Giuseppe "Joe" DiSalvo, Treasurer`))

	assert.Equal(t, scoring.StatusSingleConfident, res.Status)
	assert.Equal(t, "Joe DiSalvo", res.PrimaryName)
	require.NotNil(t, res.Primary)
	assert.InDelta(t, 0.78, res.Primary.Confidence, 1e-9)
}

func TestAnalyzeMiddleInitialAppointment(t *testing.T) {
	e := newTestEngine(t, Options{})
	res := e.Analyze("Acme Corp", withText(candidate.LeadershipPage,
		"Jane A. Doe — Vice President and Treasurer, appointed 2022."))

	assert.Equal(t, scoring.StatusSingleConfident, res.Status)
	assert.Equal(t, "Jane Doe", res.PrimaryName)
	assert.Equal(t, scoring.UseTreasurer, res.EmailStrategy)
	assert.GreaterOrEqual(t, res.Primary.Confidence, 0.75)
}

func TestAnalyzeCombinedRoleOnlyZeroesItsBlob(t *testing.T) {
	e := newTestEngine(t, Options{})
	blobs := withText(candidate.GeneralExecSearch, "Mark Lee is the CFO and Treasurer of Acme Corp. Sarah Rana, Vice President and Treasurer")
	blobs[0].Text = "Sarah Rana, Vice President and Treasurer"

	res := e.Analyze("Acme Corp", blobs)

	assert.Equal(t, scoring.StatusSingleConfident, res.Status)
	assert.Equal(t, "Sarah Rana", res.PrimaryName)
	assert.Equal(t, scoring.UseTreasurer, res.EmailStrategy)
	for _, c := range res.Candidates {
		assert.Equal(t, candidate.LeadershipPage, c.Source, "combined-role blob must contribute no candidates")
	}
}

func TestAnalyzeCombinedRoleOverridesSameBlobCandidates(t *testing.T) {
	e := newTestEngine(t, Options{})
	res := e.Analyze("Acme Corp", withText(candidate.GeneralExecSearch,
		"Mark Lee is the CFO and Treasurer of Acme Corp. Sarah Rana, Vice President and Treasurer"))

	assert.Equal(t, scoring.StatusCombo, res.Status)
	assert.Equal(t, scoring.SameAsCFO, res.PrimaryName)
	assert.Equal(t, scoring.UseCFOOnly, res.EmailStrategy)
	assert.Equal(t, scoring.LevelHigh, res.ConfidenceLevel)
	assert.Nil(t, res.Primary)
}

func TestAnalyzeCombinedRoleWithoutCandidates(t *testing.T) {
	e := newTestEngine(t, Options{})
	res := e.Analyze("Acme Corp", withText(candidate.SECFilingSearch, "Our CFO also serves as treasurer."))

	assert.Equal(t, scoring.StatusCombo, res.Status)
	assert.Empty(t, res.Candidates)
}

func TestAnalyzeEmptyBlobs(t *testing.T) {
	e := newTestEngine(t, Options{})
	for _, blobs := range [][]candidate.Blob{nil, emptyBlobs()} {
		res := e.Analyze("Acme Corp", blobs)
		assert.Equal(t, scoring.StatusNoneFound, res.Status)
		assert.Nil(t, res.Primary)
		assert.Empty(t, res.Candidates)
		assert.Equal(t, scoring.UseCFOOnly, res.EmailStrategy)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	e := newTestEngine(t, Options{})
	blobs := withText(candidate.LeadershipPage, "Sarah Rana, Vice President and Treasurer\nTreasurer: Mark Lee")
	blobs[2].Text = "Priya Shah serves as treasurer since 2023. https://www.linkedin.com/in/priya-shah"

	first := e.Analyze("Acme Corp", blobs)
	second := e.Analyze("Acme Corp", blobs)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Analyze not idempotent (-first +second):\n%s", diff)
	}
}

func TestAnalyzeMergesAcrossChannels(t *testing.T) {
	e := newTestEngine(t, Options{})
	blobs := withText(candidate.LeadershipPage, "Sarah Rana, Vice President and Treasurer")
	blobs[2].Text = "Sarah Rana, Treasurer at Acme"

	res := e.Analyze("Acme Corp", blobs)

	seen := map[string]bool{}
	for _, c := range res.Candidates {
		key := match.NameKey(c.Name)
		assert.False(t, seen[key], "duplicate candidate %s", c.Name)
		seen[key] = true
	}
	require.NotEmpty(t, res.Candidates)
	top := res.Candidates[0]
	assert.Equal(t, "Sarah Rana", top.Name)
	assert.Equal(t, candidate.LeadershipPage, top.Source)
	assert.InDelta(t, 0.78, top.Confidence, 1e-9)
}

func TestAnalyzeDropsLowConfidenceCandidates(t *testing.T) {
	e := newTestEngine(t, Options{Recognizer: stubRecognizer{mentions: []extract.Mention{
		{Name: "Mark Lee", Context: "Mark Lee"},
	}}})
	res := e.Analyze("Acme Corp", withText(candidate.CompanyTreasurySearch, "Mark Lee"))

	assert.Equal(t, scoring.StatusNoneFound, res.Status)
	assert.Empty(t, res.Candidates)
}

func TestAnalyzeHonoursMinConfidenceOverride(t *testing.T) {
	w := scoring.DefaultWeights()
	w.Thresholds.MinConfidence = 0.10
	e := newTestEngine(t, Options{
		Weights: &w,
		Recognizer: stubRecognizer{mentions: []extract.Mention{
			{Name: "Mark Lee", Context: "Mark Lee"},
		}},
	})
	res := e.Analyze("Acme Corp", withText(candidate.CompanyTreasurySearch, "Mark Lee"))

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, scoring.StatusUncertain, res.Status)
	assert.Contains(t, res.Candidates[0].Issues, candidate.SearchResultUncertainty)
}

func TestAnalyzeCapturesLinkedInURL(t *testing.T) {
	e := newTestEngine(t, Options{})
	res := e.Analyze("Acme Corp", withText(candidate.LeadershipPage,
		"Sarah Rana, Vice President and Treasurer https://www.linkedin.com/in/sarah-rana"))

	require.NotNil(t, res.Primary)
	assert.Equal(t, "https://www.linkedin.com/in/sarah-rana", res.Primary.LinkedInURL)
}

func TestDetectUsesSource(t *testing.T) {
	src := &staticSource{blobs: withText(candidate.LeadershipPage, "Sarah Rana, Vice President and Treasurer")}
	e := newTestEngine(t, Options{Source: src})

	res, err := e.Detect(context.Background(), "  Acme Corp ")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "Acme Corp", res.Company)
	assert.Equal(t, scoring.StatusSingleConfident, res.Status)
}

func TestDetectCancelled(t *testing.T) {
	src := &staticSource{blobs: emptyBlobs()}
	e := newTestEngine(t, Options{Source: src})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Detect(ctx, "Acme Corp")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectWithoutSource(t *testing.T) {
	e := newTestEngine(t, Options{})
	_, err := e.Detect(context.Background(), "Acme Corp")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestNewEngineRejectsInvalidWeights(t *testing.T) {
	w := scoring.DefaultWeights()
	w.Thresholds.High = 0.2
	_, err := NewEngine(Options{Weights: &w})
	assert.Error(t, err)
}
