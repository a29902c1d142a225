package email

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"officer-intel/backend/internal/ai"
	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/scoring"
	"officer-intel/backend/internal/search"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FirstDotLast, "jose.nunez@acme.com"},
		{FirstLast, "josenunez@acme.com"},
		{InitialDotLast, "j.nunez@acme.com"},
		{InitialLast, "jnunez@acme.com"},
		{FirstOnly, "jose@acme.com"},
		{LastOnly, "nunez@acme.com"},
		{FirstUnderLast, "jose_nunez@acme.com"},
		{FirstDotInitial, "jose.n@acme.com"},
		{InitialInitial, "jn@acme.com"},
	}
	for _, tc := range tests {
		t.Run(string(tc.format), func(t *testing.T) {
			got, err := Build("José A. Núñez Jr.", "https://www.acme.com/about", tc.format)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := Build("Madonna", "acme.com", FirstDotLast)
	assert.ErrorIs(t, err, ErrIncompleteName)

	got, err := Build("Madonna", "@acme.com", FirstOnly)
	require.NoError(t, err)
	assert.Equal(t, "madonna@acme.com", got)

	_, err = Build("Jane Doe", "", FirstDotLast)
	assert.Error(t, err)

	_, err = Build("Jane Doe", "acme.com", Format("weird"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat(" First.Last ")
	assert.True(t, ok)
	assert.Equal(t, FirstDotLast, f)

	f, ok = ParseFormat("first_initiallast")
	assert.True(t, ok)
	assert.Equal(t, InitialLast, f)

	_, ok = ParseFormat("lastfirst")
	assert.False(t, ok)
}

func TestExtractAddresses(t *testing.T) {
	text := "Contact ir@acme.com or Mark.Lee@acme.com. Sarah: srana@acme.com, mark.lee@acme.com; other: bob@example.com"
	assert.Equal(t, []string{"mark.lee@acme.com", "srana@acme.com"}, ExtractAddresses(text, "acme.com"))
	assert.Len(t, ExtractAddresses(text, ""), 3)
}

func TestInferFormat(t *testing.T) {
	tests := []struct {
		name    string
		samples []string
		known   []string
		want    Format
		ok      bool
	}{
		{"matched names vote", []string{"srana@acme.com", "mlee@acme.com", "priya.shah@acme.com"}, []string{"Sarah Rana", "Mark Lee", "Priya Shah"}, InitialLast, true},
		{"single match", []string{"jane_doe@acme.com"}, []string{"Jane Doe"}, FirstUnderLast, true},
		{"shape dotted", []string{"kim.daniel@acme.com"}, nil, FirstDotLast, true},
		{"shape initial dot", []string{"d.kim@acme.com"}, nil, InitialDotLast, true},
		{"shape underscore", []string{"daniel_kim@acme.com"}, nil, FirstUnderLast, true},
		{"generic only", []string{"info@acme.com", "ir@acme.com"}, []string{"Mark Lee"}, "", false},
		{"no samples", nil, []string{"Mark Lee"}, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := InferFormat(tc.samples, tc.known)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

type fakeCompleter struct {
	enabled bool
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Enabled() bool { return f.enabled }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestResolverPrefersSamples(t *testing.T) {
	completer := &fakeCompleter{enabled: true, reply: "flast"}
	res, err := NewResolver(completer).Resolve(context.Background(), "Acme Corp", "acme.com",
		[]string{"mark.lee@acme.com"}, "Mark Lee")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Format: FirstDotLast, Source: SourceSamples}, res)
	assert.Empty(t, completer.prompts)
}

func TestResolverFallsBackToCompleter(t *testing.T) {
	completer := &fakeCompleter{enabled: true, reply: "The format is f.last."}
	res, err := NewResolver(completer).Resolve(context.Background(), "Acme Corp", "acme.com", nil)
	require.NoError(t, err)
	assert.Equal(t, Resolution{Format: InitialDotLast, Source: SourceCompleter}, res)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "Acme Corp")
	assert.Contains(t, completer.prompts[0], "acme.com")
}

func TestResolverDefaults(t *testing.T) {
	tests := []struct {
		name      string
		completer ai.Completer
	}{
		{"no completer", nil},
		{"disabled", &fakeCompleter{enabled: false, reply: "flast"}},
		{"disabled error", &fakeCompleter{enabled: true, err: ai.ErrDisabled}},
		{"failure", &fakeCompleter{enabled: true, err: errors.New("openai status 500")}},
		{"unparseable", &fakeCompleter{enabled: true, reply: "I am not sure."}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := NewResolver(tc.completer).Resolve(context.Background(), "Acme Corp", "acme.com", nil)
			require.NoError(t, err)
			assert.Equal(t, Resolution{Format: DefaultFormat, Source: SourceDefault}, res)
		})
	}
}

func TestResolverReturnsCancellation(t *testing.T) {
	completer := &fakeCompleter{enabled: true, err: context.Canceled}
	_, err := NewResolver(completer).Resolve(context.Background(), "Acme Corp", "acme.com", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlan(t *testing.T) {
	primary := candidate.Candidate{Name: "Sarah Rana", Confidence: 0.78}
	confident := scoring.DetectionResult{
		Company:        "Acme Corp",
		Status:         scoring.StatusSingleConfident,
		Primary:        &primary,
		PrimaryName:    "Sarah Rana",
		EmailStrategy:  scoring.UseTreasurer,
		Recommendation: "High confidence: Sarah Rana is the treasurer",
	}
	plan := Plan(confident, "acme.com", InitialLast, Officers{CFO: "Mark Lee"})
	assert.Equal(t, "srana@acme.com", plan.TreasurerEmail)
	assert.Equal(t, "Sarah Rana", plan.TreasurerName)
	assert.Equal(t, TreasurerProvided, plan.TreasurerStatus)
	assert.Equal(t, "mlee@acme.com", plan.CFOEmail)
	assert.Empty(t, plan.CEOEmail)
	assert.Empty(t, plan.FallbackReason)

	combo := scoring.DetectionResult{
		Company:        "Acme Corp",
		Status:         scoring.StatusCombo,
		PrimaryName:    scoring.SameAsCFO,
		EmailStrategy:  scoring.UseCFOOnly,
		Recommendation: "CFO handles treasurer duties",
	}
	plan = Plan(combo, "acme.com", "", Officers{CFO: " Mark Lee ", CEO: "Ana Ortiz"})
	assert.Empty(t, plan.TreasurerEmail)
	assert.Equal(t, TreasurerSkipped, plan.TreasurerStatus)
	assert.Equal(t, "Mark Lee", plan.CFOName)
	assert.Equal(t, "mark.lee@acme.com", plan.CFOEmail)
	assert.Equal(t, "ana.ortiz@acme.com", plan.CEOEmail)
	assert.Equal(t, DefaultFormat, plan.Format)
	assert.Equal(t, "CFO handles treasurer duties", plan.FallbackReason)

	single := primary
	single.Name = "Cher"
	odd := confident
	odd.Primary = &single
	plan = Plan(odd, "acme.com", FirstDotLast, Officers{})
	assert.Empty(t, plan.TreasurerEmail)
	assert.Empty(t, plan.CFOEmail)
	assert.Equal(t, TreasurerSkipped, plan.TreasurerStatus)
	assert.Contains(t, plan.FallbackReason, "could not build treasurer address")
}

func TestPlanFormatOnlyIsNotApplicable(t *testing.T) {
	res := scoring.DetectionResult{
		Company:        "Acme Corp",
		Status:         scoring.StatusNoneFound,
		EmailStrategy:  scoring.ProvideFormatOnly,
		Recommendation: "No treasurer found",
	}
	plan := Plan(res, "acme.com", FirstDotLast, Officers{CFO: "Mark Lee"})
	assert.Equal(t, TreasurerNotApplicable, plan.TreasurerStatus)
	assert.Equal(t, "mark.lee@acme.com", plan.CFOEmail)
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results map[string][]search.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, max int) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func TestFindDomain(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"Acme Corp email format": {
			{Title: "Acme Corp Email Format", Snippet: "Reach them at jdoe@gmail.com"},
		},
		"Acme Corp investor relations pr email": {
			{Snippet: "Investor contact: ir@investors.acme.com."},
		},
	}}
	domain, err := NewDiscovery(searcher, DiscoveryConfig{}).FindDomain(context.Background(), " Acme Corp ")
	require.NoError(t, err)
	assert.Equal(t, "acme.com", domain)
	assert.Len(t, searcher.queries, 2)

	domain, err = NewDiscovery(&fakeSearcher{}, DiscoveryConfig{}).FindDomain(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Empty(t, domain)

	domain, err = NewDiscovery(nil, DiscoveryConfig{}).FindDomain(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Empty(t, domain)
}

func TestHarvestSamplesPrefersOfficersInOrder(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]search.Result{
		`Acme Corp "acme.com" Ana Ortiz email`: {
			{Snippet: "Ana Ortiz, CEO (aortiz@acme.com); press@acme.com; firstname.lastname@acme.com"},
		},
		`Acme Corp "acme.com" email`: {
			{Snippet: "bob.smith@acme.com"},
		},
	}}
	d := NewDiscovery(searcher, DiscoveryConfig{})

	samples, err := d.HarvestSamples(context.Background(), "Acme Corp", "acme.com", "Mark Lee", "Ana Ortiz", "same")
	require.NoError(t, err)
	assert.Equal(t, []string{"aortiz@acme.com"}, samples)
	assert.Equal(t, []string{
		`Acme Corp "acme.com" Mark Lee email`,
		`Acme Corp "acme.com" Ana Ortiz email`,
	}, searcher.queries)

	samples, err = d.HarvestSamples(context.Background(), "Acme Corp", "acme.com", "", "Nobody Known")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob.smith@acme.com"}, samples)
}

func TestHarvestSamplesSearchErrors(t *testing.T) {
	d := NewDiscovery(&fakeSearcher{err: errors.New("quota exceeded")}, DiscoveryConfig{})
	samples, err := d.HarvestSamples(context.Background(), "Acme Corp", "acme.com", "Mark Lee")
	require.NoError(t, err)
	assert.Empty(t, samples)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d = NewDiscovery(&fakeSearcher{err: context.Canceled}, DiscoveryConfig{})
	_, err = d.HarvestSamples(ctx, "Acme Corp", "acme.com", "Mark Lee")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = d.FindDomain(ctx, "Acme Corp")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsPlaceholder(t *testing.T) {
	for addr, want := range map[string]bool{
		"firstname.lastname@acme.com": true,
		"first.last@acme.com":         true,
		"test@acme.com":               true,
		"mark.lee@acme.com":           false,
		"nametag@acme.com":            false,
	} {
		assert.Equal(t, want, isPlaceholder(addr), addr)
	}
}
