package facility

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"officer-intel/backend/internal/ai"
)

const debtNote = "On March 1, 2023, the Company entered into a credit agreement with JPMorgan Chase Bank, N.A., as administrative agent, " +
	"providing for a $1.5 billion revolving credit facility maturing in December 2026. Borrowings bear interest at SOFR + 1.25%.\n" +
	"The Company has outstanding $750 million of 5.25% Senior Notes due 2029.\n" +
	"Our $500 million term loan was repaid in full and terminated in 2024.\n" +
	"The Company guarantees the 4.00% notes due 2031 of its subsidiary.\n" +
	"Operating leases are discussed in Note 8."

func TestExtractSectionPrefersNoteHeader(t *testing.T) {
	text := "PART I\nNote 6. Revenue\nRevenue text.\nNote 7. Debt\nDebt body line.\nNote 8. Leases\nLease body."
	assert.Equal(t, "Note 7. Debt\nDebt body line.", ExtractSection(text, DebtKeywords))
}

func TestExtractSectionSkipsTableOfContents(t *testing.T) {
	text := "TABLE OF CONTENTS\nLiquidity and Capital Resources\nLegal Proceedings\nResults\n" +
		"Liquidity and Capital Resources\nWe had $2.1 billion of cash.\n" +
		"Item 3. Quantitative and Qualitative Disclosures\nMarket risk."
	assert.Equal(t, "Liquidity and Capital Resources\nWe had $2.1 billion of cash.", ExtractSection(text, LiquidityKeywords))
}

func TestExtractSectionMissing(t *testing.T) {
	assert.Empty(t, ExtractSection("Nothing relevant here.", DebtKeywords))
	assert.Empty(t, ExtractSection("", DebtKeywords))
	assert.Empty(t, ExtractSection("Note 7. Debt\nbody", nil))
}

func TestFacilitiesPipeline(t *testing.T) {
	found := NewExtractor(DefaultWeights()).Facilities(debtNote)
	require.Len(t, found, 3)

	agreement, revolver, notes := found[0], found[1], found[2]

	assert.Equal(t, KindCreditAgreement, agreement.Kind)
	assert.Equal(t, KindRevolver, revolver.Kind)
	assert.Equal(t, "revolving credit facility", revolver.Name)
	assert.Equal(t, 1.5e9, revolver.MaxAmount)
	assert.Equal(t, "USD", revolver.Currency)
	assert.Equal(t, "SOFR + 1.25%", revolver.InterestRate)
	assert.Equal(t, "12/2026", revolver.Maturity)
	assert.Equal(t, 2026, revolver.MaturityYear)
	assert.Equal(t, "JPMorgan Chase Bank, N.A.", revolver.LeadEntity)
	assert.InDelta(t, 0.85, revolver.Confidence, 1e-9)

	assert.Equal(t, KindNotes, notes.Kind)
	assert.Equal(t, "5.25% Senior Notes due 2029", notes.Name)
	assert.Equal(t, 750e6, notes.MaxAmount)
	assert.Equal(t, "5.25%", notes.InterestRate)
	assert.Equal(t, "2029", notes.Maturity)
	assert.Empty(t, notes.LeadEntity)

	for _, f := range found {
		assert.NotContains(t, strings.ToLower(f.Name), "term loan", "terminated loan must be dropped")
		assert.NotContains(t, f.Name, "2031", "guaranteed notes must be excluded")
	}
}

func TestGuaranteedOwnNotesAreKept(t *testing.T) {
	text := "Our 5.25% Senior Notes due 2030 are guaranteed by our domestic subsidiaries. " +
		"The Revolving Credit Facility with Citibank, N.A., as administrative agent, provides $750 million of borrowing capacity.\n" +
		"The Company also guarantees the 3.00% notes due 2027 of an unconsolidated affiliate."

	res := NewExtractor(DefaultWeights()).Extract(text)

	require.Len(t, res.Notes, 1)
	assert.Equal(t, "5.25% Senior Notes due 2030", res.Notes[0].Name)
	require.Len(t, res.Facilities, 1)
	assert.Equal(t, KindRevolver, res.Facilities[0].Kind)
}

func TestExcludedLooksOnlyAtSpanAndLead(t *testing.T) {
	for text, want := range map[string]bool{
		"The Company guarantees the 4.00% notes due 2031.":        true,
		"Payables on the 4.00% notes due 2031 are settled daily.": true,
		"The 4.00% notes due 2031 are guaranteed by the parent.":  false,
		"The 4.00% notes due 2031 are secured by leases.":         false,
	} {
		ms := findMentions(text)
		require.Len(t, ms, 1, text)
		assert.Equal(t, want, excluded(text, ms[0]), text)
	}
}

func TestExtractSplitsAndUsesSections(t *testing.T) {
	doc := "PART I\nNote 6. Revenue\nRevenue text.\nNote 7. Debt\n" + debtNote +
		"\nNote 9. Subsequent Events\nThe Company issued $300 million of 6.00% Senior Notes due 2034 with Citibank."

	res := NewExtractor(DefaultWeights()).Extract(doc)

	require.Len(t, res.Facilities, 2)
	assert.Equal(t, "credit agreement", res.Facilities[0].Name)
	assert.Equal(t, "revolving credit facility", res.Facilities[1].Name)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "5.25% Senior Notes due 2029", res.Notes[0].Name)
}

func TestExtractFallsBackToWholeDocument(t *testing.T) {
	res := NewExtractor(DefaultWeights()).Extract("We issued $400 million of 3.10% Senior Notes due 2030.")
	assert.Empty(t, res.Facilities)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, 2030, res.Notes[0].MaturityYear)
}

func TestDedupeFillsMissingFields(t *testing.T) {
	merged := Dedupe([]Facility{
		{Name: "1. Revolving Credit Facility", Kind: KindRevolver, MaxAmount: 132e6, Currency: "USD", Confidence: 0.45},
		{Name: "revolving  credit facility", Kind: KindRevolver, InterestRate: "SOFR + 1.61%", Maturity: "12/2026", MaturityYear: 2026, LeadEntity: "Citibank", Confidence: 0.6},
		{Name: "Term Loan A", Kind: KindTermLoan, Confidence: 0.5},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "Revolving Credit Facility", merged[0].Name)
	assert.Equal(t, 132e6, merged[0].MaxAmount)
	assert.Equal(t, "SOFR + 1.61%", merged[0].InterestRate)
	assert.Equal(t, 2026, merged[0].MaturityYear)
	assert.Equal(t, "Citibank", merged[0].LeadEntity)
	assert.Equal(t, 0.6, merged[0].Confidence)
}

func TestSplitOrdersByMaturityThenName(t *testing.T) {
	res := Split([]Facility{
		{Name: "Term Loan B", Kind: KindTermLoan, MaturityYear: 2028},
		{Name: "Revolver", Kind: KindRevolver},
		{Name: "Term Loan A", Kind: KindTermLoan, MaturityYear: 2028},
		{Name: "2.90% Senior Notes due 2026", Kind: KindNotes, MaturityYear: 2026},
		{Name: "Debentures", Kind: KindDebentures, MaturityYear: 2025},
	})

	var facilities, notes []string
	for _, f := range res.Facilities {
		facilities = append(facilities, f.Name)
	}
	for _, f := range res.Notes {
		notes = append(notes, f.Name)
	}
	assert.Equal(t, []string{"Term Loan A", "Term Loan B", "Revolver"}, facilities)
	assert.Equal(t, []string{"Debentures", "2.90% Senior Notes due 2026"}, notes)

	empty := Split(nil)
	assert.NotNil(t, empty.Facilities)
	assert.NotNil(t, empty.Notes)
}

func TestFindAmountsWithCurrencyCodes(t *testing.T) {
	amounts := findAmounts("CHF 500 million of 1.25% notes, $750 million revolver and €1.2 billion term loan, plus chf250M.")
	require.Len(t, amounts, 4)
	assert.Equal(t, "CHF", amounts[0].currency)
	assert.Equal(t, 500e6, amounts[0].value)
	assert.Equal(t, "USD", amounts[1].currency)
	assert.Equal(t, "EUR", amounts[2].currency)
	assert.Equal(t, 1.2e9, amounts[2].value)
	assert.Equal(t, "CHF", amounts[3].currency)
	assert.Equal(t, 250e6, amounts[3].value)

	res := NewExtractor(DefaultWeights()).Extract("The Company issued CHF 500 million of 1.25% Senior Notes due 2031.")
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "CHF", res.Notes[0].Currency)
	assert.Equal(t, "CHF 500M 1.25% Senior Notes due 2031 @ 1.25% – mat. 2031", Summary(res.Notes[0]))
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		in   Facility
		want string
	}{
		{
			"full",
			Facility{Name: "Revolver", MaxAmount: 132e6, Currency: "USD", InterestRate: "SOFR + 1.61%", Maturity: "12/2026", LeadEntity: "Citibank"},
			"$132M Revolver @ SOFR + 1.61% – mat. 12/2026 (Citibank)",
		},
		{"euro billions", Facility{Name: "Senior Notes", MaxAmount: 1.5e9, Currency: "EUR"}, "€1.5B Senior Notes"},
		{"iso currency", Facility{Name: "Senior Notes", MaxAmount: 500e6, Currency: "CHF"}, "CHF 500M Senior Notes"},
		{"name only", Facility{Name: "Commercial Paper Program"}, "Commercial Paper Program"},
		{"maturity without amount", Facility{Name: "Term Loan", Maturity: "2028"}, "Term Loan – mat. 2028"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Summary(tc.in))
		})
	}
}

type fakeCompleter struct {
	enabled bool
	reply   string
	err     error
	prompt  string
}

func (f *fakeCompleter) Enabled() bool { return f.enabled }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestFormatWithCompleter(t *testing.T) {
	res := Result{Facilities: []Facility{{Name: "Revolver", MaxAmount: 132e6, Currency: "USD"}}}

	c := &fakeCompleter{enabled: true, reply: "  Acme has a $132M revolver.  "}
	out, err := FormatWithCompleter(context.Background(), c, res)
	require.NoError(t, err)
	assert.Equal(t, "Acme has a $132M revolver.", out)
	assert.Contains(t, c.prompt, "$132M Revolver")

	_, err = FormatWithCompleter(context.Background(), nil, res)
	assert.ErrorIs(t, err, ai.ErrDisabled)

	_, err = FormatWithCompleter(context.Background(), &fakeCompleter{enabled: false}, res)
	assert.ErrorIs(t, err, ai.ErrDisabled)

	out, err = FormatWithCompleter(context.Background(), c, Result{})
	require.NoError(t, err)
	assert.Equal(t, "No credit facilities disclosed.", out)

	failing := &fakeCompleter{enabled: true, err: errors.New("openai status 500")}
	_, err = FormatWithCompleter(context.Background(), failing, res)
	assert.Error(t, err)
}

func TestLoadWeights(t *testing.T) {
	w, err := LoadWeights("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), w)

	path := filepath.Join(t.TempDir(), "facility.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lender: 0.2\nmin_confidence: 0.5\n"), 0o600))
	w, err = LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, w.Lender)
	assert.Equal(t, 0.5, w.MinConfidence)
	assert.Equal(t, DefaultWeights().Amount, w.Amount)

	require.NoError(t, os.WriteFile(path, []byte("min_confidence: 3\n"), 0o600))
	_, err = LoadWeights(path)
	assert.Error(t, err)

	_, err = LoadWeights(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
