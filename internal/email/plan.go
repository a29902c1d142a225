package email

import (
	"strings"

	"officer-intel/backend/internal/scoring"
)

// TreasurerStatus explains whether the plan carries a treasurer address.
type TreasurerStatus string

const (
	TreasurerProvided      TreasurerStatus = "provided"
	TreasurerSkipped       TreasurerStatus = "skipped_due_to_uncertainty"
	TreasurerNotApplicable TreasurerStatus = "not_applicable"
)

// Officers names the finance officers an outreach plan can also address.
type Officers struct {
	CFO string `json:"cfo_name,omitempty"`
	CEO string `json:"ceo_name,omitempty"`
}

// Addresses is the outreach plan derived from a detection result.
type Addresses struct {
	Company         string                `json:"company"`
	Domain          string                `json:"domain"`
	Format          Format                `json:"format"`
	Strategy        scoring.EmailStrategy `json:"strategy"`
	CFOName         string                `json:"cfo_name,omitempty"`
	CFOEmail        string                `json:"cfo_email,omitempty"`
	CEOName         string                `json:"ceo_name,omitempty"`
	CEOEmail        string                `json:"ceo_email,omitempty"`
	TreasurerName   string                `json:"treasurer_name,omitempty"`
	TreasurerEmail  string                `json:"treasurer_email,omitempty"`
	TreasurerStatus TreasurerStatus       `json:"treasurer_status"`
	FallbackReason  string                `json:"fallback_reason,omitempty"`
}

// Plan turns a detection result into addresses. Officer addresses are built
// for every named officer. A treasurer address is only built when the result
// recommends contacting the treasurer and names one; a CFO-only result marks
// the treasurer as skipped.
func Plan(res scoring.DetectionResult, domain string, f Format, officers Officers) Addresses {
	if f == "" {
		f = DefaultFormat
	}
	guidance := scoring.Guidance(res)
	out := Addresses{
		Company:         res.Company,
		Domain:          NormalizeDomain(domain),
		Format:          f,
		Strategy:        guidance.Strategy,
		CFOName:         strings.TrimSpace(officers.CFO),
		CEOName:         strings.TrimSpace(officers.CEO),
		TreasurerStatus: TreasurerNotApplicable,
	}
	if out.CFOName != "" {
		out.CFOEmail, _ = Build(out.CFOName, out.Domain, f)
	}
	if out.CEOName != "" {
		out.CEOEmail, _ = Build(out.CEOName, out.Domain, f)
	}

	if guidance.Strategy != scoring.UseTreasurer || guidance.TreasurerName == "" {
		if guidance.Strategy == scoring.UseCFOOnly {
			out.TreasurerStatus = TreasurerSkipped
		}
		out.FallbackReason = guidance.FallbackReason
		return out
	}

	addr, err := Build(guidance.TreasurerName, out.Domain, f)
	if err != nil {
		out.TreasurerStatus = TreasurerSkipped
		out.FallbackReason = "could not build treasurer address: " + err.Error()
		return out
	}
	out.TreasurerName = guidance.TreasurerName
	out.TreasurerEmail = addr
	out.TreasurerStatus = TreasurerProvided
	return out
}
