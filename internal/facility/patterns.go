package facility

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a debt instrument.
type Kind string

const (
	KindRevolver        Kind = "revolver"
	KindTermLoan        Kind = "term_loan"
	KindNotes           Kind = "notes"
	KindConvertible     Kind = "convertible_notes"
	KindDebentures      Kind = "debentures"
	KindCreditAgreement Kind = "credit_agreement"
	KindCommercialPaper Kind = "commercial_paper"
)

// IsNote reports whether instruments of this kind are reported as notes rather
// than facilities.
func (k Kind) IsNote() bool {
	switch k {
	case KindNotes, KindConvertible, KindDebentures:
		return true
	}
	return false
}

type mentionRule struct {
	kind    Kind
	pattern *regexp.Regexp
}

const pct = `\d{1,2}(?:\.\d{1,4})?%`

var mentionRules = []mentionRule{
	{KindConvertible, regexp.MustCompile(`(?i)\b(?:` + pct + `[ \t]+)?convertible[ \t]+(?:senior[ \t]+)?(?:notes|debentures)(?:[ \t]+due[ \t]+\d{4})?`)},
	{KindNotes, regexp.MustCompile(`(?i)\b(?:` + pct + `[ \t]+)?senior[ \t]+(?:secured[ \t]+|unsecured[ \t]+|subordinated[ \t]+)?notes(?:,[ \t]+series[ \t]+[A-Z])?[ \t]+due[ \t]+\d{4}`)},
	{KindNotes, regexp.MustCompile(`(?i)\b` + pct + `[ \t]+(?:notes|bonds)[ \t]+due[ \t]+\d{4}`)},
	{KindDebentures, regexp.MustCompile(`(?i)\b(?:` + pct + `[ \t]+)?debentures(?:[ \t]+due[ \t]+\d{4})?`)},
	{KindRevolver, regexp.MustCompile(`(?i)\b(?:(?:senior[ \t]+)?(?:secured|unsecured)[ \t]+)?(?:revolving[ \t]+credit[ \t]+(?:facility|agreement)|revolver)\b`)},
	{KindTermLoan, regexp.MustCompile(`(?i)\b(?:(?:\d{4}|incremental|delayed[ \t-]draw)[ \t]+)?term[ \t]+loan(?:[ \t]+[AB]\b)?(?:[ \t]+facility)?`)},
	{KindCommercialPaper, regexp.MustCompile(`(?i)\bcommercial[ \t]+paper[ \t]+program\b`)},
	{KindCreditAgreement, regexp.MustCompile(`(?i)\b(?:amended[ \t]+and[ \t]+restated[ \t]+)?credit[ \t]+agreement\b`)},
}

var (
	amountExpr = regexp.MustCompile(`(?i)([$€£]|\b(?:USD|EUR|GBP|CHF|JPY|CAD|AUD|SEK|NOK|DKK|CNY|HKD|SGD))[ \t]?(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)[ \t]*(billion|million|thousand|bn|mm|[BMK])?\b`)

	floatingRate = regexp.MustCompile(`(?i)\b(?:term[ \t]+)?(?:SOFR|LIBOR|EURIBOR|SONIA|base[ \t]+rate|prime[ \t]+rate)[ \t]*(?:\+|plus)[ \t]*\d+(?:\.\d+)?[ \t]*(?:%|bps|basis[ \t]+points)(?:[ \t]*(?:-|–|to)[ \t]*\d+(?:\.\d+)?[ \t]*(?:%|bps|basis[ \t]+points))?`)
	fixedRate    = regexp.MustCompile(`\b` + pct)
	spreadRate   = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?[ \t]*(?:bps|basis[ \t]+points)`)

	maturityExpr = regexp.MustCompile(`(?i)\b(?:due|matur(?:es|ing|ity)(?:[ \t]+date)?(?:[ \t]+(?:of|in|on))?|expir(?:es|ing)(?:[ \t]+(?:in|on))?)[ \t]+(?:(january|february|march|april|may|june|july|august|september|october|november|december)[ \t]+(?:\d{1,2},[ \t]+)?)?((?:19|20)\d{2})\b`)

	agentExpr = regexp.MustCompile(`([A-Z][\w&.'\-]*(?:[ \t]+(?:of[ \t]+|and[ \t]+|&[ \t]+)?[A-Z][\w&.'\-]*)*(?:,[ \t]+N\.A\.)?),?[ \t]+as[ \t]+(?:the[ \t]+)?(?:administrative|collateral)[ \t]+agent`)

	exclusionExpr  = regexp.MustCompile(`(?i)\b(?:guarantee[sd]?|guarantors?|payables?|leases?|letters?[ \t]+of[ \t]+credit|derivatives?|swaps?)\b`)
	exclusionLead  = regexp.MustCompile(`(?i)\b(?:guarantee[sd]?|guarantors?|payables?|leases?|letters?[ \t]+of[ \t]+credit|derivatives?|swaps?)(?:[ \t]+(?:of|on|for|the|our|its|their|a|an|such|certain))*[ \t]*$`)
	terminatedExpr = regexp.MustCompile(`(?i)\b(?:terminated|repaid[ \t]+in[ \t]+full|extinguished|redeemed)\b`)
	spaceRun       = regexp.MustCompile(`\s+`)
	leadingNumber  = regexp.MustCompile(`^\s*(?:\d+[.)]|\([a-z0-9]+\)|[-*•])\s*`)
)

var knownLenders = []string{
	"JPMorgan Chase", "JPMorgan", "Citibank", "Citigroup", "Bank of America", "Wells Fargo",
	"Goldman Sachs", "Morgan Stanley", "Barclays", "HSBC", "MUFG", "Mizuho", "BNP Paribas",
	"Deutsche Bank", "U.S. Bank", "PNC", "Truist", "TD Bank", "Royal Bank of Canada", "SMBC",
}

var months = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

var currencies = map[string]string{"$": "USD", "€": "EUR", "£": "GBP"}

var currencySymbols = map[string]string{"USD": "$", "EUR": "€", "GBP": "£"}

type amount struct {
	value    float64
	currency string
	start    int
	end      int
}

func findAmounts(text string) []amount {
	var out []amount
	for _, m := range amountExpr.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.ReplaceAll(text[m[4]:m[5]], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			continue
		}
		if m[6] >= 0 {
			switch strings.ToLower(text[m[6]:m[7]]) {
			case "billion", "bn", "b":
				v *= 1e9
			case "million", "mm", "m":
				v *= 1e6
			case "thousand", "k":
				v *= 1e3
			}
		}
		currency := strings.ToUpper(text[m[2]:m[3]])
		if iso, ok := currencies[currency]; ok {
			currency = iso
		}
		out = append(out, amount{value: v, currency: currency, start: m[0], end: m[1]})
	}
	return out
}

type maturity struct {
	label string
	year  int
}

func parseMaturity(text string) (maturity, bool) {
	m := maturityExpr.FindStringSubmatch(text)
	if m == nil {
		return maturity{}, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return maturity{}, false
	}
	if month, ok := months[strings.ToLower(m[1])]; ok {
		return maturity{label: strconv.Itoa(month) + "/" + m[2], year: year}, true
	}
	return maturity{label: m[2], year: year}, true
}

func findRate(text string) string {
	for _, re := range []*regexp.Regexp{floatingRate, fixedRate, spreadRate} {
		if m := re.FindString(text); m != "" {
			return spaceRun.ReplaceAllString(strings.TrimSpace(m), " ")
		}
	}
	return ""
}

func findLender(text string) string {
	if m := agentExpr.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, lender := range knownLenders {
		if strings.Contains(text, lender) {
			return lender
		}
	}
	return ""
}
