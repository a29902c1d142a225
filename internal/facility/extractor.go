package facility

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Facility is one debt instrument found in a filing.
type Facility struct {
	Name         string  `json:"name"`
	Kind         Kind    `json:"kind"`
	MaxAmount    float64 `json:"max_amount,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	InterestRate string  `json:"interest_rate,omitempty"`
	Maturity     string  `json:"maturity,omitempty"`
	MaturityYear int     `json:"maturity_year,omitempty"`
	LeadEntity   string  `json:"lead_entity,omitempty"`
	SourceText   string  `json:"source_text"`
	Confidence   float64 `json:"confidence"`
}

// Result splits instruments into bank facilities and notes.
type Result struct {
	Facilities []Facility `json:"facilities"`
	Notes      []Facility `json:"notes"`
}

// Weights calibrates facility scoring.
type Weights struct {
	Base          float64 `yaml:"base" json:"base"`
	Amount        float64 `yaml:"amount" json:"amount"`
	Rate          float64 `yaml:"rate" json:"rate"`
	Maturity      float64 `yaml:"maturity" json:"maturity"`
	Lender        float64 `yaml:"lender" json:"lender"`
	Specific      float64 `yaml:"specific" json:"specific"`
	Terminated    float64 `yaml:"terminated" json:"terminated"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

// DefaultWeights returns the stock facility calibration.
func DefaultWeights() Weights {
	return Weights{
		Base:          0.25,
		Amount:        0.20,
		Rate:          0.15,
		Maturity:      0.15,
		Lender:        0.10,
		Specific:      0.05,
		Terminated:    0.40,
		MinConfidence: 0.30,
	}
}

// LoadWeights overlays a YAML file on DefaultWeights. An empty path returns
// the defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if strings.TrimSpace(path) == "" {
		return w, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Weights{}, fmt.Errorf("read facility config: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("unmarshal facility config: %w", err)
	}
	if w.MinConfidence < 0 || w.MinConfidence > 1 {
		return Weights{}, fmt.Errorf("facility config %s: min_confidence %.2f out of range", path, w.MinConfidence)
	}
	return w, nil
}

const (
	windowBefore = 200
	windowAfter  = 300
	nearAmount   = 160
	exclusionGap = 40
	maxSource    = 300
)

// Extractor runs the two-pass facility pipeline.
type Extractor struct {
	weights Weights
}

// NewExtractor builds an extractor with the given weights.
func NewExtractor(weights Weights) *Extractor {
	return &Extractor{weights: weights}
}

// Extract reads the debt and liquidity sections of a filing, falling back to
// the whole document when neither section is found.
func (e *Extractor) Extract(document string) Result {
	debt, liquidity := Sections(document)
	scan := strings.TrimSpace(debt + "\n\n" + liquidity)
	if scan == "" {
		scan = document
	}
	return Split(e.Facilities(scan))
}

// Facilities finds, enriches, validates, scores and deduplicates instruments in
// text. The result keeps first-seen order.
func (e *Extractor) Facilities(text string) []Facility {
	var found []Facility
	for _, m := range findMentions(text) {
		if excluded(text, m) {
			logrus.WithField("mention", m.name).Debug("skipping non-debt instrument")
			continue
		}
		f := e.enrich(text, m)
		if f.Confidence < e.weights.MinConfidence {
			continue
		}
		found = append(found, f)
	}
	return Dedupe(found)
}

type mention struct {
	kind  Kind
	name  string
	start int
	end   int
}

// findMentions applies every rule and keeps the longest non-overlapping spans.
func findMentions(text string) []mention {
	var all []mention
	for _, r := range mentionRules {
		for _, loc := range r.pattern.FindAllStringIndex(text, -1) {
			all = append(all, mention{
				kind:  r.kind,
				name:  spaceRun.ReplaceAllString(strings.TrimSpace(text[loc[0]:loc[1]]), " "),
				start: loc[0],
				end:   loc[1],
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end-all[i].start > all[j].end-all[j].start
	})
	out := all[:0]
	lastEnd := -1
	for _, m := range all {
		if m.start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.end
	}
	return out
}

// excluded reports whether the mention names a non-debt instrument: the
// exclusion word is part of the span or directly governs it ("guarantees the
// 4.00% notes", "operating lease"). What follows the mention is ignored.
func excluded(text string, m mention) bool {
	if exclusionExpr.MatchString(m.name) {
		return true
	}
	lo := clampIndex(text, m.start-exclusionGap)
	return exclusionLead.MatchString(text[lo:m.start])
}

func (e *Extractor) enrich(text string, m mention) Facility {
	lo, hi := paragraph(text, m.start, m.end)
	window := text[lo:hi]
	relStart, relEnd := m.start-lo, m.end-lo

	f := Facility{
		Name:       m.name,
		Kind:       m.kind,
		SourceText: excerpt(window),
	}

	if a, ok := pickAmount(findAmounts(window), relStart, relEnd); ok {
		f.MaxAmount = a.value
		f.Currency = a.currency
	}

	if rate := findRate(m.name); rate != "" {
		f.InterestRate = rate
	} else {
		f.InterestRate = findRate(window[relStart:])
		if f.InterestRate == "" {
			f.InterestRate = findRate(window)
		}
	}

	if mat, ok := parseMaturity(m.name); ok {
		f.Maturity, f.MaturityYear = mat.label, mat.year
	} else if mat, ok := parseMaturity(window[relStart:]); ok {
		f.Maturity, f.MaturityYear = mat.label, mat.year
	}

	f.LeadEntity = findLender(window)
	f.Confidence = e.score(f, window[clampIndex(window, relStart-nearAmount):clampIndex(window, relEnd+nearAmount)])
	return f
}

func (e *Extractor) score(f Facility, near string) float64 {
	w := e.weights
	score := w.Base
	if f.MaxAmount > 0 {
		score += w.Amount
	}
	if f.InterestRate != "" {
		score += w.Rate
	}
	if f.Maturity != "" {
		score += w.Maturity
	}
	if f.LeadEntity != "" {
		score += w.Lender
	}
	if strings.ContainsAny(f.Name, "0123456789") {
		score += w.Specific
	}
	if terminatedExpr.MatchString(near) {
		score -= w.Terminated
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// pickAmount prefers the largest amount close to the mention, then the nearest
// amount anywhere in the window.
func pickAmount(amounts []amount, start, end int) (amount, bool) {
	var best amount
	found := false
	for _, a := range amounts {
		if distance(a, start, end) <= nearAmount && (!found || a.value > best.value) {
			best, found = a, true
		}
	}
	if found {
		return best, true
	}
	for _, a := range amounts {
		if !found || distance(a, start, end) < distance(best, start, end) {
			best, found = a, true
		}
	}
	return best, found
}

func distance(a amount, start, end int) int {
	switch {
	case a.end <= start:
		return start - a.end
	case a.start >= end:
		return a.start - end
	}
	return 0
}

// paragraph returns the bounds of the line holding the span, clipped to a
// window around it.
func paragraph(text string, start, end int) (int, int) {
	lo := strings.LastIndexByte(text[:start], '\n') + 1
	if lo < start-windowBefore {
		lo = clampIndex(text, start-windowBefore)
	}
	hi := len(text)
	if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 {
		hi = end + nl
	}
	if hi > end+windowAfter {
		hi = clampIndex(text, end+windowAfter)
	}
	return lo, hi
}

// clampIndex bounds i to text and moves it back to a rune start.
func clampIndex(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && text[i]&0xC0 == 0x80 {
		i--
	}
	return i
}

func excerpt(s string) string {
	s = spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if len(s) <= maxSource {
		return s
	}
	return s[:clampIndex(s, maxSource)] + "..."
}

// DedupeKey strips list numbering and case so repeated mentions collapse.
func DedupeKey(name string) string {
	name = leadingNumber.ReplaceAllString(name, "")
	return strings.ToLower(spaceRun.ReplaceAllString(strings.TrimSpace(name), " "))
}

// Dedupe merges facilities sharing a DedupeKey. Empty fields are filled from
// later duplicates and the highest confidence is kept.
func Dedupe(in []Facility) []Facility {
	index := make(map[string]int)
	var out []Facility
	for _, f := range in {
		key := DedupeKey(f.Name)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			f.Name = leadingNumber.ReplaceAllString(f.Name, "")
			index[key] = len(out)
			out = append(out, f)
			continue
		}
		existing := &out[i]
		if existing.MaxAmount == 0 && f.MaxAmount > 0 {
			existing.MaxAmount, existing.Currency = f.MaxAmount, f.Currency
		}
		if existing.InterestRate == "" {
			existing.InterestRate = f.InterestRate
		}
		if existing.Maturity == "" && f.Maturity != "" {
			existing.Maturity, existing.MaturityYear = f.Maturity, f.MaturityYear
		}
		if existing.LeadEntity == "" {
			existing.LeadEntity = f.LeadEntity
		}
		if f.Confidence > existing.Confidence {
			existing.Confidence = f.Confidence
		}
	}
	return out
}

// Split separates notes from facilities. Each list is ordered by maturity year,
// unknown maturities last, then by name.
func Split(in []Facility) Result {
	res := Result{Facilities: []Facility{}, Notes: []Facility{}}
	for _, f := range in {
		if f.Kind.IsNote() {
			res.Notes = append(res.Notes, f)
		} else {
			res.Facilities = append(res.Facilities, f)
		}
	}
	sortByMaturity(res.Facilities)
	sortByMaturity(res.Notes)
	return res
}

func sortByMaturity(list []Facility) {
	year := func(f Facility) int {
		if f.MaturityYear == 0 {
			return 1 << 30
		}
		return f.MaturityYear
	}
	sort.SliceStable(list, func(i, j int) bool {
		yi, yj := year(list[i]), year(list[j])
		if yi != yj {
			return yi < yj
		}
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
}
