package names

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed vocabulary.json
var defaultVocabulary []byte

// Vocabulary holds the closed word lists used to reject non-person names and to
// grade name quality. A Vocabulary is immutable once built.
type Vocabulary struct {
	navigation       map[string]struct{}
	business         map[string]struct{}
	invalid          map[string]struct{}
	fake             map[string]struct{}
	suffixes         map[string]struct{}
	incomplete       map[string]struct{}
	headers          map[string]struct{}
	places           []string
	documentTerms    []string
	businessEntities []string
	jobTitles        []string
	titleSuffixes    []string
	entityIndicators []string
}

type vocabularyFile struct {
	NavigationWords  []string `json:"navigation_words"`
	BusinessTerms    []string `json:"business_terms"`
	InvalidWords     []string `json:"invalid_words"`
	FakeNames        []string `json:"fake_names"`
	BusinessSuffixes []string `json:"business_suffixes"`
	PlaceNames       []string `json:"place_names"`
	DocumentTerms    []string `json:"document_terms"`
	BusinessEntities []string `json:"business_entities"`
	IncompleteWords  []string `json:"incomplete_words"`
	HeaderWords      []string `json:"header_words"`
	JobTitles        []string `json:"job_titles"`
	TitleSuffixes    []string `json:"title_suffixes"`
	EntityIndicators []string `json:"entity_indicators"`
}

// DefaultVocabulary returns the vocabulary bundled with the binary.
func DefaultVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(defaultVocabulary)
}

// LoadVocabulary reads a vocabulary JSON file from disk.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary builds a vocabulary from its JSON representation.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var raw vocabularyFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal vocabulary: %w", err)
	}
	v := &Vocabulary{
		navigation:       toSet(raw.NavigationWords),
		business:         toSet(raw.BusinessTerms),
		invalid:          toSet(raw.InvalidWords),
		fake:             toSet(raw.FakeNames),
		suffixes:         toSet(raw.BusinessSuffixes),
		incomplete:       toSet(raw.IncompleteWords),
		headers:          toSet(raw.HeaderWords),
		places:           toList(raw.PlaceNames),
		documentTerms:    toList(raw.DocumentTerms),
		businessEntities: toList(raw.BusinessEntities),
		jobTitles:        toList(raw.JobTitles),
		entityIndicators: toList(raw.EntityIndicators),
	}
	for _, suffix := range raw.TitleSuffixes {
		if trimmed := strings.TrimSpace(suffix); trimmed != "" {
			v.titleSuffixes = append(v.titleSuffixes, trimmed)
		}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate ensures the vocabulary carries the lists the validator relies on.
func (v *Vocabulary) Validate() error {
	if v == nil {
		return errors.New("vocabulary is nil")
	}
	if len(v.navigation) == 0 || len(v.business) == 0 {
		return errors.New("vocabulary missing navigation or business terms")
	}
	return nil
}

// IsExcludedWord reports whether a lowercase token belongs to any rejection list.
func (v *Vocabulary) IsExcludedWord(word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if _, ok := v.navigation[word]; ok {
		return true
	}
	if _, ok := v.business[word]; ok {
		return true
	}
	if _, ok := v.invalid[word]; ok {
		return true
	}
	_, ok := v.fake[word]
	return ok
}

// IsFakeName reports whether the whole normalized name is a known placeholder.
func (v *Vocabulary) IsFakeName(normalized string) bool {
	normalized = strings.ToLower(strings.TrimSpace(normalized))
	normalized = strings.ReplaceAll(normalized, ".", " ")
	normalized = strings.Join(strings.Fields(normalized), " ")
	_, ok := v.fake[normalized]
	return ok
}

// IsBusinessSuffix reports whether a token is a corporate suffix such as "inc".
func (v *Vocabulary) IsBusinessSuffix(word string) bool {
	_, ok := v.suffixes[strings.ToLower(strings.Trim(word, ".,"))]
	return ok
}

// IsLowQuality flags names that look like titles, places, document fragments or
// business entities rather than people.
func (v *Vocabulary) IsLowQuality(name string) bool {
	words := strings.Fields(name)
	if len(words) < 2 {
		return true
	}
	for _, suffix := range v.titleSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	if len(name) < 6 {
		return true
	}
	lower := strings.ToLower(name)
	for _, list := range [][]string{v.places, v.documentTerms, v.businessEntities, v.jobTitles} {
		if containsAny(lower, list) {
			return true
		}
	}
	allIncomplete := true
	for _, word := range words {
		lw := strings.ToLower(word)
		if _, ok := v.headers[lw]; ok {
			return true
		}
		if _, ok := v.incomplete[lw]; !ok {
			allIncomplete = false
		}
	}
	return allIncomplete
}

// IsBusinessEntity reports whether the name contains an entity indicator such as
// "fund" or "trust".
func (v *Vocabulary) IsBusinessEntity(name string) bool {
	return containsAny(strings.ToLower(name), v.entityIndicators)
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

func toList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
