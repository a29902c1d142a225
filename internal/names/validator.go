package names

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"officer-intel/backend/internal/match"
)

// Matcher positively confirms that a structurally valid string is a person name.
// Matchers whose backing data is unavailable report so once, at construction.
type Matcher interface {
	Name() string
	Available() bool
	Match(words []string) bool
}

// Validator decides whether extracted text is plausibly a person's name.
type Validator struct {
	vocab    *Vocabulary
	matchers []Matcher
}

// NewValidator builds a validator over the supplied vocabulary. Matchers that are
// not available are dropped; the structural matcher is always appended last.
func NewValidator(vocab *Vocabulary, matchers ...Matcher) (*Validator, error) {
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	v := &Validator{vocab: vocab}
	for _, m := range matchers {
		if m == nil {
			continue
		}
		if !m.Available() {
			logrus.WithField("matcher", m.Name()).Debug("name matcher unavailable, skipping")
			continue
		}
		v.matchers = append(v.matchers, m)
	}
	v.matchers = append(v.matchers, StructuralMatcher{})
	return v, nil
}

// Vocabulary exposes the vocabulary the validator was built with.
func (v *Validator) Vocabulary() *Vocabulary {
	return v.vocab
}

// Matchers lists the active matcher backends in evaluation order.
func (v *Validator) Matchers() []string {
	out := make([]string, 0, len(v.matchers))
	for _, m := range v.matchers {
		out = append(out, m.Name())
	}
	return out
}

// IsValidPersonName applies the structural, vocabulary and company-collision
// rules in order and then asks the matchers for a positive confirmation.
func (v *Validator) IsValidPersonName(name, company string) bool {
	if v == nil || len(strings.TrimSpace(name)) < 3 {
		return false
	}
	clean := match.CleanName(name)
	words := strings.Fields(clean)

	if !structureValid(clean, words) {
		return false
	}
	if v.vocab.IsFakeName(clean) {
		return false
	}
	for _, word := range words {
		if v.vocab.IsExcludedWord(word) {
			return false
		}
	}
	if v.isCompanyName(words, company) {
		return false
	}
	for _, m := range v.matchers {
		if m.Match(words) {
			return true
		}
	}
	return false
}

func (v *Validator) isCompanyName(words []string, company string) bool {
	companyTokens := match.CompanyTokens(company)
	if len(companyTokens) > 0 {
		all := true
		for _, word := range words {
			if _, ok := companyTokens[strings.ToLower(word)]; !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	for _, word := range words {
		if v.vocab.IsBusinessSuffix(word) {
			return true
		}
	}
	return false
}

func structureValid(clean string, words []string) bool {
	if len(words) != 2 {
		return false
	}
	for _, word := range words {
		runes := []rune(word)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			return false
		}
	}
	special := 0
	for _, r := range clean {
		if unicode.IsDigit(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '\'' && r != '-' {
			special++
		}
	}
	return special <= 3
}

var (
	plainName       = regexp.MustCompile(`^[A-Z][a-z]+$`)
	hyphenatedName  = regexp.MustCompile(`^[A-Z][a-z]+-[A-Z][a-z]+$`)
	apostropheName  = regexp.MustCompile(`^[A-Z]'[A-Z][a-z]+$`)
	accentedWord    = regexp.MustCompile(`^[A-ZÀ-Þ][A-Za-zÀ-ÿ'-]+$`)
	nameDictComment = regexp.MustCompile(`^\s*(#|$)`)
)

// StructuralMatcher accepts First Last shapes, including hyphenated,
// apostrophised and accented names.
type StructuralMatcher struct{}

func (StructuralMatcher) Name() string    { return "structural" }
func (StructuralMatcher) Available() bool { return true }

func (StructuralMatcher) Match(words []string) bool {
	if len(words) != 2 {
		return false
	}
	for _, word := range words {
		switch {
		case plainName.MatchString(word), hyphenatedName.MatchString(word), apostropheName.MatchString(word):
		case accentedWord.MatchString(word):
		default:
			return false
		}
	}
	return true
}

// DictionaryMatcher accepts a name when any token is a known first or last name.
type DictionaryMatcher struct {
	names map[string]struct{}
}

// NewDictionaryMatcher wraps an in-memory name list.
func NewDictionaryMatcher(names []string) *DictionaryMatcher {
	return &DictionaryMatcher{names: toSet(names)}
}

// LoadDictionaryMatcher reads one name per line. A missing file yields an
// unavailable matcher rather than an error.
func LoadDictionaryMatcher(path string) (*DictionaryMatcher, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return &DictionaryMatcher{}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return &DictionaryMatcher{}, nil
		}
		return nil, fmt.Errorf("open name dictionary: %w", err)
	}
	defer f.Close()

	var list []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if nameDictComment.MatchString(line) {
			continue
		}
		list = append(list, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read name dictionary: %w", err)
	}
	return NewDictionaryMatcher(list), nil
}

func (d *DictionaryMatcher) Name() string { return "dictionary" }

func (d *DictionaryMatcher) Available() bool {
	return d != nil && len(d.names) > 0
}

func (d *DictionaryMatcher) Match(words []string) bool {
	for _, word := range words {
		if _, ok := d.names[strings.ToLower(word)]; ok {
			return true
		}
	}
	return false
}
