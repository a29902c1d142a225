package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"officer-intel/backend/internal/ai"
	"officer-intel/backend/internal/detect"
	"officer-intel/backend/internal/email"
	"officer-intel/backend/internal/facility"
	"officer-intel/backend/internal/fetch"
	"officer-intel/backend/internal/filing"
	"officer-intel/backend/internal/gather"
	"officer-intel/backend/internal/logging"
	"officer-intel/backend/internal/names"
	"officer-intel/backend/internal/scoring"
	"officer-intel/backend/internal/search"
)

// Config is the process-wide configuration shared by the server and the CLI.
type Config struct {
	Port           string
	DBPath         string
	AllowedOrigins []string

	Search search.Config
	AI     ai.Config
	// FallbackModel, when set, is asked after the primary model fails.
	FallbackModel string
	// DisableAI skips the completer even when an API key is present.
	DisableAI bool

	RenderPages bool
	Render      fetch.RenderConfig
	HTTP        fetch.HTTPConfig
	Gather      gather.Config

	ScoringConfig  string
	FacilityConfig string
	VocabularyPath string
	DictionaryPath string
	Filing         filing.Config
	FilingForm     string
	DetectTimeout  time.Duration
	Logging        logging.Config
}

var defaultOrigins = []string{
	"http://localhost:1000",
	"http://127.0.0.1:1000",
}

// FromEnv reads the configuration from environment variables. Malformed
// numbers and durations are logged and ignored.
func FromEnv() Config {
	cfg := Config{
		Port:           envString("PORT", "2000"),
		DBPath:         envString("OFFICER_DB_PATH", filepath.Join("data", "officer-intel.db")),
		AllowedOrigins: defaultOrigins,
		Search: search.Config{
			APIKey:   os.Getenv("SERPAPI_API_KEY"),
			BaseURL:  os.Getenv("SEARCH_BASE_URL"),
			Timeout:  envDuration("SEARCH_TIMEOUT", 0),
			CacheTTL: envDuration("SEARCH_CACHE_TTL", 0),
		},
		AI: ai.Config{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       os.Getenv("OPENAI_MODEL"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Temperature: envFloat("OPENAI_TEMPERATURE", 0),
			MaxTokens:   envInt("OPENAI_MAX_TOKENS", 0),
		},
		FallbackModel: os.Getenv("OPENAI_FALLBACK_MODEL"),
		DisableAI:     envBool("DISABLE_AI"),
		RenderPages:   envBool("RENDER_PAGES"),
		Render: fetch.RenderConfig{
			BrowserBin: os.Getenv("BROWSER_BIN"),
			Timeout:    envDuration("RENDER_TIMEOUT", 0),
		},
		Gather: gather.Config{
			Concurrency:    envInt("GATHER_CONCURRENCY", 0),
			ChannelTimeout: envDuration("CHANNEL_TIMEOUT", 0),
		},
		ScoringConfig:  os.Getenv("SCORING_CONFIG"),
		FacilityConfig: os.Getenv("FACILITY_CONFIG"),
		VocabularyPath: os.Getenv("NAMES_VOCAB_PATH"),
		DictionaryPath: os.Getenv("NAMES_DICTIONARY_PATH"),
		Filing: filing.Config{
			UserAgent: os.Getenv("EDGAR_USER_AGENT"),
			Timeout:   envDuration("EDGAR_TIMEOUT", 0),
		},
		FilingForm:    envString("FILING_FORM", "10-Q"),
		DetectTimeout: envDuration("DETECT_TIMEOUT", 3*time.Minute),
		Logging:       logging.FromEnv(),
	}
	if origins := splitList(os.Getenv("ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	return cfg
}

// Completer returns the retrying AI client, chained to a second model when
// OPENAI_FALLBACK_MODEL is set. It is nil when AI is disabled or no key is
// configured.
func (c Config) Completer() ai.Completer {
	if c.DisableAI {
		return nil
	}
	client, err := ai.NewClient(c.AI)
	if err != nil {
		if !errors.Is(err, ai.ErrDisabled) {
			logrus.WithError(err).Warn("ai client unavailable")
		}
		return nil
	}
	primary := ai.NewRetrying(client)
	model := strings.TrimSpace(c.FallbackModel)
	if model == "" {
		return primary
	}
	fallbackCfg := c.AI
	fallbackCfg.Model = model
	fallback, err := ai.NewClient(fallbackCfg)
	if err != nil {
		return primary
	}
	return ai.WithFallback(primary, ai.NewRetrying(fallback))
}

// Weights loads the scoring calibration.
func (c Config) Weights() (scoring.Weights, error) {
	return scoring.LoadWeights(c.ScoringConfig)
}

// Facilities builds the facility extractor from the optional YAML calibration.
func (c Config) Facilities() (*facility.Extractor, error) {
	w, err := facility.LoadWeights(c.FacilityConfig)
	if err != nil {
		return nil, err
	}
	return facility.NewExtractor(w), nil
}

// Filings builds the EDGAR client.
func (c Config) Filings() *filing.Client {
	return filing.NewClient(c.Filing)
}

// Searcher builds the web search client used for email discovery. It returns
// a nil searcher, not an error, when no search key is configured.
func (c Config) Searcher() (email.Searcher, error) {
	client, err := search.NewClient(c.Search)
	switch {
	case errors.Is(err, search.ErrMissingCredentials):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("search client: %w", err)
	}
	return client, nil
}

// Engine builds the detection engine. Live gathering is wired only when a
// search key is configured; otherwise the engine can only analyze supplied
// blobs. The returned close func releases the headless browser, if any.
func (c Config) Engine() (*detect.Engine, func() error, error) {
	noop := func() error { return nil }

	vocab, err := c.vocabulary()
	if err != nil {
		return nil, noop, err
	}
	weights, err := c.Weights()
	if err != nil {
		return nil, noop, err
	}
	matchers, err := c.matchers()
	if err != nil {
		return nil, noop, err
	}

	opts := detect.Options{
		Vocabulary: vocab,
		Matchers:   matchers,
		Weights:    &weights,
	}

	closer := noop
	searcher, err := search.NewClient(c.Search)
	switch {
	case errors.Is(err, search.ErrMissingCredentials):
		logrus.Warn("SERPAPI_API_KEY not set; live detection disabled")
	case err != nil:
		return nil, noop, fmt.Errorf("search client: %w", err)
	default:
		var fetcher fetch.Fetcher = fetch.NewHTTPFetcher(c.HTTP)
		if c.RenderPages {
			renderer := fetch.NewRenderer(c.Render)
			fetcher = fetch.WithFallback(renderer, fetcher)
			closer = renderer.Close
		}
		opts.Source = gather.New(searcher, fetcher, c.Gather)
	}

	engine, err := detect.NewEngine(opts)
	if err != nil {
		_ = closer()
		return nil, noop, err
	}
	return engine, closer, nil
}

func (c Config) vocabulary() (*names.Vocabulary, error) {
	if strings.TrimSpace(c.VocabularyPath) == "" {
		return nil, nil
	}
	return names.LoadVocabulary(c.VocabularyPath)
}

func (c Config) matchers() ([]names.Matcher, error) {
	if strings.TrimSpace(c.DictionaryPath) == "" {
		return nil, nil
	}
	dict, err := names.LoadDictionaryMatcher(c.DictionaryPath)
	if err != nil {
		return nil, err
	}
	return []names.Matcher{dict}, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		logrus.WithField("key", key).Warnf("ignoring invalid integer %q", raw)
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logrus.WithField("key", key).Warnf("ignoring invalid number %q", raw)
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logrus.WithField("key", key).Warnf("ignoring invalid duration %q", raw)
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
