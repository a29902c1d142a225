package filing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"officer-intel/backend/internal/fetch"
)

// Config drives the EDGAR client.
type Config struct {
	// UserAgent must carry a contact address; sec.gov rejects anonymous clients.
	UserAgent string
	BaseURL   string
	DataURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
	MaxBytes  int64
}

var (
	ErrNoFiling      = errors.New("no matching filing")
	ErrUnknownTicker = errors.New("unknown ticker")
)

// Client looks up filings on SEC EDGAR.
type Client struct {
	http     *fetch.HTTPFetcher
	baseURL  string
	dataURL  string
	cacheTTL time.Duration
	cache    sync.Map // map[string]cacheEntry
}

type cacheEntry struct {
	at    time.Time
	value any
}

const defaultUserAgent = "officer-intel research contact@officer-intel.local"

// NewClient constructs an EDGAR client with defaults for unset fields.
func NewClient(cfg Config) *Client {
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://www.sec.gov"
	}
	dataURL := strings.TrimRight(strings.TrimSpace(cfg.DataURL), "/")
	if dataURL == "" {
		dataURL = "https://data.sec.gov"
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &Client{
		http:     fetch.NewHTTPFetcher(fetch.HTTPConfig{UserAgent: ua, Timeout: cfg.Timeout, MaxBytes: maxBytes}),
		baseURL:  baseURL,
		dataURL:  dataURL,
		cacheTTL: ttl,
	}
}

type tickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

type submissions struct {
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			AccessionNumber []string `json:"accessionNumber"`
			PrimaryDocument []string `json:"primaryDocument"`
			FilingDate      []string `json:"filingDate"`
		} `json:"recent"`
	} `json:"filings"`
}

// CIKForTicker resolves a ticker symbol to its central index key.
func (c *Client) CIKForTicker(ctx context.Context, ticker string) (int, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return 0, ErrUnknownTicker
	}
	index, err := c.tickerIndex(ctx)
	if err != nil {
		return 0, err
	}
	cik, ok := index[ticker]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	return cik, nil
}

func (c *Client) tickerIndex(ctx context.Context) (map[string]int, error) {
	const key = "tickers"
	if v, ok := c.cached(key); ok {
		return v.(map[string]int), nil
	}
	var raw map[string]tickerEntry
	if err := c.getJSON(ctx, c.baseURL+"/files/company_tickers.json", &raw); err != nil {
		return nil, fmt.Errorf("load ticker index: %w", err)
	}
	index := make(map[string]int, len(raw))
	for _, entry := range raw {
		index[strings.ToUpper(entry.Ticker)] = entry.CIK
	}
	c.cache.Store(key, cacheEntry{at: time.Now(), value: index})
	return index, nil
}

// LatestFilingURL returns the primary document URL of the most recent filing
// of the given form (for example "10-Q") for ticker.
func (c *Client) LatestFilingURL(ctx context.Context, ticker, form string) (string, error) {
	cik, err := c.CIKForTicker(ctx, ticker)
	if err != nil {
		return "", err
	}
	subs, err := c.submissions(ctx, cik)
	if err != nil {
		return "", err
	}
	form = strings.ToUpper(strings.TrimSpace(form))
	recent := subs.Filings.Recent
	for i, f := range recent.Form {
		if !strings.EqualFold(f, form) || i >= len(recent.AccessionNumber) || i >= len(recent.PrimaryDocument) {
			continue
		}
		accession := strings.ReplaceAll(recent.AccessionNumber[i], "-", "")
		return fmt.Sprintf("%s/Archives/edgar/data/%010d/%s/%s", c.baseURL, cik, accession, recent.PrimaryDocument[i]), nil
	}
	return "", fmt.Errorf("%w: %s %s", ErrNoFiling, strings.ToUpper(ticker), form)
}

func (c *Client) submissions(ctx context.Context, cik int) (submissions, error) {
	key := fmt.Sprintf("submissions|%d", cik)
	if v, ok := c.cached(key); ok {
		return v.(submissions), nil
	}
	var subs submissions
	if err := c.getJSON(ctx, fmt.Sprintf("%s/submissions/CIK%010d.json", c.dataURL, cik), &subs); err != nil {
		return submissions{}, fmt.Errorf("load submissions for cik %d: %w", cik, err)
	}
	c.cache.Store(key, cacheEntry{at: time.Now(), value: subs})
	return subs, nil
}

// Document downloads a filing and returns its text.
func (c *Client) Document(ctx context.Context, url string) (string, error) {
	body, _, err := c.http.Get(ctx, url)
	if err != nil {
		return "", err
	}
	text, err := fetch.HTMLToText(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fetch.ErrEmptyPage
	}
	return text, nil
}

// LatestDocument resolves and downloads the latest filing of form for ticker.
func (c *Client) LatestDocument(ctx context.Context, ticker, form string) (string, string, error) {
	url, err := c.LatestFilingURL(ctx, ticker, form)
	if err != nil {
		return "", "", err
	}
	text, err := c.Document(ctx, url)
	if err != nil {
		return "", url, err
	}
	return text, url, nil
}

func (c *Client) cached(key string) (any, bool) {
	entry, ok := c.cache.Load(key)
	if !ok {
		return nil, false
	}
	cached := entry.(cacheEntry)
	if time.Since(cached.at) >= c.cacheTTL {
		c.cache.Delete(key)
		return nil, false
	}
	return cached.value, true
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, _, err := c.http.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
