package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config drives search client behaviour.
type Config struct {
	APIKey   string
	BaseURL  string
	Engine   string
	Timeout  time.Duration
	CacheTTL time.Duration
	// RetryAfter is the pause before the single retry on HTTP 429.
	RetryAfter time.Duration
}

// Result is one organic web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Client performs SerpAPI-compatible web searches with caching and a single
// rate-limit retry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	engine     string
	apiKey     string
	cacheTTL   time.Duration
	retryAfter time.Duration
	cache      sync.Map // map[string]cacheEntry
}

type cacheEntry struct {
	at      time.Time
	results []Result
}

// ErrMissingCredentials is returned when the client cannot authenticate.
var ErrMissingCredentials = errors.New("search client missing api key")

// NewClient constructs a search client if configuration is valid.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://serpapi.com/search.json"
	}

	engine := strings.TrimSpace(cfg.Engine)
	if engine == "" {
		engine = "google"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}

	retryAfter := cfg.RetryAfter
	if retryAfter <= 0 {
		retryAfter = 5 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		engine:     engine,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		cacheTTL:   ttl,
		retryAfter: retryAfter,
	}, nil
}

// Search returns up to max organic results for the query.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Result, error) {
	if c == nil {
		return nil, errors.New("search client is nil")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if max <= 0 {
		max = 10
	}

	key := strings.ToLower(query) + "|" + strconv.Itoa(max)
	if entry, ok := c.cache.Load(key); ok {
		cached := entry.(cacheEntry)
		if time.Since(cached.at) < c.cacheTTL {
			return cached.results, nil
		}
		c.cache.Delete(key)
	}

	results, err := c.performRequest(ctx, query, max)
	if err != nil {
		return nil, err
	}

	c.cache.Store(key, cacheEntry{at: time.Now(), results: results})
	return results, nil
}

func (c *Client) performRequest(ctx context.Context, query string, max int) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(max))
	params.Set("api_key", c.apiKey)

	endpoint := c.baseURL
	if strings.Contains(endpoint, "?") {
		endpoint = endpoint + "&" + params.Encode()
	} else {
		endpoint = endpoint + "?" + params.Encode()
	}

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryAfter):
		}
		resp, err = c.do(ctx, endpoint)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("search api error: %s", payload.Error)
	}

	out := make([]Result, 0, len(payload.OrganicResults))
	for _, item := range payload.OrganicResults {
		if len(out) == max {
			break
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(item.Title),
			Snippet: strings.TrimSpace(item.Snippet),
			Link:    strings.TrimSpace(item.Link),
		})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	return resp, nil
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

type organicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Snippets joins result snippets with newlines, skipping empty ones.
func Snippets(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Snippet != "" {
			parts = append(parts, r.Snippet)
		}
	}
	return strings.Join(parts, "\n")
}
