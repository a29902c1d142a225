package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyPage is returned when a page downloads but carries no readable text.
var ErrEmptyPage = errors.New("page has no text content")

// Fetcher returns the visible text of a web page.
type Fetcher interface {
	FetchRenderedText(ctx context.Context, url string) (string, error)
}

// HTTPConfig drives the plain HTTP fetcher.
type HTTPConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
}

// HTTPFetcher downloads pages without executing JavaScript.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

const defaultUserAgent = "Mozilla/5.0 (compatible; officer-intel/1.0)"

// NewHTTPFetcher constructs a plain HTTP fetcher with sane defaults.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  ua,
		maxBytes:   maxBytes,
	}
}

// FetchRenderedText downloads url and converts HTML to text.
func (f *HTTPFetcher) FetchRenderedText(ctx context.Context, url string) (string, error) {
	body, contentType, err := f.Get(ctx, url)
	if err != nil {
		return "", err
	}
	var text string
	if strings.Contains(contentType, "text/plain") {
		text = strings.TrimSpace(string(body))
	} else {
		text, err = HTMLToText(bytes.NewReader(body))
		if err != nil {
			return "", err
		}
	}
	if text == "" {
		return "", ErrEmptyPage
	}
	return text, nil
}

// Get downloads url and returns the raw body with its content type.
func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

type fetcherChain struct {
	primary  Fetcher
	fallback Fetcher
}

// WithFallback returns a fetcher that tries primary first and uses fallback when
// the primary errors or yields no text.
func WithFallback(primary, fallback Fetcher) Fetcher {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &fetcherChain{primary: primary, fallback: fallback}
}

func (c *fetcherChain) FetchRenderedText(ctx context.Context, url string) (string, error) {
	text, err := c.primary.FetchRenderedText(ctx, url)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return c.fallback.FetchRenderedText(ctx, url)
}
