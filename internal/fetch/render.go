package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// RenderConfig drives the headless browser renderer.
type RenderConfig struct {
	// BrowserBin optionally points at a Chrome/Chromium binary.
	BrowserBin string
	Timeout    time.Duration
	// Settle is how long the DOM must stay unchanged before text is read.
	Settle time.Duration
}

// Renderer loads pages in headless Chromium so client-side rendered
// leadership pages expose their text.
type Renderer struct {
	cfg RenderConfig

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRenderer prepares a renderer. The browser starts on first use.
func NewRenderer(cfg RenderConfig) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 2 * time.Second
	}
	return &Renderer{cfg: cfg}
}

func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true)
	if bin := strings.TrimSpace(r.cfg.BrowserBin); bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	logrus.WithField("control_url", controlURL).Debug("headless browser started")

	r.launcher = l
	r.browser = browser
	return browser, nil
}

// FetchRenderedText opens url, waits for the page to settle and returns
// document.body.innerText.
func (r *Renderer) FetchRenderedText(ctx context.Context, url string) (string, error) {
	browser, err := r.ensureBrowser()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("open page %s: %w", url, err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", url, err)
	}
	if err := page.WaitStable(r.cfg.Settle); err != nil {
		logrus.WithError(err).WithField("url", url).Debug("page did not settle, reading text anyway")
	}

	res, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", fmt.Errorf("read text %s: %w", url, err)
	}
	text := cleanText(res.Value.Str())
	if text == "" {
		return "", ErrEmptyPage
	}
	return text, nil
}

// Close shuts the browser down if it was started.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}
