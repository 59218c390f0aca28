// Package browser wraps a single headless Chromium instance behind the
// narrow Render contract the scrape path needs: fetch one URL, wait
// for the page to settle, hand back the markup.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pricescout/pricescout/internal/config"
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger

	settleDelay time.Duration
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	SettleDelay    time.Duration
	ProxyServer    string
}

// OptionsFromConfig maps the browser config section onto launch
// options. The mobile viewport matters: several sources serve a much
// simpler, more parseable page to phones.
func OptionsFromConfig(cfg config.BrowserConfig) *Options {
	return &Options{
		Headless:       cfg.Headless,
		Timeout:        cfg.Timeout,
		UserAgent:      cfg.UserAgent,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		AcceptLanguage: cfg.AcceptLanguage,
		TimezoneID:     cfg.TimezoneID,
		Locale:         cfg.Locale,
		SettleDelay:    cfg.SettleDelay,
	}
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--user-agent=" + opts.UserAgent,
		},
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyServer}
	}

	chromium, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		IsMobile:          playwright.Bool(true),
		HasTouch:          playwright.Bool(true),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": opts.AcceptLanguage,
			"DNT":             "1",
		},
	}

	browserContext, err := chromium.NewContext(contextOpts)
	if err != nil {
		chromium.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:          pw,
		browser:     chromium,
		context:     browserContext,
		logger:      logger.With("component", "browser"),
		settleDelay: opts.SettleDelay,
	}, nil
}

// Render fetches url in a fresh page and returns the settled markup.
// waitSelector, when non-empty, is awaited before the settle delay;
// a selector that never appears is not fatal because partially
// rendered pages still often carry extractable cards.
func (b *Browser) Render(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return "", ctx.Err()
	}

	page, err := b.context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page.SetDefaultTimeout(float64(timeout.Milliseconds()))

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	if waitSelector != "" {
		waitBudget := timeout / 2
		if err := page.Locator(waitSelector).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(float64(waitBudget.Milliseconds())),
		}); err != nil {
			b.logger.Debug("wait selector never appeared", "url", url, "selector", waitSelector)
		}
	}

	// Nudge lazy-loaded cards into the DOM before the settle wait.
	page.Evaluate(`window.scrollBy(0, window.innerHeight)`)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(b.settleDelay):
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	if blocked(content) {
		return "", fmt.Errorf("bot challenge served for %s", url)
	}
	return content, nil
}

// blocked spots the common challenge interstitials so the caller
// records a failure instead of extracting from a captcha page.
func blocked(content string) bool {
	if len(content) < 2048 {
		lower := strings.ToLower(content)
		return strings.Contains(lower, "access denied") ||
			strings.Contains(lower, "captcha") ||
			strings.Contains(lower, "unusual traffic")
	}
	return false
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
