package browser

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Browser owns the playwright driver and a persistent profile context. The
// profile carries the operator's logged-in site session, which is the whole
// point of driving a real browser instead of a fresh one.
type Browser struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
	page    playwright.Page
	logger  zerolog.Logger
}

type Options struct {
	UserDataDir    string
	ExecutablePath string
	Headless       bool
	Timeout        time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		// Headless stays off: the operator has to log in and watch the run.
		Headless: false,
		Timeout:  30 * time.Second,
	}
}

// Launch starts the browser against an existing profile directory. The
// profile must not be open in another browser process; Chromium refuses to
// share a live profile.
func Launch(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if opts.ExecutablePath != "" {
		if _, err := os.Stat(opts.ExecutablePath); err != nil {
			return nil, fmt.Errorf("browser executable not found at %s: %w", opts.ExecutablePath, err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if opts.Timeout > 0 {
		launchOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	context, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, launchOpts)
	if err != nil {
		pw.Stop()
		if strings.Contains(err.Error(), "ProcessSingleton") {
			return nil, fmt.Errorf("browser profile is already in use, close the running browser first: %w", err)
		}
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := &Browser{
		pw:      pw,
		context: context,
		logger:  log.With().Str("component", "browser").Logger(),
	}

	page, err := b.adoptPage()
	if err != nil {
		b.Close()
		return nil, err
	}
	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	}
	b.page = page

	return b, nil
}

// adoptPage reuses the tab the profile opened with and closes any extras, so
// the run drives exactly one page.
func (b *Browser) adoptPage() (playwright.Page, error) {
	pages := b.context.Pages()
	if len(pages) == 0 {
		page, err := b.context.NewPage()
		if err != nil {
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		return page, nil
	}

	for _, extra := range pages[1:] {
		if err := extra.Close(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to close leftover tab")
		}
	}

	return pages[0], nil
}

func (b *Browser) Page() playwright.Page {
	return b.page
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
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
