package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session adapts one page to the narrow surface the order walk drives.
// Bounded waits swallow playwright timeout errors and report plain absence;
// an element not showing up in time is an answer, not a failure.
type Session struct {
	page   playwright.Page
	logger zerolog.Logger
}

func NewSession(page playwright.Page) *Session {
	return &Session{
		page:   page,
		logger: log.With().Str("component", "session").Logger(),
	}
}

func (s *Session) Navigate(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForURLPattern blocks until the page URL matches the glob pattern. A
// zero timeout waits forever; the manual login flow depends on that.
func (s *Session) WaitForURLPattern(pattern string, timeout time.Duration) error {
	err := s.page.WaitForURL(pattern, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return fmt.Errorf("never reached %s: %w", pattern, err)
	}
	return nil
}

// WaitQuiet waits for network activity to settle. Heavy pages sometimes never
// go idle, so callers treat false as a shrug, not a failure.
func (s *Session) WaitQuiet(timeout time.Duration) bool {
	err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(millis(timeout)),
	})
	return err == nil
}

func (s *Session) WaitVisible(selector string, timeout time.Duration) bool {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	return err == nil
}

func (s *Session) TryClick(selector string, timeout time.Duration) bool {
	err := s.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		s.logger.Debug().Str("selector", selector).Msg("click target never appeared")
		return false
	}
	return true
}

func (s *Session) ClickNth(selector string, index int, timeout time.Duration) error {
	err := s.page.Locator(selector).Nth(index).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return fmt.Errorf("failed to click %s[%d]: %w", selector, index, err)
	}
	return nil
}

func (s *Session) ClickAt(x, y float64) error {
	if err := s.page.Mouse().Click(x, y); err != nil {
		return fmt.Errorf("failed to click at (%.0f, %.0f): %w", x, y, err)
	}
	return nil
}

func (s *Session) Count(selector string) int {
	count, err := s.page.Locator(selector).Count()
	if err != nil {
		return 0
	}
	return count
}

func (s *Session) Content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (s *Session) Screenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to capture %s: %w", path, err)
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
