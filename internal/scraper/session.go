package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PageSession adapts a playwright page to the PageRenderer interface. One
// session drives one page; sessions are not safe for concurrent use, which
// matches the strictly sequential driver.
type PageSession struct {
	page    playwright.Page
	timeout time.Duration
	logger  *slog.Logger
}

func NewPageSession(page playwright.Page, timeout time.Duration) *PageSession {
	return &PageSession{
		page:    page,
		timeout: timeout,
		logger:  slog.Default().With("component", "page_session"),
	}
}

func (s *PageSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (s *PageSession) WaitReady(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(s.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%w: selector %q not present within %s", ErrContentTimeout, selector, s.timeout)
	}
	return nil
}

func (s *PageSession) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

func (s *PageSession) URL() string {
	return s.page.URL()
}

func (s *PageSession) NextState(_ context.Context, selector string) (NextState, error) {
	control := s.page.Locator(selector).First()

	count, err := control.Count()
	if err != nil {
		return NextAbsent, fmt.Errorf("failed to query next control: %w", err)
	}
	if count == 0 {
		return NextAbsent, nil
	}

	if disabled, err := control.GetAttribute("aria-disabled"); err == nil && disabled == "true" {
		return NextDisabled, nil
	}
	if class, err := control.GetAttribute("class"); err == nil && strings.Contains(class, "disabled") {
		return NextDisabled, nil
	}

	return NextReady, nil
}

// ClickNext clicks the pagination control, then polls for the previously
// rendered content to go stale. Sites that paginate by full navigation
// detach the old DOM immediately; JS-rendered listings replace it in place,
// so the poll is bounded by the session timeout and the driver's content
// signature guard covers the remaining ambiguity.
func (s *PageSession) ClickNext(ctx context.Context, selector, containerSelector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	anchor, err := s.page.QuerySelector(containerSelector)
	if err != nil {
		anchor = nil
	}

	if err := s.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("failed to click next control: %w", err)
	}

	if anchor == nil {
		return nil
	}

	deadline := time.Now().Add(s.timeout)
	for {
		hidden, err := anchor.IsHidden()
		if err != nil || hidden {
			// A query error means the handle is already detached, which
			// is the staleness signal we are waiting for.
			return nil
		}
		if time.Now().After(deadline) {
			s.logger.Debug("no staleness signal after click", "selector", selector)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
