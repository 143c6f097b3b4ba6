package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrContentTimeout means the content-ready selector never appeared
	// within the configured timeout.
	ErrContentTimeout = errors.New("timed out waiting for page content")
	// ErrNavigation covers unreachable targets and renderer failures.
	ErrNavigation = errors.New("navigation failed")
)

// PageError attaches the page index and URL at which a run failed. Page
// indexes are 1-based.
type PageError struct {
	Page int
	URL  string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
