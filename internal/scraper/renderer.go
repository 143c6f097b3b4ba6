package scraper

import "context"

// NextState describes the pagination control on the current page.
type NextState int

const (
	// NextAbsent means no control matched the selector.
	NextAbsent NextState = iota
	// NextDisabled means a control matched but is not actionable.
	NextDisabled
	// NextReady means the control can be activated.
	NextReady
)

func (s NextState) String() string {
	switch s {
	case NextAbsent:
		return "absent"
	case NextDisabled:
		return "disabled"
	case NextReady:
		return "ready"
	default:
		return "unknown"
	}
}

// PageRenderer is the browser session the driver borrows for one run. It
// owns a single live page; all methods operate on whatever that page
// currently shows. The production implementation is playwright-backed
// (PageSession); tests use a scripted fake.
type PageRenderer interface {
	// Navigate loads url into the session's page.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until selector matches a visible element or the
	// session timeout elapses, in which case it returns an error wrapping
	// ErrContentTimeout.
	WaitReady(ctx context.Context, selector string) error
	// HTML returns a snapshot of the current rendered DOM.
	HTML(ctx context.Context) (string, error)
	// URL reports the page's current address.
	URL() string
	// NextState inspects the pagination control matched by selector.
	NextState(ctx context.Context, selector string) (NextState, error)
	// ClickNext activates the pagination control and waits, bounded by
	// the session timeout, for the previous content (identified by
	// containerSelector) to go stale.
	ClickNext(ctx context.Context, selector, containerSelector string) error
}
