package scraper

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dwalters/scrapeflow/internal/extract"
	"github.com/dwalters/scrapeflow/internal/ratelimit"
	"github.com/dwalters/scrapeflow/internal/records"
)

// RunInfo identifies one scrape run. It is stamped on published events and
// persisted rows.
type RunInfo struct {
	ID        uuid.UUID
	Profile   string
	StartURL  string
	StartedAt time.Time
}

// PageObserver is notified after each page extraction. Observer failures
// are logged, never fatal to the run.
type PageObserver interface {
	ObservePage(ctx context.Context, run RunInfo, page, count int) error
}

// Driver sequences one pagination run: wait for content, extract, find the
// next control, click, re-synchronize. Strictly sequential; the renderer is
// borrowed for the duration of Run and never shared.
type Driver struct {
	renderer  PageRenderer
	extractor *extract.Extractor
	limiter   ratelimit.RateLimiter
	observers []PageObserver
	maxPages  int
	logger    *slog.Logger
}

// NewDriver builds a driver. maxPages 0 means unbounded; any positive value
// caps the number of extracted pages as a guard against misdetected next
// controls.
func NewDriver(renderer PageRenderer, extractor *extract.Extractor, maxPages int) *Driver {
	return &Driver{
		renderer:  renderer,
		extractor: extractor,
		maxPages:  maxPages,
		logger:    slog.Default().With("component", "driver"),
	}
}

// SetRateLimiter installs an optional politeness delay applied between
// pagination clicks.
func (d *Driver) SetRateLimiter(rl ratelimit.RateLimiter) {
	d.limiter = rl
}

func (d *Driver) AddObserver(obs PageObserver) {
	d.observers = append(d.observers, obs)
}

// Run walks the pagination chain starting at run.StartURL. The returned
// ResultSet is never nil: on error it holds everything extracted before the
// failure, so callers can still export partial results. Errors are wrapped
// in *PageError carrying the 1-based page index and URL.
func (d *Driver) Run(ctx context.Context, run RunInfo) (*records.ResultSet, error) {
	profile := d.extractor.Profile()
	rs := records.NewResultSet(profile.FieldNames())

	d.logger.Info("starting run",
		"run_id", run.ID,
		"profile", profile.Name,
		"url", run.StartURL,
		"max_pages", d.maxPages)

	if err := d.renderer.Navigate(ctx, run.StartURL); err != nil {
		return rs, &PageError{Page: 1, URL: run.StartURL, Err: fmt.Errorf("%w: %v", ErrNavigation, err)}
	}
	if err := d.renderer.WaitReady(ctx, profile.Ready); err != nil {
		return rs, &PageError{Page: 1, URL: run.StartURL, Err: err}
	}

	page := 1
	var prevSig uint64
	for {
		pageURL := d.renderer.URL()

		html, err := d.renderer.HTML(ctx)
		if err != nil {
			return rs, &PageError{Page: page, URL: pageURL, Err: fmt.Errorf("%w: %v", ErrNavigation, err)}
		}

		recs, err := d.extractor.Extract(html, pageURL)
		if err != nil {
			return rs, &PageError{Page: page, URL: pageURL, Err: err}
		}

		// A successful click that lands on identical content means the
		// next control points back at the current page. Stop instead of
		// accumulating duplicates forever.
		sig := pageSignature(profile.FieldNames(), recs)
		if page > 1 && sig == prevSig {
			d.logger.Warn("page content unchanged after pagination, stopping",
				"page", page, "url", pageURL)
			break
		}
		prevSig = sig

		rs.AppendPage(recs)
		d.logger.Info("extracted page", "page", page, "records", len(recs), "url", pageURL)
		d.notifyObservers(ctx, run, page, len(recs))

		if d.maxPages > 0 && page >= d.maxPages {
			d.logger.Info("page limit reached", "max_pages", d.maxPages)
			break
		}

		state, err := d.renderer.NextState(ctx, profile.Next)
		if err != nil {
			return rs, &PageError{Page: page, URL: pageURL, Err: fmt.Errorf("%w: %v", ErrNavigation, err)}
		}
		if state != NextReady {
			d.logger.Info("no actionable next control, run complete", "page", page, "state", state.String())
			break
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return rs, &PageError{Page: page, URL: pageURL, Err: err}
			}
		}

		if err := d.renderer.ClickNext(ctx, profile.Next, profile.Container); err != nil {
			return rs, &PageError{Page: page + 1, URL: pageURL, Err: fmt.Errorf("%w: %v", ErrNavigation, err)}
		}
		if err := d.renderer.WaitReady(ctx, profile.Ready); err != nil {
			return rs, &PageError{Page: page + 1, URL: pageURL, Err: err}
		}

		page++
	}

	d.logger.Info("run finished", "run_id", run.ID, "pages", rs.Pages(), "records", rs.Len())
	return rs, nil
}

func (d *Driver) notifyObservers(ctx context.Context, run RunInfo, page, count int) {
	for _, obs := range d.observers {
		if err := obs.ObservePage(ctx, run, page, count); err != nil {
			d.logger.Warn("page observer failed", "page", page, "error", err)
		}
	}
}

func pageSignature(fields []string, recs []records.Record) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|", len(recs))
	if len(recs) > 0 {
		for _, f := range fields {
			h.Write([]byte(recs[0][f]))
			h.Write([]byte{0})
		}
	}
	return h.Sum64()
}
