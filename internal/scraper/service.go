package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dwalters/scrapeflow/internal/browser"
	"github.com/dwalters/scrapeflow/internal/extract"
	"github.com/dwalters/scrapeflow/internal/ratelimit"
	"github.com/dwalters/scrapeflow/internal/records"
)

// Request describes one scrape invocation, either from the CLI or from the
// HTTP API.
type Request struct {
	StartURL string
	Profile  string
	MaxPages int
	Strict   bool
}

// RunStore persists a finished run. Implemented by database.RunStore.
type RunStore interface {
	SaveRun(ctx context.Context, run RunInfo, rs *records.ResultSet) error
}

// ServiceOptions carries the run defaults taken from configuration.
type ServiceOptions struct {
	Timeout      time.Duration
	MaxPages     int
	Strict       bool
	PageDelayMin time.Duration
	PageDelayMax time.Duration
}

// Service owns the browser and builds one driver per scrape request. The
// browser session (page) is scoped to the request and closed on every exit
// path.
type Service struct {
	browser   *browser.Browser
	opts      ServiceOptions
	store     RunStore
	observers []PageObserver
	logger    *slog.Logger
}

func NewService(b *browser.Browser, opts ServiceOptions) *Service {
	return &Service{
		browser: b,
		opts:    opts,
		logger:  slog.Default().With("component", "scrape_service"),
	}
}

// SetRunStore installs an optional persistence sink for finished runs.
func (s *Service) SetRunStore(store RunStore) {
	s.store = store
}

// AddObserver forwards per-page notifications to every driver the service
// builds.
func (s *Service) AddObserver(obs PageObserver) {
	s.observers = append(s.observers, obs)
}

// Scrape runs the pagination driver for req. The ResultSet is non-nil even
// on failure so partial results remain exportable.
func (s *Service) Scrape(ctx context.Context, req Request) (RunInfo, *records.ResultSet, error) {
	profile, ok := extract.BuiltinProfile(req.Profile)
	if !ok {
		return RunInfo{}, nil, fmt.Errorf("unknown profile %q (available: %v)", req.Profile, extract.ProfileNames())
	}

	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = s.opts.MaxPages
	}

	page, err := s.browser.NewPage()
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	run := RunInfo{
		ID:        uuid.New(),
		Profile:   profile.Name,
		StartURL:  req.StartURL,
		StartedAt: time.Now().UTC(),
	}

	driver := NewDriver(NewPageSession(page, s.opts.Timeout), extract.New(profile, req.Strict), maxPages)
	if s.opts.PageDelayMax > 0 {
		driver.SetRateLimiter(ratelimit.NewSimpleRateLimiter(s.opts.PageDelayMin, s.opts.PageDelayMax))
	}
	for _, obs := range s.observers {
		driver.AddObserver(obs)
	}

	rs, runErr := driver.Run(ctx, run)

	if s.store != nil && rs != nil && rs.Len() > 0 {
		if err := s.store.SaveRun(ctx, run, rs); err != nil {
			if runErr == nil {
				return run, rs, fmt.Errorf("failed to persist run: %w", err)
			}
			s.logger.Warn("failed to persist partial run", "run_id", run.ID, "error", err)
		}
	}

	return run, rs, runErr
}
