package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dwalters/scrapeflow/internal/records"
	"github.com/dwalters/scrapeflow/internal/scraper"
)

// Runner executes scrape requests. Implemented by scraper.Service;
// narrowed to an interface so handler tests can fake it.
type Runner interface {
	Scrape(ctx context.Context, req scraper.Request) (scraper.RunInfo, *records.ResultSet, error)
}

type Handlers struct {
	runner Runner
	logger *slog.Logger
}

func NewHandlers(runner Runner, logger *slog.Logger) *Handlers {
	return &Handlers{
		runner: runner,
		logger: logger,
	}
}

// ScrapeRequest is the JSON body of POST /v1/scrape.
type ScrapeRequest struct {
	URL      string `json:"url"`
	Profile  string `json:"profile"`
	MaxPages int    `json:"max_pages"`
	Strict   bool   `json:"strict"`
}

// ScrapeResponse carries the scraped records. On failure Error is set and
// the records gathered before the failure are still included, with the
// failing page identified when known.
type ScrapeResponse struct {
	RunID       string              `json:"run_id,omitempty"`
	Profile     string              `json:"profile"`
	Pages       int                 `json:"pages"`
	RecordCount int                 `json:"record_count"`
	Fields      []string            `json:"fields,omitempty"`
	Records     []map[string]string `json:"records"`
	Error       string              `json:"error,omitempty"`
	FailedPage  int                 `json:"failed_page,omitempty"`
}

func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.Profile == "" {
		req.Profile = "quotes"
	}
	if req.MaxPages < 0 {
		h.respondError(w, http.StatusBadRequest, "max_pages must not be negative")
		return
	}

	run, rs, err := h.runner.Scrape(r.Context(), scraper.Request{
		StartURL: req.URL,
		Profile:  req.Profile,
		MaxPages: req.MaxPages,
		Strict:   req.Strict,
	})

	resp := ScrapeResponse{
		Profile: req.Profile,
		Records: []map[string]string{},
	}
	if run.ID != uuid.Nil {
		resp.RunID = run.ID.String()
	}

	if rs != nil {
		resp.Pages = rs.Pages()
		resp.RecordCount = rs.Len()
		resp.Fields = rs.Fields()
		for _, rec := range rs.Records() {
			resp.Records = append(resp.Records, map[string]string(rec))
		}
	}

	if err != nil {
		h.logger.Error("scrape failed", "url", req.URL, "error", err)
		resp.Error = err.Error()

		var pageErr *scraper.PageError
		if errors.As(err, &pageErr) {
			resp.FailedPage = pageErr.Page
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}
