package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dwalters/scrapeflow/internal/records"
	"github.com/dwalters/scrapeflow/internal/scraper"
)

const schema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id UUID PRIMARY KEY,
	profile TEXT NOT NULL,
	start_url TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	pages INT NOT NULL,
	record_count INT NOT NULL
);

CREATE TABLE IF NOT EXISTS scrape_records (
	run_id UUID NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
	position INT NOT NULL,
	fields JSONB NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// RunStore persists finished scrape runs and their records.
type RunStore struct {
	db     *DB
	logger *slog.Logger
}

func NewRunStore(db *DB) *RunStore {
	return &RunStore{
		db:     db,
		logger: slog.Default().With("component", "run_store"),
	}
}

func (s *RunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun writes the run header and all records in one transaction.
// Record position preserves accumulation order.
func (s *RunStore) SaveRun(ctx context.Context, run scraper.RunInfo, rs *records.ResultSet) error {
	start := time.Now()

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO scrape_runs (id, profile, start_url, started_at, pages, record_count)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID, run.Profile, run.StartURL, run.StartedAt, rs.Pages(), rs.Len())
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		batch := &pgx.Batch{}
		for i, rec := range rs.Records() {
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal record %d: %w", i, err)
			}
			batch.Queue(
				`INSERT INTO scrape_records (run_id, position, fields) VALUES ($1, $2, $3)`,
				run.ID, i, payload)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for range rs.Records() {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert record batch: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return err
	}

	s.logger.Info("persisted run",
		"run_id", run.ID,
		"records", rs.Len(),
		"took", time.Since(start))
	return nil
}

// CountRecords reports how many records a run produced, for consumers that
// only need the header.
func (s *RunStore) CountRecords(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT record_count FROM scrape_runs WHERE id = $1`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records for run %s: %w", runID, err)
	}
	return count, nil
}
