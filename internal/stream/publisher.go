package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dwalters/scrapeflow/internal/records"
	"github.com/dwalters/scrapeflow/internal/scraper"
)

// RedisClient is the subset of the redis client the publisher needs,
// narrowed for testing.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher emits per-page and per-run events to a Redis stream so
// downstream consumers can follow scrape progress.
type Publisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: slog.Default().With("component", "stream_publisher"),
	}
}

// ObservePage implements scraper.PageObserver.
func (p *Publisher) ObservePage(ctx context.Context, run scraper.RunInfo, page, count int) error {
	values := map[string]interface{}{
		"event":   "page_scraped",
		"run_id":  run.ID.String(),
		"profile": run.Profile,
		"page":    page,
		"records": count,
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: p.stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to publish page event: %w", err)
	}

	p.logger.Debug("published page event", "run_id", run.ID, "page", page, "records", count)
	return nil
}

// PublishRunFinished emits the run summary event.
func (p *Publisher) PublishRunFinished(ctx context.Context, run scraper.RunInfo, rs *records.ResultSet) error {
	values := map[string]interface{}{
		"event":   "run_finished",
		"run_id":  run.ID.String(),
		"profile": run.Profile,
		"url":     run.StartURL,
		"pages":   rs.Pages(),
		"records": rs.Len(),
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: p.stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
