package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dwalters/scrapeflow/internal/records"
	"github.com/dwalters/scrapeflow/internal/scraper"
)

// MockRedisClient is a mock for the narrowed Redis client.
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testRun() scraper.RunInfo {
	return scraper.RunInfo{
		ID:        uuid.New(),
		Profile:   "quotes",
		StartURL:  "https://quotes.toscrape.com/js/",
		StartedAt: time.Now().UTC(),
	}
}

func TestObservePagePublishesEvent(t *testing.T) {
	mockRedis := new(MockRedisClient)
	run := testRun()

	mockRedis.On("XAdd", mock.Anything, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		values, ok := args.Values.(map[string]interface{})
		if !ok {
			return false
		}
		return args.Stream == "scrapeflow:events" &&
			values["event"] == "page_scraped" &&
			values["run_id"] == run.ID.String() &&
			values["page"] == 2 &&
			values["records"] == 10
	})).Return(nil)

	p := NewPublisher(mockRedis, "scrapeflow:events")
	err := p.ObservePage(context.Background(), run, 2, 10)

	require.NoError(t, err)
	mockRedis.AssertExpectations(t)
}

func TestObservePageError(t *testing.T) {
	mockRedis := new(MockRedisClient)
	mockRedis.On("XAdd", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	p := NewPublisher(mockRedis, "scrapeflow:events")
	err := p.ObservePage(context.Background(), testRun(), 1, 5)

	assert.ErrorContains(t, err, "failed to publish page event")
}

func TestPublishRunFinished(t *testing.T) {
	mockRedis := new(MockRedisClient)
	run := testRun()

	rs := records.NewResultSet([]string{"text"})
	rs.AppendPage([]records.Record{{"text": "a"}, {"text": "b"}})
	rs.AppendPage([]records.Record{{"text": "c"}})

	mockRedis.On("XAdd", mock.Anything, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		values, ok := args.Values.(map[string]interface{})
		if !ok {
			return false
		}
		return values["event"] == "run_finished" &&
			values["pages"] == 2 &&
			values["records"] == 3
	})).Return(nil)

	p := NewPublisher(mockRedis, "scrapeflow:events")
	require.NoError(t, p.PublishRunFinished(context.Background(), run, rs))
	mockRedis.AssertExpectations(t)
}

func TestPublisherClose(t *testing.T) {
	mockRedis := new(MockRedisClient)
	mockRedis.On("Close").Return(nil)

	p := NewPublisher(mockRedis, "s")
	assert.NoError(t, p.Close())
	mockRedis.AssertExpectations(t)
}
