package export

import (
	"context"

	"github.com/dwalters/scrapeflow/internal/records"
)

// Sink serializes one ResultSet. Field order and record order are
// preserved exactly as accumulated; partial-file cleanup on error is the
// caller's concern.
type Sink interface {
	Name() string
	Write(ctx context.Context, rs *records.ResultSet) error
}
