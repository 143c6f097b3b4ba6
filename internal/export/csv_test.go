package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwalters/scrapeflow/internal/records"
)

func sampleResultSet() *records.ResultSet {
	rs := records.NewResultSet([]string{"text", "author", "tags"})
	rs.AppendPage([]records.Record{
		{"text": "a quote, with a comma", "author": "Ann", "tags": "one, two"},
		{"text": "plain", "author": "Bob", "tags": ""},
	})
	rs.AppendPage([]records.Record{
		{"text": "second page", "author": "Cyd", "tags": "three"},
	})
	return rs
}

func TestCSVRoundTrip(t *testing.T) {
	rs := sampleResultSet()
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, NewCSV(path).Write(context.Background(), rs))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three records")

	assert.Equal(t, rs.Fields(), rows[0])
	for i := 0; i < rs.Len(); i++ {
		assert.Equal(t, rs.Row(i), rows[i+1], "row %d must round-trip field for field", i)
	}
}

func TestCSVCreatesOutputDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "out.csv")

	require.NoError(t, NewCSV(path).Write(context.Background(), sampleResultSet()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCSVWriteFailure(t *testing.T) {
	// Target path is a directory, so create must fail.
	dir := t.TempDir()

	err := NewCSV(dir).Write(context.Background(), sampleResultSet())
	assert.Error(t, err)
}

func TestCSVCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCSV(filepath.Join(t.TempDir(), "out.csv")).Write(ctx, sampleResultSet())
	assert.ErrorIs(t, err, context.Canceled)
}
