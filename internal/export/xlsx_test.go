package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXRoundTrip(t *testing.T) {
	rs := sampleResultSet()
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, NewXLSX(path, "quotes").Write(context.Background(), rs))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("quotes")
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three records")

	assert.Equal(t, rs.Fields(), rows[0])
	assert.Equal(t, "a quote, with a comma", rows[1][0])
	assert.Equal(t, "second page", rows[3][0])
}

func TestXLSXDefaultSheetName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, NewXLSX(path, "").Write(context.Background(), sampleResultSet()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"records"}, f.GetSheetList())
}

func TestXLSXSaveFailure(t *testing.T) {
	err := NewXLSX(t.TempDir(), "quotes").Write(context.Background(), sampleResultSet())
	assert.Error(t, err)
}
