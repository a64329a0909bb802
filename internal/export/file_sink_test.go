package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/dms-export/internal/domain/model"
)

func TestFileSinkWrite(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, ';')
	sink.Clock = func() time.Time {
		return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	}

	ds := model.Dataset{
		Name:   "01_invoices_billing_all",
		Header: []string{"Record ID", "Record Name"},
		Rows: [][]string{
			{"101", "Invoice A"},
			{"102", "has;delimiter"},
		},
	}

	path, err := sink.Write(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "01_invoices_billing_all", "export_20240315T093000.csv"), path)

	data, err := os.ReadFile(path) // #nosec G304 -- test-owned temp path
	require.NoError(t, err)

	// UTF-8 byte-order marker first, then delimited content with the
	// delimiter-carrying value quoted.
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
	assert.Equal(t,
		"Record ID;Record Name\n101;Invoice A\n102;\"has;delimiter\"\n",
		string(data[3:]))
}

func TestFileSinkDefaultDelimiter(t *testing.T) {
	sink := NewFileSink(t.TempDir(), 0)
	assert.Equal(t, ';', sink.Delimiter)
}
