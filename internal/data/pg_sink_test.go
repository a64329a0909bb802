package data

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowPayload(t *testing.T) {
	header := []string{"Record ID", "Record Name", "Amount"}

	t.Run("zips header with values", func(t *testing.T) {
		payload, err := rowPayload(header, []string{"101", "Invoice A", "120.50"})
		require.NoError(t, err)

		var obj map[string]string
		require.NoError(t, json.Unmarshal(payload, &obj))
		assert.Equal(t, map[string]string{
			"Record ID":   "101",
			"Record Name": "Invoice A",
			"Amount":      "120.50",
		}, obj)
	})

	t.Run("short row drops trailing columns", func(t *testing.T) {
		payload, err := rowPayload(header, []string{"101"})
		require.NoError(t, err)

		var obj map[string]string
		require.NoError(t, json.Unmarshal(payload, &obj))
		assert.Equal(t, map[string]string{"Record ID": "101"}, obj)
	})
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "101", recordID([]string{"Record ID"}, []string{"101", "x"}))
	assert.Empty(t, recordID(nil, nil))
	assert.Empty(t, recordID([]string{"Record ID"}, nil))
}
