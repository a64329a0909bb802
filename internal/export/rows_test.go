package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/dms-export/internal/domain/model"
)

func TestFlattenRecord(t *testing.T) {
	rec := model.Record{
		ID:     "101",
		Name:   "Invoice A",
		Fields: map[string]string{"Amount": "120.50"},
	}

	t.Run("one row per step, newest version first", func(t *testing.T) {
		instances := []model.HistoryInstance{
			{Version: 1, Steps: []model.InstanceStep{
				{Name: "Submit", Actor: "alice", Status: "DONE", CompletedAt: "2024-03-01"},
			}},
			{Version: 2, Steps: []model.InstanceStep{
				{Name: "Review", Actor: "bob", Status: "DONE", CompletedAt: "2024-03-05"},
				{Name: "Approve", Actor: "carol", Status: "OPEN"},
			}},
		}

		rows := FlattenRecord(rec, instances, false)
		require.Len(t, rows, 3)

		assert.Equal(t, "2", rows[0].Version)
		assert.Equal(t, "Review", rows[0].Activity)
		assert.Equal(t, "Approve", rows[1].Activity)
		assert.Equal(t, "1", rows[2].Version)
		assert.Equal(t, "Submit", rows[2].Activity)

		for _, row := range rows {
			assert.Equal(t, "101", row.RecordID)
			assert.Equal(t, "Invoice A", row.RecordName)
			assert.Equal(t, "120.50", row.Fields["Amount"])
		}
	})

	t.Run("no steps yields NO_HISTORY placeholder", func(t *testing.T) {
		rows := FlattenRecord(rec, nil, false)
		require.Len(t, rows, 1)
		assert.Equal(t, model.ActivityNoHistory, rows[0].Activity)
		assert.Equal(t, "101", rows[0].RecordID)
		assert.Empty(t, rows[0].Version)
	})

	t.Run("instances without steps still yield placeholder", func(t *testing.T) {
		instances := []model.HistoryInstance{{Version: 1}, {Version: 2}}
		rows := FlattenRecord(rec, instances, false)
		require.Len(t, rows, 1)
		assert.Equal(t, model.ActivityNoHistory, rows[0].Activity)
	})

	t.Run("fetch failure yields FETCH_ERROR placeholder", func(t *testing.T) {
		rows := FlattenRecord(rec, nil, true)
		require.Len(t, rows, 1)
		assert.Equal(t, model.ActivityFetchError, rows[0].Activity)
		assert.Equal(t, "120.50", rows[0].Fields["Amount"])
	})
}

func TestBuildDataset(t *testing.T) {
	rows := []Row{
		{
			RecordID:   "101",
			RecordName: "Invoice A",
			Version:    "1",
			Activity:   "Submit",
			Actor:      "alice",
			Status:     "DONE",
			Fields:     map[string]string{"Zone": "east", "Amount": "10"},
		},
		{
			RecordID:   "102",
			RecordName: "Invoice B",
			Activity:   model.ActivityNoHistory,
			Fields:     map[string]string{"Currency": "EUR"},
		},
	}

	ds := BuildDataset("01_invoices_billing_all", rows)

	assert.Equal(t, "01_invoices_billing_all", ds.Name)

	// Fixed columns first, then the sorted union of custom field names.
	assert.Equal(t, []string{
		"Record ID", "Record Name", "Version", "Activity", "Actor", "Status",
		"Completed At", "Comment",
		"Amount", "Currency", "Zone",
	}, ds.Header)

	require.Len(t, ds.Rows, 2)
	for _, row := range ds.Rows {
		assert.Len(t, row, len(ds.Header))
	}

	assert.Equal(t, "101", ds.Rows[0][0])
	assert.Equal(t, "10", ds.Rows[0][8])
	assert.Equal(t, "", ds.Rows[0][9])
	assert.Equal(t, "east", ds.Rows[0][10])

	assert.Equal(t, model.ActivityNoHistory, ds.Rows[1][3])
	assert.Equal(t, "EUR", ds.Rows[1][9])
}

func TestBuildDatasetEmpty(t *testing.T) {
	ds := BuildDataset("empty", nil)
	assert.Equal(t, "empty", ds.Name)
	assert.Len(t, ds.Header, 8)
	assert.Empty(t, ds.Rows)
}
