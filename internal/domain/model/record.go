package model

import "encoding/json"

// Record is a single matched item from a remote collection search. Fields
// holds the record's custom field values verbatim; Raw is the platform payload
// the record was decoded from, kept for computed-column extraction.
type Record struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
	Raw    json.RawMessage   `json:"-"`
}

// InstanceStep is one ordered step inside a processing-history instance.
type InstanceStep struct {
	Name        string `json:"name"`
	Actor       string `json:"actor"`
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at"`
	Comment     string `json:"comment"`
}

// HistoryInstance is a workflow-like processing-history instance attached to a
// record. Instances are exported in descending Version order.
type HistoryInstance struct {
	Version int            `json:"version"`
	Steps   []InstanceStep `json:"steps"`
}

// Activity markers used for placeholder rows.
const (
	// ActivityNoHistory tags the single row emitted for a record with no
	// processing history.
	ActivityNoHistory = "NO_HISTORY"
	// ActivityFetchError tags the single row emitted for a record whose
	// detail fetch failed.
	ActivityFetchError = "FETCH_ERROR"
)

// ExportResult summarizes a finished pipeline run. It is ephemeral and only
// used to compose the terminal history message.
type ExportResult struct {
	Rows     int    `json:"rows"`
	Records  int    `json:"records"`
	Location string `json:"location"`
}

// Dataset is the serialization input: a named table with a fixed-then-dynamic
// header and fully rendered string rows.
type Dataset struct {
	Name   string
	Header []string
	Rows   [][]string
}
