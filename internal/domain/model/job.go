// Package model contains the domain types for the dms-export system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StorageKind selects where a job's export rows are written.
type StorageKind string

const (
	// StorageKindFile writes a delimited file under the export directory.
	StorageKindFile StorageKind = "file"
	// StorageKindPostgres inserts rows into the configured Postgres database.
	StorageKindPostgres StorageKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageKind.
func (k *StorageKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "", "file":
		*k = StorageKindFile
		return nil
	case "postgres":
		*k = StorageKindPostgres
		return nil
	default:
		return fmt.Errorf("invalid StorageKind: %q (valid options: file, postgres)", v)
	}
}

// StorageTarget describes the destination of a job's export output.
type StorageTarget struct {
	Kind StorageKind `json:"kind"`
}

// Credential is the long-lived credential a job carries for unattended runs.
// TokenURL may be empty, in which case the broker falls back to the configured
// default token endpoint.
type Credential struct {
	RefreshToken string `json:"refresh_token"`
	BaseURL      string `json:"base_url"`
	TokenURL     string `json:"token_url,omitempty"`
}

// Empty reports whether the credential carries no usable refresh token.
func (c Credential) Empty() bool {
	return strings.TrimSpace(c.RefreshToken) == ""
}

// FilterValue is a search predicate value: either a single scalar or a
// two-element range (used for date fields). It decodes from a bare JSON string
// or a two-element string array and re-encodes the same way.
type FilterValue struct {
	Low     string
	High    string
	IsRange bool
}

// Scalar constructs a single-valued FilterValue.
func Scalar(v string) FilterValue {
	return FilterValue{Low: v}
}

// Range constructs a two-element range FilterValue.
func Range(from, to string) FilterValue {
	return FilterValue{Low: from, High: to, IsRange: true}
}

// UnmarshalJSON accepts "value" or ["from","to"].
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = FilterValue{Low: s}
		return nil
	}

	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("filter value must be a string or a two-element array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("filter range must have exactly 2 elements, got %d", len(pair))
	}
	*v = FilterValue{Low: pair[0], High: pair[1], IsRange: true}
	return nil
}

// MarshalJSON emits the same wire shape UnmarshalJSON accepts.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	if v.IsRange {
		return json.Marshal([2]string{v.Low, v.High})
	}
	return json.Marshal(v.Low)
}

// Filter is a single search predicate applied to the remote collection.
type Filter struct {
	Field string      `json:"field"`
	Value FilterValue `json:"value"`
}

// Extract is an optional computed export column: a JMESPath expression
// evaluated against each record's raw payload.
type Extract struct {
	Column string `json:"column"`
	Expr   string `json:"expr"`
}

// ExportJob is a persisted description of what to export, how often, and where
// to store it. Jobs are created and edited through the registry API and never
// mutated by the pipeline.
type ExportJob struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Schedule       string        `json:"schedule"`
	CollectionID   string        `json:"collection_id"`
	CollectionName string        `json:"collection_name"`
	Filters        []Filter      `json:"filters,omitempty"`
	Extracts       []Extract     `json:"extracts,omitempty"`
	Credential     Credential    `json:"credential"`
	Enabled        bool          `json:"enabled"`
	CreatedAt      time.Time     `json:"created_at"`
	Storage        StorageTarget `json:"storage"`
}

// Validate checks the required fields of a job definition. Schedule syntax is
// validated separately by the registry against its time trigger.
func (j *ExportJob) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return errors.New("job name is required")
	}
	if strings.TrimSpace(j.CollectionID) == "" {
		return errors.New("collection id is required")
	}
	if strings.TrimSpace(j.Schedule) == "" {
		return errors.New("schedule is required")
	}
	for i, f := range j.Filters {
		if strings.TrimSpace(f.Field) == "" {
			return fmt.Errorf("filter %d: field is required", i)
		}
	}
	for i, e := range j.Extracts {
		if strings.TrimSpace(e.Column) == "" {
			return fmt.Errorf("extract %d: column is required", i)
		}
		if strings.TrimSpace(e.Expr) == "" {
			return fmt.Errorf("extract %d: expression is required", i)
		}
	}
	return nil
}

// PrimaryFilterValue returns the first filter's value (the low bound for
// ranges), used in export naming. Empty when the job has no filters.
func (j *ExportJob) PrimaryFilterValue() string {
	if len(j.Filters) == 0 {
		return ""
	}
	return j.Filters[0].Value.Low
}
