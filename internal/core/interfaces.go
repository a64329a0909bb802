// Package core defines the interfaces between the scheduler, the export
// pipeline, and their persistence and platform adapters.
package core

import (
	"context"

	"github.com/target/dms-export/internal/domain/model"
)

// JobStore persists export job definitions as a flat document. Implementations
// must survive process restart.
type JobStore interface {
	// List returns all persisted jobs in stable (insertion) order.
	List(ctx context.Context) ([]model.ExportJob, error)
	// Get returns the job with the given id.
	// Returns a NotFound AppError when absent.
	Get(ctx context.Context, id string) (model.ExportJob, error)
	// Upsert creates or replaces the job keyed by its id.
	Upsert(ctx context.Context, job model.ExportJob) error
	// Delete removes the job. Returns true if a job was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// HistoryStore is the append-only, capped run history log.
type HistoryStore interface {
	// Append adds an entry, evicting the oldest once the cap is reached.
	Append(ctx context.Context, entry model.HistoryEntry) error
	// Recent returns the most recent entries (up to model.HistoryPageSize),
	// newest first.
	Recent(ctx context.Context) ([]model.HistoryEntry, error)
}

// SessionStore persists the single cached session object.
type SessionStore interface {
	// Load returns the persisted session.
	// Returns a NotFound AppError when none has been saved.
	Load(ctx context.Context) (model.Session, error)
	// Save replaces the persisted session wholesale.
	Save(ctx context.Context, sess model.Session) error
}

// SearchParams describes one collection search against the remote platform.
type SearchParams struct {
	BaseURL      string
	Token        string
	CollectionID string
	Filters      []model.Filter
	Limit        int
}

// DetailParams describes one per-record history retrieval.
type DetailParams struct {
	BaseURL      string
	Token        string
	CollectionID string
	RecordID     string
}

// DocumentClient is the abstract capability over the remote document-management
// platform. Both calls require a bearer token and can fail with an
// authorization error the retry policy recognizes.
type DocumentClient interface {
	Search(ctx context.Context, p SearchParams) ([]model.Record, error)
	GetDetail(ctx context.Context, p DetailParams) ([]model.HistoryInstance, error)
}

// TokenBroker keeps a usable access token available to background runs without
// user interaction.
type TokenBroker interface {
	// AccessToken returns the cached token, attempting a service-account
	// exchange when nothing is cached. Fails with a NoSession AppError.
	AccessToken(ctx context.Context) (string, error)
	// RefreshAccessToken exchanges the cached refresh token (or falls back to
	// the service account), replacing and persisting the cached session.
	RefreshAccessToken(ctx context.Context) (string, error)
	// EnsureJobSession seeds the cache from a job's embedded credential when
	// no session is cached yet.
	EnsureJobSession(ctx context.Context, cred model.Credential)
	// HasServiceAccount reports whether background credentials are configured.
	HasServiceAccount() bool
}

// TriggerHandle represents one armed timer.
type TriggerHandle interface {
	// Disarm stops the timer. Idempotent; does not cancel an in-flight run.
	Disarm()
}

// TimeTrigger abstracts the recurrence-expression timer dependency.
type TimeTrigger interface {
	// Validate reports whether expr is a syntactically valid 5-field
	// recurrence expression.
	Validate(expr string) error
	// Arm schedules fn according to expr and returns a handle to disarm it.
	Arm(expr string, fn func()) (TriggerHandle, error)
}

// RowSink writes a fully rendered dataset to a storage destination and returns
// a human-readable location for the history message.
type RowSink interface {
	Write(ctx context.Context, ds model.Dataset) (string, error)
}
