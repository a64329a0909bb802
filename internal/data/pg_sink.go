package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
)

const exportRowsSchema = `
CREATE TABLE IF NOT EXISTS export_rows (
    id BIGSERIAL PRIMARY KEY,
    dataset TEXT NOT NULL,
    record_id TEXT NOT NULL,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSink writes export datasets into the export_rows table. It serves
// jobs whose storage target is the external database instead of a local file.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a sink over an existing connection pool.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// EnsureSchema creates the export_rows table if it does not exist. Called once
// at startup when a database sink is configured.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, exportRowsSchema); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// Write inserts one row per dataset row, with the header/value pairs rendered
// as a JSONB payload. Returns a table-qualified location string.
func (s *PostgresSink) Write(ctx context.Context, ds model.Dataset) (string, error) {
	batch := &pgx.Batch{}
	for _, row := range ds.Rows {
		payload, err := rowPayload(ds.Header, row)
		if err != nil {
			return "", err
		}
		batch.Queue(
			"INSERT INTO export_rows (dataset, record_id, payload) VALUES ($1, $2, $3)",
			ds.Name, recordID(ds.Header, row), payload,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range ds.Rows {
		if _, err := results.Exec(); err != nil {
			return "", apperrors.MapDBError(err)
		}
	}

	return fmt.Sprintf("export_rows/%s (%d rows)", ds.Name, len(ds.Rows)), nil
}

// rowPayload zips the header with one row into a JSON object.
func rowPayload(header, row []string) ([]byte, error) {
	obj := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			obj[col] = row[i]
		}
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode row payload: %w", err)
	}
	return payload, nil
}

// recordID pulls the record id column out of a rendered row. The dataset
// builder always places it first.
func recordID(header, row []string) string {
	if len(header) > 0 && len(row) > 0 {
		return row[0]
	}
	return ""
}
