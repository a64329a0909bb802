package data

import (
	"context"
	"os"
	"sort"

	"github.com/target/dms-export/internal/domain/model"
)

// FileHistoryStore is the append-only run history log persisted as a single
// JSON array, capped at model.HistoryCap entries with FIFO eviction.
type FileHistoryStore struct {
	doc *docFile
}

// NewFileHistoryStore creates a history store backed by the given file path.
func NewFileHistoryStore(path string) *FileHistoryStore {
	return &FileHistoryStore{doc: newDocFile(path)}
}

// Append adds an entry, dropping the oldest entries once the cap is exceeded.
func (s *FileHistoryStore) Append(_ context.Context, entry model.HistoryEntry) error {
	return update(s.doc, func(entries []model.HistoryEntry) ([]model.HistoryEntry, error) {
		entries = append(entries, entry)
		if excess := len(entries) - model.HistoryCap; excess > 0 {
			entries = entries[excess:]
		}
		return entries, nil
	})
}

// Recent returns up to model.HistoryPageSize entries sorted descending by
// timestamp.
func (s *FileHistoryStore) Recent(_ context.Context) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	if err := s.doc.load(&entries); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > model.HistoryPageSize {
		entries = entries[:model.HistoryPageSize]
	}
	return entries, nil
}
