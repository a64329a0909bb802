package data

import (
	"context"
	"os"

	apperrors "github.com/target/dms-export/internal/errors"

	"github.com/target/dms-export/internal/domain/model"
)

// FileJobStore persists the job-definition collection as a single JSON array.
// Insertion order is stable, which gives each job the 1-based position used in
// export naming.
type FileJobStore struct {
	doc *docFile
}

// NewFileJobStore creates a job store backed by the given file path.
func NewFileJobStore(path string) *FileJobStore {
	return &FileJobStore{doc: newDocFile(path)}
}

// List returns all persisted jobs in insertion order.
func (s *FileJobStore) List(_ context.Context) ([]model.ExportJob, error) {
	var jobs []model.ExportJob
	if err := s.doc.load(&jobs); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return jobs, nil
}

// Get returns the job with the given id.
func (s *FileJobStore) Get(ctx context.Context, id string) (model.ExportJob, error) {
	jobs, err := s.List(ctx)
	if err != nil {
		return model.ExportJob{}, err
	}
	for _, job := range jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return model.ExportJob{}, apperrors.NotFoundf("job %s not found", id)
}

// Upsert creates or replaces the job keyed by its id, preserving its position
// on replace.
func (s *FileJobStore) Upsert(_ context.Context, job model.ExportJob) error {
	return update(s.doc, func(jobs []model.ExportJob) ([]model.ExportJob, error) {
		for i := range jobs {
			if jobs[i].ID == job.ID {
				jobs[i] = job
				return jobs, nil
			}
		}
		return append(jobs, job), nil
	})
}

// Delete removes the job. Returns true if a job was removed.
func (s *FileJobStore) Delete(_ context.Context, id string) (bool, error) {
	removed := false
	err := update(s.doc, func(jobs []model.ExportJob) ([]model.ExportJob, error) {
		kept := jobs[:0]
		for _, job := range jobs {
			if job.ID == id {
				removed = true
				continue
			}
			kept = append(kept, job)
		}
		return kept, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
