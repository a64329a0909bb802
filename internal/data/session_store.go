package data

import (
	"context"
	"os"

	apperrors "github.com/target/dms-export/internal/errors"

	"github.com/target/dms-export/internal/domain/model"
)

// FileSessionStore persists the single cached session as one JSON object.
type FileSessionStore struct {
	doc *docFile
}

// NewFileSessionStore creates a session store backed by the given file path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{doc: newDocFile(path)}
}

// Load returns the persisted session.
func (s *FileSessionStore) Load(_ context.Context) (model.Session, error) {
	var sess model.Session
	if err := s.doc.load(&sess); err != nil {
		if os.IsNotExist(err) {
			return model.Session{}, apperrors.NotFound("no session persisted")
		}
		return model.Session{}, err
	}
	return sess, nil
}

// Save replaces the persisted session wholesale. Last writer wins.
func (s *FileSessionStore) Save(_ context.Context, sess model.Session) error {
	return s.doc.save(sess)
}
