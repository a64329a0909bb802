package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
)

func newTestJobStore(t *testing.T) *FileJobStore {
	t.Helper()
	return NewFileJobStore(filepath.Join(t.TempDir(), "jobs.json"))
}

func TestFileJobStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestJobStore(t)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	first := model.ExportJob{ID: "a", Name: "first", Schedule: "0 6 * * *", CollectionID: "c1"}
	second := model.ExportJob{ID: "b", Name: "second", Schedule: "0 7 * * *", CollectionID: "c2"}
	require.NoError(t, store.Upsert(ctx, first))
	require.NoError(t, store.Upsert(ctx, second))

	t.Run("list preserves insertion order", func(t *testing.T) {
		jobs, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "a", jobs[0].ID)
		assert.Equal(t, "b", jobs[1].ID)
	})

	t.Run("get by id", func(t *testing.T) {
		job, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "second", job.Name)
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("upsert replaces in place", func(t *testing.T) {
		first.Name = "renamed"
		require.NoError(t, store.Upsert(ctx, first))

		jobs, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "renamed", jobs[0].Name)
		assert.Equal(t, "a", jobs[0].ID)
	})

	t.Run("delete reports removal", func(t *testing.T) {
		removed, err := store.Delete(ctx, "a")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Delete(ctx, "a")
		require.NoError(t, err)
		assert.False(t, removed)

		jobs, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "b", jobs[0].ID)
	})
}

func TestFileJobStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.json")

	store := NewFileJobStore(path)
	require.NoError(t, store.Upsert(ctx, model.ExportJob{ID: "a", Name: "persisted"}))

	reopened := NewFileJobStore(path)
	job, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "persisted", job.Name)
}
