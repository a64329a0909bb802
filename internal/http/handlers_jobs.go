// Package httpx provides the HTTP handlers and router for the dms-export
// job-management API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/target/dms-export/internal/domain/model"
	"github.com/target/dms-export/internal/service"
)

// JobHandlers provides HTTP handlers for job registry operations.
type JobHandlers struct {
	Svc *service.SchedulerService
}

// List handles HTTP requests to list all export job definitions.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Svc.List(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if jobs == nil {
		jobs = []model.ExportJob{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// Save handles HTTP requests to create or replace an export job definition.
// A request without an id creates; one with an id replaces.
func (h *JobHandlers) Save(w http.ResponseWriter, r *http.Request) {
	var job model.ExportJob
	if !DecodeJSON(w, r, &job) {
		return
	}

	saved, err := h.Svc.Save(r.Context(), job)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

// Delete handles HTTP requests to remove an export job. Any in-flight run for
// the job is flagged for abort.
func (h *JobHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	if err := h.Svc.Delete(r.Context(), id); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Run handles HTTP requests to start an export immediately, outside the job's
// schedule. The export proceeds in the background.
func (h *JobHandlers) Run(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	if err := h.Svc.ForceRun(r.Context(), id); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Abort handles HTTP requests to flag a job's in-flight run for cooperative
// cancellation. Responds with whether a run was actually flagged.
func (h *JobHandlers) Abort(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"aborted": h.Svc.Abort(id)})
}

// Running handles HTTP requests to list the ids of jobs with an active run.
func (h *JobHandlers) Running(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]string{"running": h.Svc.RunningIDs()})
}

// History handles HTTP requests for the most recent run history entries,
// newest first.
func (h *JobHandlers) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.History(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	WriteJSON(w, http.StatusOK, entries)
}
