package core

import (
	"sync"
	"sync/atomic"
)

// RunState is the cooperative cancellation token owned by a single run. It is
// created at run start and removed unconditionally when the run ends; it is
// never persisted.
type RunState struct {
	aborted atomic.Bool
}

// Abort requests cooperative cancellation. The pipeline observes the flag at
// batch boundaries only; in-flight calls complete.
func (s *RunState) Abort() {
	s.aborted.Store(true)
}

// Aborted reports whether cancellation has been requested.
func (s *RunState) Aborted() bool {
	return s.aborted.Load()
}

// RunRegistry tracks in-flight runs keyed by job id. It is owned by the
// scheduler service instance and shared with the export pipeline; it is safe
// for concurrent use.
type RunRegistry struct {
	mu   sync.Mutex
	runs map[string]*RunState
}

// NewRunRegistry creates an empty registry.
func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: make(map[string]*RunState)}
}

// Begin registers a fresh RunState for the job id. A job with a run already
// in flight is refused, so an overlapping run can never displace the live
// state or make it unreachable for Abort.
func (r *RunRegistry) Begin(jobID string) (*RunState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[jobID]; ok {
		return nil, false
	}
	state := &RunState{}
	r.runs[jobID] = state
	return state, true
}

// End removes the run entry, but only while it still belongs to the given
// state: a run that was replaced in the registry must not evict its successor.
// Safe to call when no entry exists.
func (r *RunRegistry) End(jobID string, state *RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs[jobID] == state {
		delete(r.runs, jobID)
	}
}

// Abort sets the cancellation flag for the job's run if one is in flight.
// Returns false as a no-op when the job has no active run.
func (r *RunRegistry) Abort(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.runs[jobID]
	if !ok {
		return false
	}
	state.Abort()
	return true
}

// Active reports whether the job has an in-flight run.
func (r *RunRegistry) Active(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[jobID]
	return ok
}

// IDs returns the ids of all in-flight runs.
func (r *RunRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	return ids
}
