package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/target/dms-export/internal/core"
	"github.com/target/dms-export/internal/data"
	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
	obserrors "github.com/target/dms-export/internal/observability/errors"
	"github.com/target/dms-export/internal/observability/metrics"
	"github.com/target/dms-export/internal/observability/statsd"
)

// Exporter runs one export for a job definition.
type Exporter interface {
	Execute(ctx context.Context, job model.ExportJob) (model.ExportResult, error)
}

// SchedulerServiceOptions groups dependencies for SchedulerService.
type SchedulerServiceOptions struct {
	Jobs    core.JobStore
	History core.HistoryStore
	Trigger core.TimeTrigger
	// Exporter runs the pipeline for a due or forced job.
	Exporter Exporter
	Runs     *core.RunRegistry
	// Evaluator validates computed-column expressions on save. Optional.
	Evaluator    JMESPathEvaluator
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// SchedulerService is the job registry: it persists job definitions, keeps an
// armed timer per enabled job, and records every run transition in the
// history log.
type SchedulerService struct {
	jobs     core.JobStore
	history  core.HistoryStore
	trigger  core.TimeTrigger
	exporter Exporter
	runs     *core.RunRegistry
	eval     JMESPathEvaluator
	clock    data.TimeProvider
	logger   *slog.Logger
	metrics  statsd.Sink

	mu    sync.Mutex
	armed map[string]core.TriggerHandle
}

// NewSchedulerService constructs a new SchedulerService.
func NewSchedulerService(opts SchedulerServiceOptions) (*SchedulerService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.History == nil {
		return nil, errors.New("HistoryStore is required")
	}
	if opts.Trigger == nil {
		return nil, errors.New("TimeTrigger is required")
	}
	if opts.Exporter == nil {
		return nil, errors.New("Exporter is required")
	}
	if opts.Runs == nil {
		return nil, errors.New("RunRegistry is required")
	}

	eval := opts.Evaluator
	if eval == nil {
		eval = NewJMESPathEvaluator()
	}
	clock := opts.TimeProvider
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var sink statsd.Sink = opts.Metrics
	if opts.Metrics == nil {
		sink = (*statsd.Client)(nil)
	}

	return &SchedulerService{
		jobs:     opts.Jobs,
		history:  opts.History,
		trigger:  opts.Trigger,
		exporter: opts.Exporter,
		runs:     opts.Runs,
		eval:     eval,
		clock:    clock,
		logger:   logger.With("component", "scheduler_service"),
		metrics:  sink,
		armed:    make(map[string]core.TriggerHandle),
	}, nil
}

// Load arms timers for every enabled persisted job. A job whose schedule no
// longer parses is skipped with a log line; startup never aborts over one bad
// definition.
func (s *SchedulerService) Load(ctx context.Context) error {
	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	for _, job := range jobs {
		if !job.Enabled {
			continue
		}
		if err := s.arm(job); err != nil {
			s.logger.WarnContext(ctx, "skipping job with invalid schedule",
				"job_id", job.ID,
				"job_name", job.Name,
				"schedule", job.Schedule,
				"error", err)
		}
	}

	s.logger.InfoContext(ctx, "scheduler loaded", "jobs", len(jobs), "armed", s.armedCount())
	return nil
}

// Save validates and persists a job definition, assigning an id on create,
// then re-arms its timer to pick up schedule or enablement changes. The stored
// state and the armed timer never diverge: validation happens entirely before
// the upsert.
func (s *SchedulerService) Save(ctx context.Context, job model.ExportJob) (model.ExportJob, error) {
	if err := job.Validate(); err != nil {
		return model.ExportJob{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job definition")
	}
	if err := s.trigger.Validate(job.Schedule); err != nil {
		return model.ExportJob{}, err
	}
	for _, extract := range job.Extracts {
		if err := s.eval.Validate(extract.Expr); err != nil {
			return model.ExportJob{}, apperrors.Validationf("invalid extract expression for column %q: %v", extract.Column, err)
		}
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
		job.CreatedAt = s.clock.Now()
	} else if existing, err := s.jobs.Get(ctx, job.ID); err == nil {
		job.CreatedAt = existing.CreatedAt
	}

	if err := s.jobs.Upsert(ctx, job); err != nil {
		return model.ExportJob{}, fmt.Errorf("persist job: %w", err)
	}

	s.disarm(job.ID)
	if job.Enabled {
		if err := s.arm(job); err != nil {
			// Validate passed above, so arming only fails on a racing Close.
			s.logger.WarnContext(ctx, "arming saved job failed", "job_id", job.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "job saved",
		"job_id", job.ID,
		"job_name", job.Name,
		"schedule", job.Schedule,
		"enabled", job.Enabled)
	return job, nil
}

// Delete removes a job, disarms its timer, and flags any in-flight run for
// cooperative abort. History entries for the job are kept.
func (s *SchedulerService) Delete(ctx context.Context, id string) error {
	removed, err := s.jobs.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if !removed {
		return apperrors.NotFoundf("job %s not found", id)
	}

	s.disarm(id)
	if s.runs.Abort(id) {
		s.logger.InfoContext(ctx, "flagged in-flight run for abort", "job_id", id)
	}

	s.logger.InfoContext(ctx, "job deleted", "job_id", id)
	return nil
}

// List returns all persisted jobs.
func (s *SchedulerService) List(ctx context.Context) ([]model.ExportJob, error) {
	return s.jobs.List(ctx)
}

// ForceRun starts an export for the job immediately, outside its schedule.
// The run proceeds in the background; the call returns once it has started.
// A job with a run already in flight is rejected with a Conflict error, the
// same overlap rule a due timer applies.
func (s *SchedulerService) ForceRun(ctx context.Context, id string) error {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.runs.Active(id) {
		s.metrics.Count("scheduler.run", 1, map[string]string{"result": metrics.ResultNoop})
		return apperrors.Conflict("an export for this job is already running")
	}
	go s.runExport(job)
	return nil
}

// Abort flags the job's in-flight run for cooperative cancellation. Reports
// false when no run is active.
func (s *SchedulerService) Abort(id string) bool {
	return s.runs.Abort(id)
}

// RunningIDs returns the ids of jobs with an active run, sorted.
func (s *SchedulerService) RunningIDs() []string {
	ids := s.runs.IDs()
	sort.Strings(ids)
	return ids
}

// History returns the most recent run history entries, newest first.
func (s *SchedulerService) History(ctx context.Context) ([]model.HistoryEntry, error) {
	return s.history.Recent(ctx)
}

// Close disarms every timer. In-flight runs are left to finish.
func (s *SchedulerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, handle := range s.armed {
		handle.Disarm()
		delete(s.armed, id)
	}
}

func (s *SchedulerService) arm(job model.ExportJob) error {
	id := job.ID
	handle, err := s.trigger.Arm(job.Schedule, func() { s.fire(id) })
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.armed[id]; ok {
		prev.Disarm()
	}
	s.armed[id] = handle
	return nil
}

func (s *SchedulerService) disarm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle, ok := s.armed[id]; ok {
		handle.Disarm()
		delete(s.armed, id)
	}
}

func (s *SchedulerService) armedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// fire handles a due timer. The job is re-read so a definition edited between
// arming and firing runs with its current filters and credential.
func (s *SchedulerService) fire(id string) {
	ctx := context.Background()

	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "due job no longer exists", "job_id", id, "error", err)
		return
	}
	if s.runs.Active(id) {
		s.logger.InfoContext(ctx, "skipping run, previous run still active",
			"job_id", id, "job_name", job.Name)
		s.metrics.Count("scheduler.run", 1, map[string]string{"result": metrics.ResultNoop})
		return
	}
	s.runExport(job)
}

// runExport executes one run end to end: a RUNNING history entry up front and
// exactly one terminal entry regardless of outcome. Runs on a background
// context so a due export survives request cancellation and shutdown starts.
func (s *SchedulerService) runExport(job model.ExportJob) {
	ctx := context.Background()
	started := s.clock.Now()

	s.appendHistory(ctx, job, model.RunStatusRunning, "export started")
	s.logger.InfoContext(ctx, "export run started", "job_id", job.ID, "job_name", job.Name)

	result, err := s.exporter.Execute(ctx, job)

	elapsed := s.clock.Now().Sub(started)
	tag := metrics.ResultSuccess
	switch {
	case err == nil:
		msg := fmt.Sprintf("exported %d rows for %d records", result.Rows, result.Records)
		if result.Location != "" {
			msg += " to " + result.Location
		}
		s.appendHistory(ctx, job, model.RunStatusSuccess, msg)
		s.logger.InfoContext(ctx, "export run finished",
			"job_id", job.ID,
			"rows", result.Rows,
			"records", result.Records,
			"duration", elapsed)
	case apperrors.IsAborted(err):
		tag = metrics.ResultAborted
		s.appendHistory(ctx, job, model.RunStatusError, "export aborted before completion")
		s.logger.InfoContext(ctx, "export run aborted", "job_id", job.ID, "duration", elapsed)
	default:
		tag = metrics.ResultError
		s.appendHistory(ctx, job, model.RunStatusError, fmt.Sprintf("export failed: %v", err))
		s.logger.ErrorContext(ctx, "export run failed",
			"job_id", job.ID,
			"duration", elapsed,
			"error", err)
	}

	tags := map[string]string{"result": tag}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	s.metrics.Count("scheduler.run", 1, tags)
	s.metrics.Timing("scheduler.run_duration", elapsed, tags)
}

// appendHistory records one transition. A store failure is logged and
// swallowed so bookkeeping never kills a run.
func (s *SchedulerService) appendHistory(ctx context.Context, job model.ExportJob, status model.RunStatus, msg string) {
	entry := model.HistoryEntry{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		JobName:   job.Name,
		Status:    status,
		Message:   msg,
		Timestamp: s.clock.Now(),
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "append history failed",
			"job_id", job.ID,
			"status", status,
			"error", err)
	}
}
