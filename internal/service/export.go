package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/target/dms-export/internal/core"
	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
	"github.com/target/dms-export/internal/export"
)

const (
	// detailBatchSize bounds concurrent per-record detail fetches. Batch b+1
	// does not start until every task of batch b has settled.
	detailBatchSize = 5

	// retryAttempts is the total attempt budget per remote call, including
	// the first.
	retryAttempts = 3
)

// ExportServiceOptions groups dependencies for ExportService.
type ExportServiceOptions struct {
	Docs   core.DocumentClient
	Tokens core.TokenBroker
	Jobs   core.JobStore
	Runs   *core.RunRegistry
	// FileSink serves jobs with a file storage target.
	FileSink core.RowSink
	// DBSink serves jobs with a postgres storage target. Optional.
	DBSink core.RowSink
	// Evaluator resolves computed-column expressions. Optional.
	Evaluator JMESPathEvaluator
	// SearchLimit caps the collection search result set.
	SearchLimit int
	Logger      *slog.Logger
}

// ExportService runs the export pipeline: search, bounded-concurrency detail
// fan-out, flatten, serialize.
type ExportService struct {
	docs        core.DocumentClient
	tokens      core.TokenBroker
	jobs        core.JobStore
	runs        *core.RunRegistry
	fileSink    core.RowSink
	dbSink      core.RowSink
	eval        JMESPathEvaluator
	searchLimit int
	logger      *slog.Logger
}

// NewExportService constructs a new ExportService.
func NewExportService(opts ExportServiceOptions) (*ExportService, error) {
	if opts.Docs == nil {
		return nil, errors.New("DocumentClient is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("TokenBroker is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Runs == nil {
		return nil, errors.New("RunRegistry is required")
	}
	if opts.FileSink == nil {
		return nil, errors.New("FileSink is required")
	}

	eval := opts.Evaluator
	if eval == nil {
		eval = NewJMESPathEvaluator()
	}
	searchLimit := opts.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 1000
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "export_service")
	}

	return &ExportService{
		docs:        opts.Docs,
		tokens:      opts.Tokens,
		jobs:        opts.Jobs,
		runs:        opts.Runs,
		fileSink:    opts.FileSink,
		dbSink:      opts.DBSink,
		eval:        eval,
		searchLimit: searchLimit,
		logger:      logger,
	}, nil
}

// Execute runs one export for the given job definition. The job's RunState is
// registered first and removed on every exit path; a job with a run already
// in flight is refused with a Conflict error.
func (s *ExportService) Execute(ctx context.Context, job model.ExportJob) (model.ExportResult, error) {
	state, ok := s.runs.Begin(job.ID)
	if !ok {
		return model.ExportResult{}, apperrors.Conflict("an export for this job is already running")
	}
	defer s.runs.End(job.ID, state)

	if job.Credential.Empty() && !s.tokens.HasServiceAccount() {
		return model.ExportResult{}, apperrors.MissingCredentials(
			"job carries no refresh token and no service account is configured")
	}
	s.tokens.EnsureJobSession(ctx, job.Credential)

	records, err := s.search(ctx, job)
	if err != nil {
		return model.ExportResult{}, fmt.Errorf("search collection %s: %w", job.CollectionID, err)
	}
	if len(records) == 0 {
		return model.ExportResult{}, nil
	}

	rows, err := s.fetchDetails(ctx, job, state, records)
	if err != nil {
		return model.ExportResult{}, err
	}

	ds := export.BuildDataset(s.datasetName(ctx, job), rows)
	location, err := s.sinkFor(job).Write(ctx, ds)
	if err != nil {
		return model.ExportResult{}, fmt.Errorf("write export output: %w", err)
	}

	return model.ExportResult{
		Rows:     len(ds.Rows),
		Records:  len(records),
		Location: location,
	}, nil
}

// retryPolicy builds the shared refresh-on-401 policy. Each attempt re-reads
// the current cached token, so a refresh triggered by a sibling call is
// picked up.
func (s *ExportService) retryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: retryAttempts,
		Retryable:   apperrors.IsUnauthorized,
		Recover: func(ctx context.Context) error {
			_, err := s.tokens.RefreshAccessToken(ctx)
			return err
		},
	}
}

func (s *ExportService) search(ctx context.Context, job model.ExportJob) ([]model.Record, error) {
	var records []model.Record
	err := s.retryPolicy().Do(ctx, func(ctx context.Context) error {
		token, err := s.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		found, err := s.docs.Search(ctx, core.SearchParams{
			BaseURL:      job.Credential.BaseURL,
			Token:        token,
			CollectionID: job.CollectionID,
			Filters:      job.Filters,
			Limit:        s.searchLimit,
		})
		if err != nil {
			return err
		}
		records = found
		return nil
	})
	return records, err
}

// fetchDetails processes matches in fixed-size batches. The cancellation flag
// is sampled before each batch; in-flight fetches always complete. Each
// record's rows land in a pre-allocated slot so output preserves the original
// match order regardless of completion order.
func (s *ExportService) fetchDetails(
	ctx context.Context,
	job model.ExportJob,
	state *core.RunState,
	records []model.Record,
) ([]export.Row, error) {
	slots := make([][]export.Row, len(records))

	for start := 0; start < len(records); start += detailBatchSize {
		if state.Aborted() {
			return nil, apperrors.Aborted("export aborted by request")
		}

		end := start + detailBatchSize
		if end > len(records) {
			end = len(records)
		}

		group, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			group.Go(func() error {
				slots[i] = s.fetchRecordRows(gctx, job, records[i])
				return nil
			})
		}
		// Tasks absorb their own failures into placeholder rows.
		_ = group.Wait()
	}

	var rows []export.Row
	for _, slot := range slots {
		rows = append(rows, slot...)
	}
	return rows, nil
}

// fetchRecordRows fetches one record's history and flattens it. A detail
// failure does not fail the batch; it yields a single error placeholder row.
func (s *ExportService) fetchRecordRows(
	ctx context.Context,
	job model.ExportJob,
	rec model.Record,
) []export.Row {
	enriched := s.applyExtracts(ctx, job, rec)

	var instances []model.HistoryInstance
	err := s.retryPolicy().Do(ctx, func(ctx context.Context) error {
		token, err := s.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		found, err := s.docs.GetDetail(ctx, core.DetailParams{
			BaseURL:      job.Credential.BaseURL,
			Token:        token,
			CollectionID: job.CollectionID,
			RecordID:     rec.ID,
		})
		if err != nil {
			return err
		}
		instances = found
		return nil
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "detail fetch failed, emitting placeholder row",
				"job_id", job.ID,
				"record_id", rec.ID,
				"error", err)
		}
		return export.FlattenRecord(enriched, nil, true)
	}

	return export.FlattenRecord(enriched, instances, false)
}

// applyExtracts evaluates the job's computed-column expressions against the
// record's raw payload and merges the results into its custom fields. An
// expression that fails to evaluate is skipped and logged.
func (s *ExportService) applyExtracts(ctx context.Context, job model.ExportJob, rec model.Record) model.Record {
	if len(job.Extracts) == 0 || len(rec.Raw) == 0 {
		return rec
	}

	var payload any
	if err := json.Unmarshal(rec.Raw, &payload); err != nil {
		return rec
	}

	fields := make(map[string]string, len(rec.Fields)+len(job.Extracts))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	for _, extract := range job.Extracts {
		value, err := s.eval.Evaluate(extract.Expr, payload)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "extract evaluation failed",
					"job_id", job.ID,
					"record_id", rec.ID,
					"column", extract.Column,
					"error", err)
			}
			continue
		}
		fields[extract.Column] = renderExtractValue(value)
	}

	rec.Fields = fields
	return rec
}

func renderExtractValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// datasetName computes the deterministic output name from the job's 1-based
// position among all persisted jobs plus its sanitized name, collection, and
// primary filter value.
func (s *ExportService) datasetName(ctx context.Context, job model.ExportJob) string {
	position := 1
	if jobs, err := s.jobs.List(ctx); err == nil {
		for i, j := range jobs {
			if j.ID == job.ID {
				position = i + 1
				break
			}
		}
	}

	collection := job.CollectionName
	if collection == "" {
		collection = job.CollectionID
	}

	return export.DatasetName(export.NameParams{
		Position:       position,
		JobName:        job.Name,
		CollectionName: collection,
		PrimaryFilter:  job.PrimaryFilterValue(),
	})
}

func (s *ExportService) sinkFor(job model.ExportJob) core.RowSink {
	if job.Storage.Kind == model.StorageKindPostgres && s.dbSink != nil {
		return s.dbSink
	}
	return s.fileSink
}
