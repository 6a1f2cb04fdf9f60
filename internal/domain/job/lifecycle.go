// Package job implements the asynchronous batch-job lifecycle shared by
// every generation feature: submit a batch, persist a JobRecord, poll until
// a terminal state, then materialize a ResultArtifact.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/observability/metrics"
	"github.com/openlearn/adaptive-api/internal/observability/statsd"
)

// State is the resolved lifecycle state for a (feature, subject) pair.
type State string

const (
	// StateNone means no JobRecord and no ResultArtifact exist.
	StateNone State = "none"
	// StateProcessing means a JobRecord exists and the batch has not ended.
	StateProcessing State = "processing"
	// StateDone means a ResultArtifact exists.
	StateDone State = "done"
)

// Assembler turns the raw per-chunk batch results into the feature's
// artifact. It runs only when the batch ended with at least one success.
// Returning an error marks the job as failed extraction: the JobRecord is
// deleted and no artifact is written.
type Assembler[T any] func(rec *model.JobRecord, results []model.BatchResult) (*T, error)

// Options groups dependencies for a Lifecycle.
type Options[T any] struct {
	Feature  core.Feature     // Required: KV key namespace
	KV       core.KVStore     // Required: external state
	Batch    core.BatchClient // Required: batch-inference service
	Assemble Assembler[T]     // Required: result extraction/merge/validation
	Now      func() time.Time // Optional: clock override for tests
	Logger   *slog.Logger     // Optional: structured logger
	Metrics  statsd.Sink      // Optional: lifecycle transition metrics
}

// Lifecycle is the generic batch-job state machine. Each feature is a thin
// configuration of this type rather than its own copy of the protocol.
type Lifecycle[T any] struct {
	feature  core.Feature
	kv       core.KVStore
	batch    core.BatchClient
	assemble Assembler[T]
	now      func() time.Time
	logger   *slog.Logger
	metrics  statsd.Sink
}

// New constructs a Lifecycle.
func New[T any](opts Options[T]) (*Lifecycle[T], error) {
	if opts.Feature == "" {
		return nil, errors.New("Feature is required")
	}
	if opts.KV == nil {
		return nil, errors.New("KVStore is required")
	}
	if opts.Batch == nil {
		return nil, errors.New("BatchClient is required")
	}
	if opts.Assemble == nil {
		return nil, errors.New("Assembler is required")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "job_lifecycle", "feature", string(opts.Feature))
	}

	return &Lifecycle[T]{
		feature:  opts.Feature,
		kv:       opts.KV,
		batch:    opts.Batch,
		assemble: opts.Assemble,
		now:      now,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Must constructs a Lifecycle and panics on error. Use at wiring time when
// the options are known valid.
func Must[T any](opts Options[T]) *Lifecycle[T] {
	l, err := New(opts)
	if err != nil {
		panic(fmt.Sprintf("job lifecycle %s: %v", opts.Feature, err))
	}
	return l
}

// SubmitResult is the job handle returned to the caller after submission.
type SubmitResult struct {
	SubjectID string         `json:"subjectId"`
	BatchID   string         `json:"batchId"`
	Status    model.JobStatus `json:"status"`
	// Resumed is true when an in-flight job already existed and its handle
	// was returned instead of submitting a duplicate.
	Resumed bool           `json:"resumed,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Submit posts the requests as one batch and persists the JobRecord.
//
// The duplicate guard is best-effort: an existing processing JobRecord is
// returned as-is without contacting the batch service, but the check is
// read-then-act, so two near-simultaneous submissions can both post a batch.
// The record write uses SET NX, so the loser of that race never overwrites
// the recorded handle; its batch is simply orphaned.
func (l *Lifecycle[T]) Submit(
	ctx context.Context,
	subjectID string,
	requests []model.BatchRequest,
	meta map[string]any,
) (*SubmitResult, error) {
	if subjectID == "" {
		return nil, apperrors.Validation("subject id is required")
	}
	if len(requests) == 0 {
		return nil, apperrors.Validation("nothing to submit: request set is empty")
	}

	jobKey := core.JobKey(l.feature, subjectID)
	existing, err := l.readRecord(ctx, jobKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		l.emit(metrics.TransitionSubmit, metrics.ResultResumed, 0, nil)
		return l.resumed(subjectID, existing), nil
	}

	batch, err := l.batch.CreateBatch(ctx, requests)
	if err != nil {
		// No JobRecord was written, so the caller can retry safely.
		l.emit(metrics.TransitionSubmit, metrics.ResultError, 0, err)
		return nil, fmt.Errorf("submit batch for %s/%s: %w", l.feature, subjectID, err)
	}

	rec := &model.JobRecord{
		BatchID:   batch.ID,
		Status:    model.JobStatusProcessing,
		CreatedAt: l.now().Unix(),
		Meta:      meta,
	}
	raw, err := model.EncodeJobRecord(rec)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode job record")
	}

	set, err := l.kv.SetIfNotExists(ctx, jobKey, raw, 0)
	if err != nil {
		return nil, fmt.Errorf("store job record %s: %w", jobKey, err)
	}
	if !set {
		// Lost the submit race; hand back whichever record won.
		if existing, rerr := l.readRecord(ctx, jobKey); rerr == nil && existing != nil {
			if l.logger != nil {
				l.logger.WarnContext(ctx, "duplicate submission raced, batch orphaned",
					"subject", subjectID, "orphaned_batch", batch.ID)
			}
			return l.resumed(subjectID, existing), nil
		}
		// Record vanished between the NX failure and the read; claim the key.
		if serr := l.kv.Set(ctx, jobKey, raw, 0); serr != nil {
			return nil, fmt.Errorf("store job record %s: %w", jobKey, serr)
		}
	}

	if l.logger != nil {
		l.logger.InfoContext(ctx, "batch job submitted",
			"subject", subjectID, "batch_id", batch.ID, "requests", len(requests))
	}
	l.emit(metrics.TransitionSubmit, metrics.ResultSuccess, 0, nil)

	return &SubmitResult{
		SubjectID: subjectID,
		BatchID:   batch.ID,
		Status:    model.JobStatusProcessing,
		Meta:      meta,
	}, nil
}

// PollResult is the resolved state of a subject's job, plus whichever of the
// artifact, elapsed time, and request counts apply to that state.
type PollResult[T any] struct {
	State    State
	Artifact *T
	Record   *model.JobRecord
	Elapsed  time.Duration
	Counts   model.RequestCounts
}

// Poll resolves the current state of the subject's job and, on first
// observation of a successful terminal batch, materializes the artifact.
//
// A stored artifact short-circuits everything: it is returned without
// contacting the batch service. Network errors while querying batch status
// or results are reported as still-processing so the client simply retries;
// a truly failed job surfaces once the batch service reports a terminal
// state.
func (l *Lifecycle[T]) Poll(ctx context.Context, subjectID string) (*PollResult[T], error) {
	if subjectID == "" {
		return nil, apperrors.Validation("subject id is required")
	}

	if artifact, err := l.Artifact(ctx, subjectID); err != nil {
		return nil, err
	} else if artifact != nil {
		return &PollResult[T]{State: StateDone, Artifact: artifact}, nil
	}

	jobKey := core.JobKey(l.feature, subjectID)
	rec, err := l.readRecord(ctx, jobKey)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &PollResult[T]{State: StateNone}, nil
	}

	batch, err := l.batch.GetBatch(ctx, rec.BatchID)
	if err != nil {
		if l.logger != nil {
			l.logger.WarnContext(ctx, "batch status query failed, reporting processing",
				"subject", subjectID, "batch_id", rec.BatchID, "error", err)
		}
		return l.processing(rec, model.RequestCounts{}), nil
	}

	if batch.Canceling() {
		return nil, l.fail(ctx, jobKey, apperrors.JobStatef(
			"batch %s was canceled", rec.BatchID))
	}
	if !batch.Terminal() {
		return l.processing(rec, batch.RequestCounts), nil
	}

	counts := batch.RequestCounts
	if counts.Succeeded == 0 {
		return nil, l.fail(ctx, jobKey, apperrors.JobStatef(
			"batch %s ended without successes: %d errored, %d expired, %d canceled",
			rec.BatchID, counts.Errored, counts.Expired, counts.Canceled))
	}

	results, err := l.batch.BatchResults(ctx, rec.BatchID)
	if err != nil {
		if l.logger != nil {
			l.logger.WarnContext(ctx, "batch results fetch failed, reporting processing",
				"subject", subjectID, "batch_id", rec.BatchID, "error", err)
		}
		return l.processing(rec, counts), nil
	}

	artifact, err := l.assemble(rec, results)
	if err != nil {
		return nil, l.fail(ctx, jobKey, err)
	}

	if err := l.saveArtifact(ctx, subjectID, artifact); err != nil {
		return nil, err
	}
	if _, err := l.kv.Delete(ctx, jobKey); err != nil && l.logger != nil {
		l.logger.WarnContext(ctx, "delete job record after completion failed",
			"key", jobKey, "error", err)
	}

	if l.logger != nil {
		l.logger.InfoContext(ctx, "batch job completed",
			"subject", subjectID, "batch_id", rec.BatchID,
			"succeeded", counts.Succeeded, "errored", counts.Errored)
	}
	l.emit(metrics.TransitionComplete, metrics.ResultSuccess, l.sinceCreated(rec), nil)

	return &PollResult[T]{State: StateDone, Artifact: artifact, Counts: counts}, nil
}

// Artifact reads the stored ResultArtifact for a subject, or nil if absent.
func (l *Lifecycle[T]) Artifact(ctx context.Context, subjectID string) (*T, error) {
	key := core.ArtifactKey(l.feature, subjectID)
	raw, err := l.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}
	var artifact T
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode artifact %s", key)
	}
	return &artifact, nil
}

// Reset deletes the subject's ResultArtifact and JobRecord. Regeneration
// paths call this before resubmitting so a subsequent poll never returns
// stale data.
func (l *Lifecycle[T]) Reset(ctx context.Context, subjectID string) error {
	artifactKey := core.ArtifactKey(l.feature, subjectID)
	if _, err := l.kv.Delete(ctx, artifactKey); err != nil {
		return fmt.Errorf("delete artifact %s: %w", artifactKey, err)
	}
	jobKey := core.JobKey(l.feature, subjectID)
	if _, err := l.kv.Delete(ctx, jobKey); err != nil {
		return fmt.Errorf("delete job record %s: %w", jobKey, err)
	}
	return nil
}

// Feature returns the lifecycle's KV namespace.
func (l *Lifecycle[T]) Feature() core.Feature { return l.feature }

func (l *Lifecycle[T]) saveArtifact(ctx context.Context, subjectID string, artifact *T) error {
	key := core.ArtifactKey(l.feature, subjectID)
	raw, err := json.Marshal(artifact)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "encode artifact %s", key)
	}
	if err := l.kv.Set(ctx, key, raw, 0); err != nil {
		return fmt.Errorf("store artifact %s: %w", key, err)
	}
	return nil
}

func (l *Lifecycle[T]) readRecord(ctx context.Context, key string) (*model.JobRecord, error) {
	raw, err := l.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read job record %s: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}
	rec, err := model.DecodeJobRecord(raw)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode job record %s", key)
	}
	return rec, nil
}

// fail deletes the JobRecord so the subject returns to NONE, then returns
// cause. The job must be resubmitted to try again.
func (l *Lifecycle[T]) fail(ctx context.Context, jobKey string, cause error) error {
	if _, err := l.kv.Delete(ctx, jobKey); err != nil && l.logger != nil {
		l.logger.WarnContext(ctx, "delete job record after failure failed",
			"key", jobKey, "error", err)
	}
	l.emit(metrics.TransitionFail, metrics.ResultError, 0, cause)
	return cause
}

func (l *Lifecycle[T]) emit(transition, result string, elapsed time.Duration, err error) {
	if l.metrics == nil {
		return
	}
	metrics.EmitJobTransition(l.metrics, metrics.JobMetric{
		Feature:    string(l.feature),
		Transition: transition,
		Result:     result,
		Duration:   elapsed,
		Err:        err,
	})
}

func (l *Lifecycle[T]) sinceCreated(rec *model.JobRecord) time.Duration {
	elapsed := l.now().Sub(time.Unix(rec.CreatedAt, 0))
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (l *Lifecycle[T]) processing(rec *model.JobRecord, counts model.RequestCounts) *PollResult[T] {
	elapsed := l.now().Sub(time.Unix(rec.CreatedAt, 0))
	if elapsed < 0 {
		elapsed = 0
	}
	return &PollResult[T]{
		State:   StateProcessing,
		Record:  rec,
		Elapsed: elapsed,
		Counts:  counts,
	}
}

func (l *Lifecycle[T]) resumed(subjectID string, rec *model.JobRecord) *SubmitResult {
	return &SubmitResult{
		SubjectID: subjectID,
		BatchID:   rec.BatchID,
		Status:    rec.Status,
		Resumed:   true,
		Meta:      rec.Meta,
	}
}
