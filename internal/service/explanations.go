package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openlearn/adaptive-api/internal/adapters/qti"
	"github.com/openlearn/adaptive-api/internal/adapters/worker"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/job"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

// ExplanationsServiceOptions groups dependencies for ExplanationsService.
type ExplanationsServiceOptions struct {
	KV         core.KVStore       // Required: external state
	Messages   core.MessageClient // Required: synchronous generation
	Bank       QuestionBank       // Required: item lookup
	Runner     *worker.Runner     // Required: background task execution
	Generation Generation         // Optional: model parameters
	Logger     *slog.Logger       // Optional: structured logger
	Now        func() time.Time   // Optional: clock override for tests
}

// ExplanationsService generates a worked explanation for every question of a
// lesson. Unlike the batch features this runs through the synchronous
// messages API, one call per question, on a detached background task that
// checkpoints progress to the KV store after each unit. Clients poll it the
// same way they poll batch jobs.
type ExplanationsService struct {
	kv       core.KVStore
	messages core.MessageClient
	bank     QuestionBank
	runner   *worker.Runner
	gen      Generation
	logger   *slog.Logger
	now      func() time.Time
}

// ExplanationStatus is the resolved state of a lesson's explanation task.
type ExplanationStatus struct {
	State    job.State                  `json:"state"`
	Artifact *model.ExplanationArtifact `json:"artifact,omitempty"`
	Progress *model.WorkerProgress      `json:"progress,omitempty"`
}

// NewExplanationsService constructs a new ExplanationsService with
// validation.
func NewExplanationsService(opts ExplanationsServiceOptions) (*ExplanationsService, error) {
	if opts.KV == nil {
		return nil, errors.New("KVStore is required")
	}
	if opts.Messages == nil {
		return nil, errors.New("MessageClient is required")
	}
	if opts.Bank == nil {
		return nil, errors.New("QuestionBank is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("worker Runner is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "explanations_service")
	}

	return &ExplanationsService{
		kv:       opts.KV,
		messages: opts.Messages,
		bank:     opts.Bank,
		runner:   opts.Runner,
		gen:      opts.Generation.withDefaults(),
		logger:   logger,
		now:      now,
	}, nil
}

// MustNewExplanationsService constructs a new ExplanationsService and panics
// on error.
func MustNewExplanationsService(opts ExplanationsServiceOptions) *ExplanationsService {
	svc, err := NewExplanationsService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Generate starts a background explanation task for the lesson and returns
// its task id. A second call while a task is in flight returns the existing
// task id instead of starting another. When regenerate is set, the stored
// artifact and progress record are deleted first.
func (s *ExplanationsService) Generate(
	ctx context.Context,
	lessonID string,
	regenerate bool,
) (string, bool, error) {
	if lessonID == "" {
		return "", false, apperrors.Validation("lesson id is required")
	}

	if regenerate && !s.runner.Running(core.FeatureExplanations, lessonID) {
		if _, err := s.kv.Delete(ctx, core.ArtifactKey(core.FeatureExplanations, lessonID)); err != nil {
			return "", false, fmt.Errorf("delete explanations for %s: %w", lessonID, err)
		}
		if _, err := s.kv.Delete(ctx, core.ProgressKey(core.FeatureExplanations, lessonID)); err != nil {
			return "", false, fmt.Errorf("delete explanation progress for %s: %w", lessonID, err)
		}
	}

	if artifact, err := s.Artifact(ctx, lessonID); err != nil {
		return "", false, err
	} else if artifact != nil {
		return "", false, apperrors.Validationf(
			"lesson %s already has explanations; regenerate to replace them", lessonID)
	}

	items, err := s.fetchItems(ctx, lessonID)
	if err != nil {
		return "", false, err
	}
	if len(items) == 0 {
		return "", false, apperrors.Validationf("lesson %s has no questions", lessonID)
	}

	return s.runner.Start(ctx, core.FeatureExplanations, lessonID, len(items),
		func(taskCtx context.Context, report func(int)) error {
			return s.explainAll(taskCtx, lessonID, items, report)
		})
}

// Status resolves the lesson's explanation task the same way batch jobs are
// polled: a stored artifact short-circuits everything, then the progress
// record, then none.
func (s *ExplanationsService) Status(ctx context.Context, lessonID string) (*ExplanationStatus, error) {
	if lessonID == "" {
		return nil, apperrors.Validation("lesson id is required")
	}

	artifact, err := s.Artifact(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if artifact != nil {
		return &ExplanationStatus{State: job.StateDone, Artifact: artifact}, nil
	}

	progress, err := s.runner.Progress(ctx, core.FeatureExplanations, lessonID)
	if err != nil {
		return nil, err
	}
	if progress == nil || progress.Status == model.ProgressStatusFailed {
		// A failed task leaves only its progress record; the subject is
		// resubmittable, so report none with the failure attached.
		return &ExplanationStatus{State: job.StateNone, Progress: progress}, nil
	}
	return &ExplanationStatus{State: job.StateProcessing, Progress: progress}, nil
}

// Artifact returns the stored explanations, or nil when none exist.
func (s *ExplanationsService) Artifact(ctx context.Context, lessonID string) (*model.ExplanationArtifact, error) {
	raw, err := s.kv.Get(ctx, core.ArtifactKey(core.FeatureExplanations, lessonID))
	if err != nil {
		return nil, fmt.Errorf("read explanations for %s: %w", lessonID, err)
	}
	if raw == nil {
		return nil, nil
	}
	var artifact model.ExplanationArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal,
			"decode explanations for %s", lessonID)
	}
	return &artifact, nil
}

func (s *ExplanationsService) fetchItems(ctx context.Context, lessonID string) ([]qti.Item, error) {
	test, err := s.bank.GetAssessmentTest(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	var items []qti.Item
	for _, section := range test.Sections {
		for _, ref := range section.ItemRefs {
			item, ierr := s.bank.GetItem(ctx, ref)
			if ierr != nil {
				return nil, ierr
			}
			items = append(items, *item)
		}
	}
	return items, nil
}

// explainAll is the background task body: one synchronous generation per
// question, progress checkpointed after each.
func (s *ExplanationsService) explainAll(
	ctx context.Context,
	lessonID string,
	items []qti.Item,
	report func(int),
) error {
	explanations := make(map[string]string, len(items))
	for i, item := range items {
		text, err := s.messages.CreateMessage(ctx, model.MessageParams{
			Model:     s.gen.Model,
			MaxTokens: s.gen.MaxTokens,
			System:    explanationSystemPrompt,
			Messages: []model.Message{{
				Role:    "user",
				Content: explanationPrompt(item),
			}},
		})
		if err != nil {
			return fmt.Errorf("explain %s: %w", item.Identifier, err)
		}
		explanations[item.Identifier] = strings.TrimSpace(text)
		report(i + 1)
	}

	artifact := &model.ExplanationArtifact{
		ArtifactMeta: model.ArtifactMeta{
			GeneratedAt: s.now().Unix(),
			Model:       s.gen.Model,
		},
		LessonSourcedID: lessonID,
		Explanations:    explanations,
	}
	raw, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, core.ArtifactKey(core.FeatureExplanations, lessonID), raw, 0); err != nil {
		return fmt.Errorf("store explanations for %s: %w", lessonID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "explanations generated",
			"lesson", lessonID, "count", len(explanations))
	}
	return nil
}

const explanationSystemPrompt = "You are a tutor. You explain why the " +
	"correct answer to a question is correct, step by step, in plain " +
	"language a student can follow."

func explanationPrompt(item qti.Item) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(item.Prompt)
	b.WriteString("\n")
	for _, choice := range item.Choices {
		fmt.Fprintf(&b, "%s) %s\n", choice.Identifier, choice.Text)
	}
	b.WriteString("\nExplain how to arrive at the correct answer.")
	return b.String()
}
