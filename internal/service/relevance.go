package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openlearn/adaptive-api/internal/adapters/qti"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/extract"
	"github.com/openlearn/adaptive-api/internal/domain/job"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/observability/statsd"
)

// RelevanceServiceOptions groups dependencies for RelevanceService.
type RelevanceServiceOptions struct {
	KV         core.KVStore     // Required: external state
	Batch      core.BatchClient // Required: batch-inference service
	Bank       QuestionBank     // Required: item and stimulus lookup
	Generation Generation       // Optional: model parameters
	Logger     *slog.Logger     // Optional: structured logger
	Metrics    statsd.Sink      // Optional: lifecycle transition metrics
	Now        func() time.Time // Optional: clock override for tests
}

// RelevanceService checks each question of a lesson against the lesson's
// content and scores how relevant it is. The lesson's question set is
// chunked across batch sub-requests.
type RelevanceService struct {
	bank      QuestionBank
	gen       Generation
	lifecycle *job.Lifecycle[model.RelevanceArtifact]
	logger    *slog.Logger
	now       func() time.Time
}

// NewRelevanceService constructs a new RelevanceService with validation.
func NewRelevanceService(opts RelevanceServiceOptions) (*RelevanceService, error) {
	if opts.Bank == nil {
		return nil, errors.New("QuestionBank is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "relevance_service")
	}

	svc := &RelevanceService{
		bank:   opts.Bank,
		gen:    opts.Generation.withDefaults(),
		logger: logger,
		now:    now,
	}
	lifecycle, err := job.New(job.Options[model.RelevanceArtifact]{
		Feature:  core.FeatureRelevance,
		KV:       opts.KV,
		Batch:    opts.Batch,
		Assemble: svc.assemble,
		Now:      now,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	svc.lifecycle = lifecycle
	return svc, nil
}

// MustNewRelevanceService constructs a new RelevanceService and panics on
// error.
func MustNewRelevanceService(opts RelevanceServiceOptions) *RelevanceService {
	svc, err := NewRelevanceService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Generate submits a relevance-analysis job for the lesson's question set.
// The lesson id doubles as the assessment-test identifier in the question
// bank; its stimulus, when present, is the lesson content the questions are
// judged against.
func (s *RelevanceService) Generate(
	ctx context.Context,
	lessonID string,
	regenerate bool,
) (*job.SubmitResult, error) {
	if lessonID == "" {
		return nil, apperrors.Validation("lesson id is required")
	}
	if regenerate {
		if err := s.lifecycle.Reset(ctx, lessonID); err != nil {
			return nil, err
		}
	}

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
	if len(items) == 0 {
		return nil, apperrors.Validationf("lesson %s has no questions", lessonID)
	}

	content, err := s.bank.GetStimulus(ctx, lessonID)
	if err != nil {
		// A lesson without stimulus content is still scorable from titles.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "stimulus fetch failed, judging without content",
				"lesson", lessonID, "error", err)
		}
		content = ""
	}

	var requests []model.BatchRequest
	for i, chunk := range chunks(items, ChunkSize) {
		requests = append(requests, model.BatchRequest{
			CustomID: chunkCustomID(lessonID, i),
			Params: model.MessageParams{
				Model:     s.gen.Model,
				MaxTokens: s.gen.MaxTokens,
				System:    relevanceSystemPrompt,
				Messages: []model.Message{{
					Role:    "user",
					Content: relevancePrompt(test.Title, content, chunk),
				}},
			},
		})
	}

	meta := map[string]any{
		"chunkCount":    len(requests),
		"questionCount": len(items),
		"model":         s.gen.Model,
	}
	return s.lifecycle.Submit(ctx, lessonID, requests, meta)
}

// Status resolves the current state of the lesson's relevance job.
func (s *RelevanceService) Status(
	ctx context.Context,
	lessonID string,
) (*job.PollResult[model.RelevanceArtifact], error) {
	return s.lifecycle.Poll(ctx, lessonID)
}

func (s *RelevanceService) assemble(
	rec *model.JobRecord,
	results []model.BatchResult,
) (*model.RelevanceArtifact, error) {
	merged := map[string]model.QuestionRelevance{}
	for i := range results {
		if !results[i].Succeeded() {
			continue
		}
		var chunk map[string]model.QuestionRelevance
		if err := extract.JSONInto(results[i].Text, &chunk); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeExtraction,
				"extract relevance verdicts from %s", results[i].CustomID)
		}
		for id, verdict := range chunk {
			merged[id] = verdict
		}
	}
	if len(merged) == 0 {
		return nil, apperrors.Extraction("no relevance verdicts extracted from any chunk")
	}

	return &model.RelevanceArtifact{
		ArtifactMeta: model.ArtifactMeta{
			GeneratedAt: s.now().Unix(),
			Model:       rec.MetaString("model"),
		},
		LessonSourcedID: subjectFromResults(results),
		ChunkCount:      rec.MetaInt("chunkCount"),
		Questions:       merged,
	}, nil
}

const relevanceSystemPrompt = "You are a curriculum auditor. You judge " +
	"whether assessment questions actually test the lesson content they are " +
	"attached to. Respond with a single JSON object and nothing else."

func relevancePrompt(lessonTitle, content string, items []qti.Item) string {
	var b strings.Builder
	b.WriteString("Lesson: ")
	b.WriteString(lessonTitle)
	b.WriteString("\n")
	if strings.TrimSpace(content) != "" {
		b.WriteString("\nLesson content:\n")
		b.WriteString(strings.TrimSpace(content))
		b.WriteString("\n")
	}
	b.WriteString("\nQuestions:\n")
	writeItems(&b, items)
	b.WriteString("\nFor each question, return a JSON object keyed by " +
		"question id: " +
		`{"<id>": {"relevant": true, "score": 0.0, "reason": "...", ` +
		`"explanation": "..."}}. Score is 0 to 1.`)
	return b.String()
}
