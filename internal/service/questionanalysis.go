package service

import (
	"context"
	"errors"
	"fmt"
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

// QuestionBank is the slice of the question-bank client the analysis
// features need.
type QuestionBank interface {
	GetAssessmentTest(ctx context.Context, identifier string) (*qti.AssessmentTest, error)
	GetItem(ctx context.Context, identifier string) (*qti.Item, error)
	GetStimulus(ctx context.Context, identifier string) (string, error)
}

// QuestionAnalysisServiceOptions groups dependencies for
// QuestionAnalysisService.
type QuestionAnalysisServiceOptions struct {
	KV         core.KVStore     // Required: external state
	Batch      core.BatchClient // Required: batch-inference service
	Bank       QuestionBank     // Required: item lookup
	Generation Generation       // Optional: model parameters
	Logger     *slog.Logger     // Optional: structured logger
	Metrics    statsd.Sink      // Optional: lifecycle transition metrics
	Now        func() time.Time // Optional: clock override for tests
}

// QuestionAnalysisService analyzes every item of an assessment test for
// difficulty, skills exercised, and authoring issues. Items are chunked
// across batch sub-requests and the per-chunk JSON objects are merged.
type QuestionAnalysisService struct {
	bank      QuestionBank
	gen       Generation
	lifecycle *job.Lifecycle[model.QuestionAnalysisArtifact]
	now       func() time.Time
}

// NewQuestionAnalysisService constructs a new QuestionAnalysisService with
// validation.
func NewQuestionAnalysisService(opts QuestionAnalysisServiceOptions) (*QuestionAnalysisService, error) {
	if opts.Bank == nil {
		return nil, errors.New("QuestionBank is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	svc := &QuestionAnalysisService{
		bank: opts.Bank,
		gen:  opts.Generation.withDefaults(),
		now:  now,
	}
	lifecycle, err := job.New(job.Options[model.QuestionAnalysisArtifact]{
		Feature:  core.FeatureQuestionAnalysis,
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

// MustNewQuestionAnalysisService constructs a new QuestionAnalysisService
// and panics on error.
func MustNewQuestionAnalysisService(opts QuestionAnalysisServiceOptions) *QuestionAnalysisService {
	svc, err := NewQuestionAnalysisService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Generate submits an analysis job covering every item of the assessment
// test.
func (s *QuestionAnalysisService) Generate(
	ctx context.Context,
	testID string,
	regenerate bool,
) (*job.SubmitResult, error) {
	if testID == "" {
		return nil, apperrors.Validation("test id is required")
	}
	if regenerate {
		if err := s.lifecycle.Reset(ctx, testID); err != nil {
			return nil, err
		}
	}

	items, err := s.fetchItems(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.Validationf("test %s has no items", testID)
	}

	var requests []model.BatchRequest
	for i, chunk := range chunks(items, ChunkSize) {
		requests = append(requests, model.BatchRequest{
			CustomID: chunkCustomID(testID, i),
			Params: model.MessageParams{
				Model:     s.gen.Model,
				MaxTokens: s.gen.MaxTokens,
				System:    questionAnalysisSystemPrompt,
				Messages: []model.Message{{
					Role:    "user",
					Content: questionAnalysisPrompt(chunk),
				}},
			},
		})
	}

	meta := map[string]any{
		"chunkCount": len(requests),
		"itemCount":  len(items),
		"model":      s.gen.Model,
	}
	return s.lifecycle.Submit(ctx, testID, requests, meta)
}

// Status resolves the current state of the test's analysis job.
func (s *QuestionAnalysisService) Status(
	ctx context.Context,
	testID string,
) (*job.PollResult[model.QuestionAnalysisArtifact], error) {
	return s.lifecycle.Poll(ctx, testID)
}

func (s *QuestionAnalysisService) fetchItems(ctx context.Context, testID string) ([]qti.Item, error) {
	test, err := s.bank.GetAssessmentTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	var items []qti.Item
	for _, section := range test.Sections {
		for _, ref := range section.ItemRefs {
			item, err := s.bank.GetItem(ctx, ref)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
		}
	}
	return items, nil
}

func (s *QuestionAnalysisService) assemble(
	rec *model.JobRecord,
	results []model.BatchResult,
) (*model.QuestionAnalysisArtifact, error) {
	merged := map[string]model.QuestionAnalysis{}
	for i := range results {
		if !results[i].Succeeded() {
			continue
		}
		var chunk map[string]model.QuestionAnalysis
		if err := extract.JSONInto(results[i].Text, &chunk); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeExtraction,
				"extract question analysis from %s", results[i].CustomID)
		}
		for id, analysis := range chunk {
			merged[id] = analysis
		}
	}
	if len(merged) == 0 {
		return nil, apperrors.Extraction("no question analysis extracted from any chunk")
	}

	return &model.QuestionAnalysisArtifact{
		ArtifactMeta: model.ArtifactMeta{
			GeneratedAt: s.now().Unix(),
			Model:       rec.MetaString("model"),
		},
		TestIdentifier: subjectFromResults(results),
		ChunkCount:     rec.MetaInt("chunkCount"),
		Questions:      merged,
	}, nil
}

const questionAnalysisSystemPrompt = "You are an assessment reviewer. You " +
	"rate question difficulty, name the skills each question exercises, and " +
	"flag authoring issues. Respond with a single JSON object and nothing " +
	"else."

func questionAnalysisPrompt(items []qti.Item) string {
	var b strings.Builder
	b.WriteString("Questions:\n")
	writeItems(&b, items)
	b.WriteString("\nFor each question, return a JSON object keyed by " +
		"question id: " +
		`{"<id>": {"difficulty": "easy|medium|hard", "skills": ["..."], ` +
		`"issues": ["..."]}}. Leave issues empty when the question is sound.`)
	return b.String()
}

// writeItems renders items with their choices for prompt text.
func writeItems(b *strings.Builder, items []qti.Item) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %s\n", item.Identifier, item.Prompt)
		for _, choice := range item.Choices {
			fmt.Fprintf(b, "    %s) %s\n", choice.Identifier, choice.Text)
		}
	}
}
