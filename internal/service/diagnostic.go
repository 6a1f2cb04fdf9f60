package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openlearn/adaptive-api/internal/adapters/oneroster"
	"github.com/openlearn/adaptive-api/internal/adapters/powerpath"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/extract"
	"github.com/openlearn/adaptive-api/internal/domain/job"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/observability/statsd"
)

// DefaultQuestionCount is the diagnostic size used when the caller does not
// ask for a specific count.
const DefaultQuestionCount = 10

// defaultMinItems is the smallest item set accepted without a validation
// warning.
const defaultMinItems = 3

// defaultXPPerCorrect is the XP awarded per correctly answered item.
const defaultXPPerCorrect = 10

// XPLedger awards experience points to a student.
type XPLedger interface {
	AwardXP(ctx context.Context, studentID string, amount int, reason string) (*model.XPTotal, error)
}

// ResultRecorder records a scored assessment in the upstream gradebook.
type ResultRecorder interface {
	CreateAssessmentResult(ctx context.Context, result oneroster.AssessmentResult) error
}

// ResponseRecorder stores individual student item responses.
type ResponseRecorder interface {
	RecordItemResponse(ctx context.Context, response powerpath.ItemResponse) error
}

// DiagnosticServiceOptions groups dependencies for DiagnosticService.
type DiagnosticServiceOptions struct {
	KV         core.KVStore     // Required: external state
	Batch      core.BatchClient // Required: batch-inference service
	Ledger     XPLedger         // Required: XP bookkeeping for scoring
	Results    ResultRecorder   // Required: gradebook writes for scoring
	Responses  ResponseRecorder // Optional: per-item response log
	Generation Generation       // Optional: model parameters
	Logger     *slog.Logger     // Optional: structured logger
	Metrics    statsd.Sink      // Optional: lifecycle transition metrics
	Now        func() time.Time // Optional: clock override for tests

	// MinItems overrides the smallest accepted item set. Zero means the
	// default.
	MinItems int
	// XPPerCorrect overrides the XP awarded per correct answer. Zero means
	// the default.
	XPPerCorrect int
}

// DiagnosticService generates a diagnostic assessment from a course's skill
// tree and scores student attempts against the stored item set.
type DiagnosticService struct {
	kv           core.KVStore
	ledger       XPLedger
	results      ResultRecorder
	responses    ResponseRecorder
	gen          Generation
	lifecycle    *job.Lifecycle[model.DiagnosticArtifact]
	trees        *job.Lifecycle[model.SkillTreeArtifact]
	logger       *slog.Logger
	now          func() time.Time
	minItems     int
	xpPerCorrect int
}

// NewDiagnosticService constructs a new DiagnosticService with validation.
func NewDiagnosticService(opts DiagnosticServiceOptions) (*DiagnosticService, error) {
	if opts.Ledger == nil {
		return nil, errors.New("XPLedger is required")
	}
	if opts.Results == nil {
		return nil, errors.New("ResultRecorder is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	minItems := opts.MinItems
	if minItems <= 0 {
		minItems = defaultMinItems
	}
	xpPerCorrect := opts.XPPerCorrect
	if xpPerCorrect <= 0 {
		xpPerCorrect = defaultXPPerCorrect
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "diagnostic_service")
	}

	svc := &DiagnosticService{
		kv:           opts.KV,
		ledger:       opts.Ledger,
		results:      opts.Results,
		responses:    opts.Responses,
		gen:          opts.Generation.withDefaults(),
		logger:       logger,
		now:          now,
		minItems:     minItems,
		xpPerCorrect: xpPerCorrect,
	}
	lifecycle, err := job.New(job.Options[model.DiagnosticArtifact]{
		Feature:  core.FeatureDiagnostic,
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
	svc.trees = job.Must(job.Options[model.SkillTreeArtifact]{
		Feature:  core.FeatureSkillTree,
		KV:       opts.KV,
		Batch:    opts.Batch,
		Assemble: func(*model.JobRecord, []model.BatchResult) (*model.SkillTreeArtifact, error) {
			return nil, errors.New("skill trees are not assembled here")
		},
		Now: now,
	})
	return svc, nil
}

// MustNewDiagnosticService constructs a new DiagnosticService and panics on
// error.
func MustNewDiagnosticService(opts DiagnosticServiceOptions) *DiagnosticService {
	svc, err := NewDiagnosticService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Generate submits a diagnostic generation job for the course. The prompt is
// built from the stored skill tree; questionCount <= 0 falls back to the
// default size.
func (s *DiagnosticService) Generate(
	ctx context.Context,
	courseID string,
	questionCount int,
	regenerate bool,
) (*job.SubmitResult, error) {
	if courseID == "" {
		return nil, apperrors.Validation("course id is required")
	}
	if questionCount <= 0 {
		questionCount = DefaultQuestionCount
	}

	tree, err := s.trees.Artifact(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if tree == nil || strings.TrimSpace(tree.Mermaid) == "" {
		return nil, apperrors.Validationf(
			"course %s has no skill tree; generate one first", courseID)
	}

	if regenerate {
		if err := s.lifecycle.Reset(ctx, courseID); err != nil {
			return nil, err
		}
	}

	request := model.BatchRequest{
		CustomID: chunkCustomID(courseID, 0),
		Params: model.MessageParams{
			Model:     s.gen.Model,
			MaxTokens: s.gen.MaxTokens,
			System:    diagnosticSystemPrompt,
			Messages: []model.Message{{
				Role:    "user",
				Content: diagnosticPrompt(tree.Mermaid, questionCount),
			}},
		},
	}

	meta := map[string]any{
		"questionCount": questionCount,
		"model":         s.gen.Model,
	}
	return s.lifecycle.Submit(ctx, courseID, []model.BatchRequest{request}, meta)
}

// Status resolves the current state of the course's diagnostic job.
func (s *DiagnosticService) Status(
	ctx context.Context,
	courseID string,
) (*job.PollResult[model.DiagnosticArtifact], error) {
	return s.lifecycle.Poll(ctx, courseID)
}

// Score grades a student's answers against the stored diagnostic, awards XP
// for correct answers, and records the result in the upstream gradebook.
func (s *DiagnosticService) Score(
	ctx context.Context,
	courseID string,
	studentID string,
	answers []model.DiagnosticAnswer,
) (*model.DiagnosticScore, error) {
	if courseID == "" {
		return nil, apperrors.Validation("course id is required")
	}
	if studentID == "" {
		return nil, apperrors.Validation("student id is required")
	}
	if len(answers) == 0 {
		return nil, apperrors.Validation("no answers submitted")
	}

	artifact, err := s.lifecycle.Artifact(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, apperrors.NotFoundf("course %s has no diagnostic", courseID)
	}

	byID := make(map[string]*model.DiagnosticItem, len(artifact.Items))
	for i := range artifact.Items {
		byID[artifact.Items[i].ID] = &artifact.Items[i]
	}

	score := &model.DiagnosticScore{
		CourseSourcedID: courseID,
		StudentID:       studentID,
		Skills:          map[string]model.SkillScore{},
	}
	for _, answer := range answers {
		item, ok := byID[answer.ItemID]
		if !ok {
			return nil, apperrors.Validationf(
				"answer references unknown item %s", answer.ItemID)
		}
		correct := answer.OptionID != "" && answer.OptionID == item.CorrectOptionID()

		score.Total++
		skill := score.Skills[item.Skill]
		skill.Total++
		if correct {
			score.Correct++
			skill.Correct++
		}
		score.Skills[item.Skill] = skill

		if s.responses != nil {
			response := powerpath.ItemResponse{
				StudentID: studentID,
				ItemID:    answer.ItemID,
				Response:  answer.OptionID,
				Correct:   correct,
			}
			if rerr := s.responses.RecordItemResponse(ctx, response); rerr != nil && s.logger != nil {
				// Response logging is advisory; the score still stands.
				s.logger.WarnContext(ctx, "record item response failed",
					"student", studentID, "item", answer.ItemID, "error", rerr)
			}
		}
	}

	if score.Correct > 0 {
		awarded := score.Correct * s.xpPerCorrect
		if _, err := s.ledger.AwardXP(ctx, studentID, awarded,
			"diagnostic:"+courseID); err != nil {
			return nil, err
		}
		score.XPAwarded = awarded
	}

	result := oneroster.AssessmentResult{
		Student:       oneroster.Ref{SourcedID: studentID},
		AssessmentRef: oneroster.Ref{SourcedID: "diagnostic:" + courseID},
		Score:         float64(score.Correct) / float64(score.Total) * 100,
		ScoreDate:     s.now().Format("2006-01-02"),
		ScoreStatus:   "fully graded",
		Metadata: map[string]any{
			"correct": score.Correct,
			"total":   score.Total,
		},
	}
	if err := s.results.CreateAssessmentResult(ctx, result); err != nil {
		return nil, err
	}

	return score, nil
}

func (s *DiagnosticService) assemble(
	rec *model.JobRecord,
	results []model.BatchResult,
) (*model.DiagnosticArtifact, error) {
	var text string
	for i := range results {
		if results[i].Succeeded() {
			text = results[i].Text
			break
		}
	}

	var payload struct {
		Items []model.DiagnosticItem `json:"items"`
	}
	if err := extract.JSONInto(text, &payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExtraction,
			"extract diagnostic items")
	}
	if len(payload.Items) == 0 {
		return nil, apperrors.Extraction("diagnostic output has no items array")
	}

	items, warning := validateDiagnostic(payload.Items, s.minItems)

	return &model.DiagnosticArtifact{
		ArtifactMeta: model.ArtifactMeta{
			GeneratedAt: s.now().Unix(),
			Model:       rec.MetaString("model"),
		},
		CourseSourcedID:   subjectFromResults(results),
		QuestionCount:     rec.MetaInt("questionCount"),
		Items:             items,
		ValidationWarning: warning,
	}, nil
}

const diagnosticSystemPrompt = "You are an assessment writer. You produce " +
	"multiple-choice diagnostic questions targeting specific skills. " +
	"Respond with a single JSON object and nothing else."

func diagnosticPrompt(mermaid string, questionCount int) string {
	var b strings.Builder
	b.WriteString("Skill graph:\n```mermaid\n")
	b.WriteString(strings.TrimSpace(mermaid))
	b.WriteString("\n```\n\n")
	b.WriteString("Write a diagnostic assessment covering these skills. ")
	b.WriteString("Return a JSON object of the form ")
	b.WriteString(`{"items": [{"id": "q1", "skill": "<skill>", "question": ` +
		`"...", "options": [{"id": "a", "text": "...", "isCorrect": false}, ` +
		`...], "correctAnswer": "<option id>"}]}. `)
	b.WriteString("Each item needs at least 2 options with exactly one " +
		"flagged correct. ")
	fmt.Fprintf(&b, "Produce %d items.", questionCount)
	return b.String()
}
