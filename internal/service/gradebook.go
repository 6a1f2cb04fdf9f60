package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/openlearn/adaptive-api/internal/adapters/oneroster"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

// resultProjection reshapes the roster's verbose assessment-result listing
// into the flat rows the gradebook endpoint returns.
const resultProjection = `[].{` +
	`sourcedId: sourcedId, ` +
	`student: student.sourcedId, ` +
	`assessment: assessmentLineItem.sourcedId, ` +
	`score: score, ` +
	`scoreDate: scoreDate, ` +
	`status: scoreStatus}`

// Gradebook is the slice of the roster client the gradebook feature needs.
type Gradebook interface {
	ListAssessmentResults(ctx context.Context, filter string) ([]map[string]any, error)
	CreateAssessmentResult(ctx context.Context, result oneroster.AssessmentResult) error
}

// GradebookServiceOptions groups dependencies for GradebookService.
type GradebookServiceOptions struct {
	KV     core.KVStore     // Required: XP bookkeeping
	Roster Gradebook        // Required: assessment result listing/creation
	Logger *slog.Logger     // Optional: structured logger
	Now    func() time.Time // Optional: clock override for tests
}

// GradebookService keeps per-student XP totals and an append-only XP event
// log in the KV store, and reads the upstream gradebook reshaped through a
// JMESPath projection.
type GradebookService struct {
	kv     core.KVStore
	roster Gradebook
	logger *slog.Logger
	now    func() time.Time
}

// NewGradebookService constructs a new GradebookService with validation.
func NewGradebookService(opts GradebookServiceOptions) (*GradebookService, error) {
	if opts.KV == nil {
		return nil, errors.New("KVStore is required")
	}
	if opts.Roster == nil {
		return nil, errors.New("Gradebook roster client is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "gradebook_service")
	}

	if _, err := jmespath.Compile(resultProjection); err != nil {
		return nil, fmt.Errorf("compile result projection: %w", err)
	}

	return &GradebookService{
		kv:     opts.KV,
		roster: opts.Roster,
		logger: logger,
		now:    now,
	}, nil
}

// MustNewGradebookService constructs a new GradebookService and panics on
// error.
func MustNewGradebookService(opts GradebookServiceOptions) *GradebookService {
	svc, err := NewGradebookService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// XP returns the student's current XP total. A student with no awards yet
// has a zero total, not an error.
func (s *GradebookService) XP(ctx context.Context, studentID string) (*model.XPTotal, error) {
	if studentID == "" {
		return nil, apperrors.Validation("student id is required")
	}
	raw, err := s.kv.Get(ctx, core.XPKey(studentID))
	if err != nil {
		return nil, fmt.Errorf("read xp for %s: %w", studentID, err)
	}
	if raw == nil {
		return &model.XPTotal{StudentID: studentID}, nil
	}
	return model.DecodeXPTotal(raw)
}

// XPLog returns the student's XP events, oldest first.
func (s *GradebookService) XPLog(ctx context.Context, studentID string) ([]model.XPEvent, error) {
	if studentID == "" {
		return nil, apperrors.Validation("student id is required")
	}
	members, err := s.kv.ListMembers(ctx, core.XPLogKey(studentID))
	if err != nil {
		return nil, fmt.Errorf("read xp log for %s: %w", studentID, err)
	}
	events := make([]model.XPEvent, 0, len(members))
	for _, member := range members {
		event, derr := model.DecodeXPEvent(member)
		if derr != nil {
			return nil, derr
		}
		events = append(events, *event)
	}
	return events, nil
}

// AwardXP adds amount to the student's total and appends an event to the
// log. Amount must be positive.
func (s *GradebookService) AwardXP(
	ctx context.Context,
	studentID string,
	amount int,
	reason string,
) (*model.XPTotal, error) {
	if studentID == "" {
		return nil, apperrors.Validation("student id is required")
	}
	if amount <= 0 {
		return nil, apperrors.Validationf("xp amount must be positive, got %d", amount)
	}

	total, err := s.XP(ctx, studentID)
	if err != nil {
		return nil, err
	}
	total.Total += amount
	total.UpdatedAt = s.now().Unix()

	raw, err := model.EncodeXPTotal(total)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, core.XPKey(studentID), raw, 0); err != nil {
		return nil, fmt.Errorf("store xp for %s: %w", studentID, err)
	}

	event, err := model.EncodeXPEvent(&model.XPEvent{
		Amount:    amount,
		Reason:    reason,
		AwardedAt: s.now().Unix(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.kv.ListAppend(ctx, core.XPLogKey(studentID), event); err != nil {
		return nil, fmt.Errorf("append xp log for %s: %w", studentID, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "xp awarded",
			"student", studentID, "amount", amount, "reason", reason, "total", total.Total)
	}
	return total, nil
}

// Results lists the course's assessment results from the upstream gradebook,
// reshaped into flat rows.
func (s *GradebookService) Results(ctx context.Context, courseID string) (any, error) {
	if courseID == "" {
		return nil, apperrors.Validation("course id is required")
	}
	filter := fmt.Sprintf("course.sourcedId='%s'", courseID)
	results, err := s.roster.ListAssessmentResults(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []any{}, nil
	}

	// JMESPath wants plain decoded JSON values.
	data := make([]any, len(results))
	for i, r := range results {
		data[i] = r
	}
	rows, err := jmespath.Search(resultProjection, data)
	if err != nil {
		return nil, fmt.Errorf("reshape assessment results: %w", err)
	}
	return rows, nil
}

// RecordResult writes one score line to the upstream gradebook.
func (s *GradebookService) RecordResult(ctx context.Context, result oneroster.AssessmentResult) error {
	if result.Student.SourcedID == "" {
		return apperrors.Validation("student sourcedId is required")
	}
	if result.ScoreDate == "" {
		result.ScoreDate = s.now().Format("2006-01-02")
	}
	return s.roster.CreateAssessmentResult(ctx, result)
}
