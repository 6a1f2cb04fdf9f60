package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openlearn/adaptive-api/internal/adapters/oneroster"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/extract"
	"github.com/openlearn/adaptive-api/internal/domain/job"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/observability/statsd"
)

// LessonSkillsServiceOptions groups dependencies for LessonSkillsService.
type LessonSkillsServiceOptions struct {
	KV         core.KVStore     // Required: external state
	Batch      core.BatchClient // Required: batch-inference service
	Catalog    CourseCatalog    // Required: course and lesson lookup
	Generation Generation       // Optional: model parameters
	Logger     *slog.Logger     // Optional: structured logger
	Metrics    statsd.Sink      // Optional: lifecycle transition metrics
	Now        func() time.Time // Optional: clock override for tests
}

// LessonSkillsService maps each lesson of a course to skills from the
// course's skill tree. Lessons are chunked across batch sub-requests; the
// assembler extracts one JSON object per chunk and merges them.
type LessonSkillsService struct {
	kv        core.KVStore
	catalog   CourseCatalog
	gen       Generation
	lifecycle *job.Lifecycle[model.LessonSkillsArtifact]
	trees     *job.Lifecycle[model.SkillTreeArtifact]
	now       func() time.Time
}

// NewLessonSkillsService constructs a new LessonSkillsService with
// validation.
func NewLessonSkillsService(opts LessonSkillsServiceOptions) (*LessonSkillsService, error) {
	if opts.Catalog == nil {
		return nil, errors.New("CourseCatalog is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	svc := &LessonSkillsService{
		kv:      opts.KV,
		catalog: opts.Catalog,
		gen:     opts.Generation.withDefaults(),
		now:     now,
	}
	lifecycle, err := job.New(job.Options[model.LessonSkillsArtifact]{
		Feature:  core.FeatureLessonSkills,
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

	// Read-only view of the skill-tree namespace for the precondition check.
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

// MustNewLessonSkillsService constructs a new LessonSkillsService and panics
// on error.
func MustNewLessonSkillsService(opts LessonSkillsServiceOptions) *LessonSkillsService {
	svc, err := NewLessonSkillsService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Generate submits a lesson-to-skill mapping job for the course. A stored,
// non-empty skill tree is a precondition; without one the mapping has no
// skill vocabulary to draw from.
func (s *LessonSkillsService) Generate(
	ctx context.Context,
	courseID string,
	regenerate bool,
) (*job.SubmitResult, error) {
	if courseID == "" {
		return nil, apperrors.Validation("course id is required")
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

	components, err := s.catalog.ListCourseComponents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lessons := leafLessons(components)
	if len(lessons) == 0 {
		return nil, apperrors.Validationf("course %s has no lesson components", courseID)
	}

	var requests []model.BatchRequest
	for i, chunk := range chunks(lessons, ChunkSize) {
		requests = append(requests, model.BatchRequest{
			CustomID: chunkCustomID(courseID, i),
			Params: model.MessageParams{
				Model:     s.gen.Model,
				MaxTokens: s.gen.MaxTokens,
				System:    lessonSkillsSystemPrompt,
				Messages: []model.Message{{
					Role:    "user",
					Content: lessonSkillsPrompt(tree.Mermaid, chunk),
				}},
			},
		})
	}

	meta := map[string]any{
		"chunkCount":  len(requests),
		"lessonCount": len(lessons),
		"model":       s.gen.Model,
	}
	return s.lifecycle.Submit(ctx, courseID, requests, meta)
}

// Status resolves the current state of the course's lesson-skills job.
func (s *LessonSkillsService) Status(
	ctx context.Context,
	courseID string,
) (*job.PollResult[model.LessonSkillsArtifact], error) {
	return s.lifecycle.Poll(ctx, courseID)
}

// Artifact returns the stored lesson-skill mapping, or nil when none exists.
func (s *LessonSkillsService) Artifact(
	ctx context.Context,
	courseID string,
) (*model.LessonSkillsArtifact, error) {
	return s.lifecycle.Artifact(ctx, courseID)
}

func (s *LessonSkillsService) assemble(
	rec *model.JobRecord,
	results []model.BatchResult,
) (*model.LessonSkillsArtifact, error) {
	merged := map[string]model.LessonSkills{}
	for i := range results {
		if !results[i].Succeeded() {
			continue
		}
		var chunk map[string]model.LessonSkills
		if err := extract.JSONInto(results[i].Text, &chunk); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeExtraction,
				"extract lesson skills from %s", results[i].CustomID)
		}
		for id, skills := range chunk {
			merged[id] = skills
		}
	}
	if len(merged) == 0 {
		return nil, apperrors.Extraction("no lesson skills extracted from any chunk")
	}

	return &model.LessonSkillsArtifact{
		ArtifactMeta: model.ArtifactMeta{
			GeneratedAt: s.now().Unix(),
			Model:       rec.MetaString("model"),
		},
		CourseSourcedID: subjectFromResults(results),
		ChunkCount:      rec.MetaInt("chunkCount"),
		Lessons:         merged,
	}, nil
}

// leafLessons filters the component tree down to leaf lessons in listing
// order.
func leafLessons(components []oneroster.Component) []oneroster.Component {
	parents := make(map[string]bool, len(components))
	for _, c := range components {
		if c.Parent != nil {
			parents[c.Parent.SourcedID] = true
		}
	}
	var lessons []oneroster.Component
	for _, c := range components {
		if !parents[c.SourcedID] && strings.TrimSpace(c.Title) != "" {
			lessons = append(lessons, c)
		}
	}
	return lessons
}

const lessonSkillsSystemPrompt = "You are a curriculum designer. You assign " +
	"skills from a fixed skill graph to lessons. Respond with a single JSON " +
	"object and nothing else."

func lessonSkillsPrompt(mermaid string, lessons []oneroster.Component) string {
	var b strings.Builder
	b.WriteString("Skill graph:\n```mermaid\n")
	b.WriteString(strings.TrimSpace(mermaid))
	b.WriteString("\n```\n\nLessons:\n")
	for _, l := range lessons {
		fmt.Fprintf(&b, "- %s: %s\n", l.SourcedID, l.Title)
	}
	b.WriteString("\nFor each lesson, pick the skills from the graph it " +
		"teaches. Return a JSON object keyed by lesson id: " +
		`{"<lessonId>": {"title": "<lesson title>", "skills": ["<skill>", ...]}}.`)
	return b.String()
}
