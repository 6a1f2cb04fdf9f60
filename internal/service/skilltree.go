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

// CourseCatalog is the slice of the roster client the skill-tree feature
// needs.
type CourseCatalog interface {
	GetCourse(ctx context.Context, sourcedID string) (*oneroster.Course, error)
	ListCourseComponents(ctx context.Context, courseID string) ([]oneroster.Component, error)
}

// SkillTreeServiceOptions groups dependencies for SkillTreeService.
type SkillTreeServiceOptions struct {
	KV         core.KVStore     // Required: external state
	Batch      core.BatchClient // Required: batch-inference service
	Catalog    CourseCatalog    // Required: course and lesson lookup
	Generation Generation       // Optional: model parameters
	Logger     *slog.Logger     // Optional: structured logger
	Metrics    statsd.Sink      // Optional: lifecycle transition metrics
	Now        func() time.Time // Optional: clock override for tests
}

// SkillTreeService generates a mermaid skill graph for a course: one batch
// request built from the course's lesson titles, assembled by extracting the
// fenced mermaid block from the model output.
type SkillTreeService struct {
	kv        core.KVStore
	catalog   CourseCatalog
	gen       Generation
	lifecycle *job.Lifecycle[model.SkillTreeArtifact]
	now       func() time.Time
}

// NewSkillTreeService constructs a new SkillTreeService with validation.
func NewSkillTreeService(opts SkillTreeServiceOptions) (*SkillTreeService, error) {
	if opts.Catalog == nil {
		return nil, errors.New("CourseCatalog is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	gen := opts.Generation.withDefaults()

	svc := &SkillTreeService{
		kv:      opts.KV,
		catalog: opts.Catalog,
		gen:     gen,
		now:     now,
	}
	lifecycle, err := job.New(job.Options[model.SkillTreeArtifact]{
		Feature:  core.FeatureSkillTree,
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

// MustNewSkillTreeService constructs a new SkillTreeService and panics on
// error.
func MustNewSkillTreeService(opts SkillTreeServiceOptions) *SkillTreeService {
	svc, err := NewSkillTreeService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Generate submits a skill-tree generation job for the course. When
// regenerate is set, the stored artifact and the downstream lesson-skills
// artifact are deleted first so a subsequent poll never returns stale data.
func (s *SkillTreeService) Generate(
	ctx context.Context,
	courseID string,
	regenerate bool,
) (*job.SubmitResult, error) {
	if courseID == "" {
		return nil, apperrors.Validation("course id is required")
	}

	if regenerate {
		if err := s.lifecycle.Reset(ctx, courseID); err != nil {
			return nil, err
		}
		// The lesson-skill mapping is derived from the tree; drop it too.
		if _, err := s.kv.Delete(ctx, core.ArtifactKey(core.FeatureLessonSkills, courseID)); err != nil {
			return nil, fmt.Errorf("delete derived lesson skills for %s: %w", courseID, err)
		}
	}

	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	components, err := s.catalog.ListCourseComponents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lessons := lessonTitles(components)
	if len(lessons) == 0 {
		return nil, apperrors.Validationf("course %s has no lesson components", courseID)
	}

	request := model.BatchRequest{
		CustomID: chunkCustomID(courseID, 0),
		Params: model.MessageParams{
			Model:     s.gen.Model,
			MaxTokens: s.gen.MaxTokens,
			System:    skillTreeSystemPrompt,
			Messages: []model.Message{{
				Role:    "user",
				Content: skillTreePrompt(course.Title, lessons),
			}},
		},
	}

	meta := map[string]any{
		"courseTitle": course.Title,
		"lessonCount": len(lessons),
		"model":       s.gen.Model,
	}
	return s.lifecycle.Submit(ctx, courseID, []model.BatchRequest{request}, meta)
}

// Status resolves the current state of the course's skill-tree job.
func (s *SkillTreeService) Status(
	ctx context.Context,
	courseID string,
) (*job.PollResult[model.SkillTreeArtifact], error) {
	return s.lifecycle.Poll(ctx, courseID)
}

// Artifact returns the stored skill tree, or nil when none exists.
func (s *SkillTreeService) Artifact(
	ctx context.Context,
	courseID string,
) (*model.SkillTreeArtifact, error) {
	return s.lifecycle.Artifact(ctx, courseID)
}

func (s *SkillTreeService) assemble(
	rec *model.JobRecord,
	results []model.BatchResult,
) (*model.SkillTreeArtifact, error) {
	var text string
	for i := range results {
		if results[i].Succeeded() {
			text = results[i].Text
			break
		}
	}
	mermaid, err := extract.Mermaid(text)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExtraction, "extract mermaid graph")
	}

	return &model.SkillTreeArtifact{
		ArtifactMeta: model.ArtifactMeta{
			GeneratedAt: s.now().Unix(),
			Model:       rec.MetaString("model"),
		},
		CourseSourcedID: subjectFromResults(results),
		CourseTitle:     rec.MetaString("courseTitle"),
		Mermaid:         mermaid,
		LessonCount:     rec.MetaInt("lessonCount"),
	}, nil
}

// lessonTitles filters the component tree down to leaf lesson titles in
// listing order. Components with children are units, not lessons.
func lessonTitles(components []oneroster.Component) []string {
	leaves := leafLessons(components)
	titles := make([]string, 0, len(leaves))
	for _, c := range leaves {
		titles = append(titles, strings.TrimSpace(c.Title))
	}
	return titles
}

// subjectFromResults recovers the subject id from a chunk custom id.
func subjectFromResults(results []model.BatchResult) string {
	for i := range results {
		if id, _, found := strings.Cut(results[i].CustomID, ":chunk-"); found {
			return id
		}
	}
	return ""
}

const skillTreeSystemPrompt = "You are a curriculum designer. You map " +
	"courses into skill dependency graphs. Respond with a single mermaid " +
	"graph in a fenced code block and nothing else."

func skillTreePrompt(courseTitle string, lessons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n\nLessons in order:\n", courseTitle)
	b.WriteString(numberedList(lessons))
	b.WriteString("\nProduce a mermaid graph (graph TD) of the skills this " +
		"course teaches. Use one node per skill and directed edges from " +
		"prerequisite skills to the skills that build on them. Return only " +
		"the fenced mermaid block.")
	return b.String()
}
