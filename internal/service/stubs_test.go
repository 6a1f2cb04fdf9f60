package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openlearn/adaptive-api/internal/adapters/oneroster"
	"github.com/openlearn/adaptive-api/internal/adapters/powerpath"
	"github.com/openlearn/adaptive-api/internal/adapters/qti"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	"github.com/openlearn/adaptive-api/internal/testutil"
)

type stubCatalog struct {
	course     *oneroster.Course
	components []oneroster.Component
	err        error
}

func (s *stubCatalog) GetCourse(_ context.Context, sourcedID string) (*oneroster.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.course != nil {
		return s.course, nil
	}
	return &oneroster.Course{SourcedID: sourcedID, Title: "Course " + sourcedID}, nil
}

func (s *stubCatalog) ListCourseComponents(_ context.Context, _ string) ([]oneroster.Component, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.components, nil
}

type stubBank struct {
	test        *qti.AssessmentTest
	items       map[string]*qti.Item
	stimulus    string
	stimulusErr error
	err         error
}

func (s *stubBank) GetAssessmentTest(_ context.Context, identifier string) (*qti.AssessmentTest, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.test != nil {
		return s.test, nil
	}
	return &qti.AssessmentTest{Identifier: identifier}, nil
}

func (s *stubBank) GetItem(_ context.Context, identifier string) (*qti.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	if item, ok := s.items[identifier]; ok {
		return item, nil
	}
	return &qti.Item{Identifier: identifier, Prompt: "Prompt " + identifier}, nil
}

func (s *stubBank) GetStimulus(_ context.Context, _ string) (string, error) {
	if s.stimulusErr != nil {
		return "", s.stimulusErr
	}
	return s.stimulus, nil
}

type stubRoster struct {
	results   []map[string]any
	created   []oneroster.AssessmentResult
	listErr   error
	createErr error
}

func (s *stubRoster) ListAssessmentResults(_ context.Context, _ string) ([]map[string]any, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.results, nil
}

func (s *stubRoster) CreateAssessmentResult(_ context.Context, result oneroster.AssessmentResult) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, result)
	return nil
}

type xpAward struct {
	studentID string
	amount    int
	reason    string
}

type stubLedger struct {
	awards []xpAward
	err    error
}

func (s *stubLedger) AwardXP(_ context.Context, studentID string, amount int, reason string) (*model.XPTotal, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.awards = append(s.awards, xpAward{studentID, amount, reason})
	return &model.XPTotal{StudentID: studentID, Total: amount}, nil
}

type stubResponses struct {
	recorded []powerpath.ItemResponse
	err      error
}

func (s *stubResponses) RecordItemResponse(_ context.Context, response powerpath.ItemResponse) error {
	if s.err != nil {
		return s.err
	}
	s.recorded = append(s.recorded, response)
	return nil
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

// seedSkillTree stores a skill-tree artifact so features that depend on one
// pass their precondition.
func seedSkillTree(t *testing.T, kv *testutil.MemoryKV, courseID, mermaid string) {
	t.Helper()
	raw, err := json.Marshal(&model.SkillTreeArtifact{
		CourseSourcedID: courseID,
		Mermaid:         mermaid,
	})
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), core.ArtifactKey(core.FeatureSkillTree, courseID), raw, 0))
}

// lessonComponents builds a flat list of n leaf lessons under one unit.
func lessonComponents(n int) []oneroster.Component {
	components := []oneroster.Component{{SourcedID: "unit-1", Title: "Unit 1"}}
	for i := 0; i < n; i++ {
		components = append(components, oneroster.Component{
			SourcedID: "lesson-" + strconv.Itoa(i),
			Title:     "Lesson " + strconv.Itoa(i),
			Parent:    &oneroster.Ref{SourcedID: "unit-1"},
		})
	}
	return components
}
