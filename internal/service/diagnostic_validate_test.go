package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/adaptive-api/internal/domain/model"
)

func soundItem(id string) model.DiagnosticItem {
	return model.DiagnosticItem{
		ID:       id,
		Skill:    "algebra",
		Question: "What is 2+2?",
		Options: []model.DiagnosticOption{
			{ID: "a", Text: "3"},
			{ID: "b", Text: "4", IsCorrect: true},
			{ID: "c", Text: "5"},
		},
	}
}

func TestValidateDiagnosticAcceptsSoundItems(t *testing.T) {
	items := []model.DiagnosticItem{soundItem("q1"), soundItem("q2"), soundItem("q3")}

	_, warning := validateDiagnostic(items, 3)
	assert.Empty(t, warning)
}

func TestValidateDiagnosticFlagsTooFewItems(t *testing.T) {
	_, warning := validateDiagnostic([]model.DiagnosticItem{soundItem("q1")}, 3)
	assert.Contains(t, warning, "expected at least 3 items, got 1")
}

func TestValidateDiagnosticFlagsSingleOptionItem(t *testing.T) {
	item := soundItem("q1")
	item.Options = item.Options[:1]

	_, warning := validateDiagnostic([]model.DiagnosticItem{item}, 1)
	assert.Contains(t, warning, "q1: 1 options, need at least 2")
}

func TestValidateDiagnosticFlagsMissingFields(t *testing.T) {
	item := soundItem("q1")
	item.Question = "  "
	item.Skill = ""

	_, warning := validateDiagnostic([]model.DiagnosticItem{item}, 1)
	assert.Contains(t, warning, "q1: missing question text")
	assert.Contains(t, warning, "q1: missing skill")
}

func TestValidateDiagnosticRepairsFlagsFromCorrectAnswer(t *testing.T) {
	item := soundItem("q1")
	for i := range item.Options {
		item.Options[i].IsCorrect = false
	}
	item.CorrectAnswer = "b"

	repaired, warning := validateDiagnostic([]model.DiagnosticItem{item}, 1)
	assert.Empty(t, warning)
	assert.Equal(t, "b", repaired[0].CorrectOptionID())
}

func TestValidateDiagnosticRepairsDoubleFlaggedItem(t *testing.T) {
	item := soundItem("q1")
	item.Options[0].IsCorrect = true // now a and b both flagged
	item.CorrectAnswer = "b"

	repaired, warning := validateDiagnostic([]model.DiagnosticItem{item}, 1)
	assert.Empty(t, warning)
	assert.Equal(t, "b", repaired[0].CorrectOptionID())
}

func TestValidateDiagnosticFlagsUnrepairableItem(t *testing.T) {
	item := soundItem("q1")
	for i := range item.Options {
		item.Options[i].IsCorrect = false
	}
	item.CorrectAnswer = "z" // not an option id

	repaired, warning := validateDiagnostic([]model.DiagnosticItem{item}, 1)
	require.Len(t, repaired, 1)
	assert.Contains(t, warning, "q1: no single option flagged correct")
}
