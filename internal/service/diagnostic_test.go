package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/adaptive-api/internal/domain/job"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/testutil"
)

type diagnosticFixture struct {
	svc       *DiagnosticService
	kv        *testutil.MemoryKV
	batch     *testutil.ScriptedBatch
	ledger    *stubLedger
	roster    *stubRoster
	responses *stubResponses
}

func newDiagnosticFixture(t *testing.T) *diagnosticFixture {
	t.Helper()
	f := &diagnosticFixture{
		kv:        testutil.NewMemoryKV(),
		batch:     &testutil.ScriptedBatch{},
		ledger:    &stubLedger{},
		roster:    &stubRoster{},
		responses: &stubResponses{},
	}
	svc, err := NewDiagnosticService(DiagnosticServiceOptions{
		KV:        f.kv,
		Batch:     f.batch,
		Ledger:    f.ledger,
		Results:   f.roster,
		Responses: f.responses,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *diagnosticFixture) seedArtifact(t *testing.T, courseID string, items ...model.DiagnosticItem) {
	t.Helper()
	f.batch.Status = model.BatchStatusEnded
	f.batch.Counts = model.RequestCounts{Succeeded: 1}
	f.batch.Results = []model.BatchResult{{
		CustomID: courseID + ":chunk-0",
		Type:     model.BatchResultSucceeded,
		Text:     mustJSON(t, map[string]any{"items": items}),
	}}

	seedSkillTree(t, f.kv, courseID, "graph TD\nA-->B")
	_, err := f.svc.Generate(context.Background(), courseID, len(items), false)
	require.NoError(t, err)
	poll, err := f.svc.Status(context.Background(), courseID)
	require.NoError(t, err)
	require.Equal(t, job.StateDone, poll.State)
}

func TestDiagnosticGenerateRequiresSkillTree(t *testing.T) {
	f := newDiagnosticFixture(t)

	_, err := f.svc.Generate(context.Background(), "C1", 5, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDiagnosticGenerateDefaultsQuestionCount(t *testing.T) {
	f := newDiagnosticFixture(t)
	seedSkillTree(t, f.kv, "C1", "graph TD\nA-->B")

	result, err := f.svc.Generate(context.Background(), "C1", 0, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultQuestionCount, result.Meta["questionCount"])

	submitted := f.batch.SubmittedRequests()
	require.Len(t, submitted, 1)
	assert.Contains(t, submitted[0][0].Params.Messages[0].Content, "Produce 10 items.")
}

func TestDiagnosticPollStoresValidItems(t *testing.T) {
	f := newDiagnosticFixture(t)
	f.seedArtifact(t, "C1", soundItem("q1"), soundItem("q2"), soundItem("q3"))

	poll, err := f.svc.Status(context.Background(), "C1")
	require.NoError(t, err)
	require.Equal(t, job.StateDone, poll.State)
	assert.Len(t, poll.Artifact.Items, 3)
	assert.Empty(t, poll.Artifact.ValidationWarning)
}

func TestDiagnosticPollKeepsInvalidItemsWithWarning(t *testing.T) {
	f := newDiagnosticFixture(t)
	bad := soundItem("q1")
	bad.Options = bad.Options[:1]
	f.seedArtifact(t, "C1", bad, soundItem("q2"), soundItem("q3"))

	poll, err := f.svc.Status(context.Background(), "C1")
	require.NoError(t, err)
	require.Equal(t, job.StateDone, poll.State)
	// Data survives with the warning attached, never dropped.
	assert.Len(t, poll.Artifact.Items, 3)
	assert.Contains(t, poll.Artifact.ValidationWarning, "q1: 1 options")
}

func TestDiagnosticScoreUnknownCourse(t *testing.T) {
	f := newDiagnosticFixture(t)

	_, err := f.svc.Score(context.Background(), "C9", "S1",
		[]model.DiagnosticAnswer{{ItemID: "q1", OptionID: "a"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDiagnosticScoreTalliesSkillsAndAwardsXP(t *testing.T) {
	f := newDiagnosticFixture(t)
	geometry := soundItem("q3")
	geometry.Skill = "geometry"
	f.seedArtifact(t, "C1", soundItem("q1"), soundItem("q2"), geometry)

	score, err := f.svc.Score(context.Background(), "C1", "S1", []model.DiagnosticAnswer{
		{ItemID: "q1", OptionID: "b"}, // correct
		{ItemID: "q2", OptionID: "a"}, // wrong
		{ItemID: "q3", OptionID: "b"}, // correct
	})
	require.NoError(t, err)

	assert.Equal(t, 2, score.Correct)
	assert.Equal(t, 3, score.Total)
	assert.Equal(t, model.SkillScore{Correct: 1, Total: 2}, score.Skills["algebra"])
	assert.Equal(t, model.SkillScore{Correct: 1, Total: 1}, score.Skills["geometry"])
	assert.Equal(t, 2*defaultXPPerCorrect, score.XPAwarded)

	require.Len(t, f.ledger.awards, 1)
	assert.Equal(t, xpAward{"S1", 20, "diagnostic:C1"}, f.ledger.awards[0])

	require.Len(t, f.roster.created, 1)
	created := f.roster.created[0]
	assert.Equal(t, "S1", created.Student.SourcedID)
	assert.Equal(t, "diagnostic:C1", created.AssessmentRef.SourcedID)
	assert.InDelta(t, 66.67, created.Score, 0.01)

	assert.Len(t, f.responses.recorded, 3)
	assert.True(t, f.responses.recorded[0].Correct)
	assert.False(t, f.responses.recorded[1].Correct)
}

func TestDiagnosticScoreRejectsUnknownItem(t *testing.T) {
	f := newDiagnosticFixture(t)
	f.seedArtifact(t, "C1", soundItem("q1"), soundItem("q2"), soundItem("q3"))

	_, err := f.svc.Score(context.Background(), "C1", "S1",
		[]model.DiagnosticAnswer{{ItemID: "q99", OptionID: "a"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDiagnosticScoreAllWrongAwardsNothing(t *testing.T) {
	f := newDiagnosticFixture(t)
	f.seedArtifact(t, "C1", soundItem("q1"), soundItem("q2"), soundItem("q3"))

	score, err := f.svc.Score(context.Background(), "C1", "S1", []model.DiagnosticAnswer{
		{ItemID: "q1", OptionID: "a"},
	})
	require.NoError(t, err)
	assert.Zero(t, score.XPAwarded)
	assert.Empty(t, f.ledger.awards)
	// The zero score is still recorded upstream.
	require.Len(t, f.roster.created, 1)
}
