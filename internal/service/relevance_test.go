package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/adaptive-api/internal/domain/job"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/testutil"
)

func newRelevanceService(t *testing.T, kv *testutil.MemoryKV, batch *testutil.ScriptedBatch, bank *stubBank) *RelevanceService {
	t.Helper()
	svc, err := NewRelevanceService(RelevanceServiceOptions{
		KV:    kv,
		Batch: batch,
		Bank:  bank,
	})
	require.NoError(t, err)
	return svc
}

func TestRelevanceGenerateIncludesLessonContent(t *testing.T) {
	batch := &testutil.ScriptedBatch{}
	bank := bankWithItems(2)
	bank.stimulus = "Fractions are parts of a whole."
	svc := newRelevanceService(t, testutil.NewMemoryKV(), batch, bank)

	_, err := svc.Generate(context.Background(), "L1", false)
	require.NoError(t, err)

	submitted := batch.SubmittedRequests()
	require.Len(t, submitted, 1)
	content := submitted[0][0].Params.Messages[0].Content
	assert.Contains(t, content, "Fractions are parts of a whole.")
	assert.Contains(t, content, "item-0")
}

func TestRelevanceGenerateToleratesMissingStimulus(t *testing.T) {
	batch := &testutil.ScriptedBatch{}
	bank := bankWithItems(2)
	bank.stimulusErr = errors.New("404 stimulus")
	svc := newRelevanceService(t, testutil.NewMemoryKV(), batch, bank)

	_, err := svc.Generate(context.Background(), "L1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.CreatedBatches())
}

func TestRelevanceGenerateRejectsEmptyLesson(t *testing.T) {
	svc := newRelevanceService(t, testutil.NewMemoryKV(), &testutil.ScriptedBatch{}, &stubBank{})

	_, err := svc.Generate(context.Background(), "L1", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRelevancePollBuildsArtifact(t *testing.T) {
	kv := testutil.NewMemoryKV()
	batch := &testutil.ScriptedBatch{}
	svc := newRelevanceService(t, kv, batch, bankWithItems(2))

	_, err := svc.Generate(context.Background(), "L1", false)
	require.NoError(t, err)

	batch.Status = model.BatchStatusEnded
	batch.Counts = model.RequestCounts{Succeeded: 1}
	batch.Results = []model.BatchResult{{
		CustomID: "L1:chunk-0",
		Type:     model.BatchResultSucceeded,
		Text: "```json\n" +
			`{"item-0": {"relevant": true, "score": 0.9, "reason": "on topic"},` +
			` "item-1": {"relevant": false, "score": 0.2, "reason": "off topic"}}` +
			"\n```",
	}}

	poll, err := svc.Status(context.Background(), "L1")
	require.NoError(t, err)
	require.Equal(t, job.StateDone, poll.State)
	assert.Equal(t, "L1", poll.Artifact.LessonSourcedID)
	require.Len(t, poll.Artifact.Questions, 2)
	assert.True(t, poll.Artifact.Questions["item-0"].Relevant)
	assert.InDelta(t, 0.2, poll.Artifact.Questions["item-1"].Score, 1e-9)
}
