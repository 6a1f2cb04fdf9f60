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

func newLessonSkillsService(t *testing.T, kv *testutil.MemoryKV, batch *testutil.ScriptedBatch, catalog *stubCatalog) *LessonSkillsService {
	t.Helper()
	svc, err := NewLessonSkillsService(LessonSkillsServiceOptions{
		KV:      kv,
		Batch:   batch,
		Catalog: catalog,
	})
	require.NoError(t, err)
	return svc
}

func TestLessonSkillsGenerateRequiresSkillTree(t *testing.T) {
	svc := newLessonSkillsService(t, testutil.NewMemoryKV(), &testutil.ScriptedBatch{},
		&stubCatalog{components: lessonComponents(2)})

	_, err := svc.Generate(context.Background(), "C1", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "no skill tree")
}

func TestLessonSkillsGenerateChunksLessons(t *testing.T) {
	kv := testutil.NewMemoryKV()
	batch := &testutil.ScriptedBatch{}
	svc := newLessonSkillsService(t, kv, batch, &stubCatalog{components: lessonComponents(45)})
	seedSkillTree(t, kv, "C1", "graph TD\nA-->B")

	result, err := svc.Generate(context.Background(), "C1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Meta["chunkCount"])
	assert.Equal(t, 45, result.Meta["lessonCount"])

	submitted := batch.SubmittedRequests()
	require.Len(t, submitted, 1)
	require.Len(t, submitted[0], 3)
	assert.Equal(t, "C1:chunk-0", submitted[0][0].CustomID)
	assert.Equal(t, "C1:chunk-1", submitted[0][1].CustomID)
	assert.Equal(t, "C1:chunk-2", submitted[0][2].CustomID)
	// Every chunk carries the skill graph.
	for _, req := range submitted[0] {
		assert.Contains(t, req.Params.Messages[0].Content, "graph TD")
	}
}

func TestLessonSkillsPollMergesChunks(t *testing.T) {
	kv := testutil.NewMemoryKV()
	batch := &testutil.ScriptedBatch{}
	svc := newLessonSkillsService(t, kv, batch, &stubCatalog{components: lessonComponents(25)})
	seedSkillTree(t, kv, "C1", "graph TD\nA-->B")

	_, err := svc.Generate(context.Background(), "C1", false)
	require.NoError(t, err)

	batch.Status = model.BatchStatusEnded
	batch.Counts = model.RequestCounts{Succeeded: 2}
	batch.Results = []model.BatchResult{
		{
			CustomID: "C1:chunk-0",
			Type:     model.BatchResultSucceeded,
			Text:     "```json\n{\"lesson-0\": {\"title\": \"Lesson 0\", \"skills\": [\"A\"]}}\n```",
		},
		{
			CustomID: "C1:chunk-1",
			Type:     model.BatchResultSucceeded,
			Text:     `{"lesson-20": {"title": "Lesson 20", "skills": ["A", "B"]}}`,
		},
	}

	poll, err := svc.Status(context.Background(), "C1")
	require.NoError(t, err)
	require.Equal(t, job.StateDone, poll.State)
	require.NotNil(t, poll.Artifact)
	assert.Equal(t, 2, poll.Artifact.ChunkCount)
	require.Len(t, poll.Artifact.Lessons, 2)
	assert.Equal(t, []string{"A"}, poll.Artifact.Lessons["lesson-0"].Skills)
	assert.Equal(t, []string{"A", "B"}, poll.Artifact.Lessons["lesson-20"].Skills)
}

func TestLessonSkillsPollFailsWhenNoChunkParses(t *testing.T) {
	kv := testutil.NewMemoryKV()
	batch := &testutil.ScriptedBatch{}
	svc := newLessonSkillsService(t, kv, batch, &stubCatalog{components: lessonComponents(2)})
	seedSkillTree(t, kv, "C1", "graph TD\nA-->B")

	_, err := svc.Generate(context.Background(), "C1", false)
	require.NoError(t, err)

	batch.Status = model.BatchStatusEnded
	batch.Counts = model.RequestCounts{Succeeded: 1, Errored: 1}
	batch.Results = []model.BatchResult{
		{CustomID: "C1:chunk-0", Type: model.BatchResultErrored, Error: "overloaded"},
	}

	_, err = svc.Status(context.Background(), "C1")
	require.Error(t, err)
	assert.True(t, apperrors.IsExtraction(err))
}
