package job_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/job"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/mocks"
)

type nopArtifact struct{}

func mockLifecycle(t *testing.T, kv core.KVStore, batch core.BatchClient) *job.Lifecycle[nopArtifact] {
	t.Helper()
	return job.Must(job.Options[nopArtifact]{
		Feature: core.FeatureSkillTree,
		KV:      kv,
		Batch:   batch,
		Assemble: func(*model.JobRecord, []model.BatchResult) (*nopArtifact, error) {
			return &nopArtifact{}, nil
		},
	})
}

func TestSubmitSurfacesKVReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKVStore(ctrl)
	batch := mocks.NewMockBatchClient(ctrl)

	kv.EXPECT().
		Get(gomock.Any(), core.JobKey(core.FeatureSkillTree, "C1")).
		Return(nil, assert.AnError)

	lc := mockLifecycle(t, kv, batch)
	_, err := lc.Submit(context.Background(), "C1", []model.BatchRequest{{CustomID: "C1:chunk-0"}}, nil)
	require.ErrorIs(t, err, assert.AnError)
}

func TestSubmitDoesNotRecordJobWhenBatchCreationFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKVStore(ctrl)
	batch := mocks.NewMockBatchClient(ctrl)

	jobKey := core.JobKey(core.FeatureSkillTree, "C1")
	kv.EXPECT().Get(gomock.Any(), jobKey).Return(nil, nil)
	batch.EXPECT().CreateBatch(gomock.Any(), gomock.Any()).Return(nil, assert.AnError)
	// No Set or SetIfNotExists calls: the subject stays resubmittable.

	lc := mockLifecycle(t, kv, batch)
	_, err := lc.Submit(context.Background(), "C1", []model.BatchRequest{{CustomID: "C1:chunk-0"}}, nil)
	require.ErrorIs(t, err, assert.AnError)
}

func TestPollDeletesRecordForCanceledBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKVStore(ctrl)
	batch := mocks.NewMockBatchClient(ctrl)

	rec, err := model.EncodeJobRecord(&model.JobRecord{
		BatchID:   "batch-9",
		Status:    model.JobStatusProcessing,
		CreatedAt: time.Now().Unix(),
	})
	require.NoError(t, err)

	artifactKey := core.ArtifactKey(core.FeatureSkillTree, "C1")
	jobKey := core.JobKey(core.FeatureSkillTree, "C1")

	kv.EXPECT().Get(gomock.Any(), artifactKey).Return(nil, nil)
	kv.EXPECT().Get(gomock.Any(), jobKey).Return(rec, nil)
	batch.EXPECT().GetBatch(gomock.Any(), "batch-9").
		Return(&model.Batch{ID: "batch-9", ProcessingStatus: model.BatchStatusCanceling}, nil)
	kv.EXPECT().Delete(gomock.Any(), jobKey).Return(true, nil)

	lc := mockLifecycle(t, kv, batch)
	_, err = lc.Poll(context.Background(), "C1")
	require.Error(t, err)
	assert.True(t, apperrors.IsJobState(err))
}
