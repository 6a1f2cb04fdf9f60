package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	"github.com/openlearn/adaptive-api/internal/testutil"
)

func newTestRunner(t *testing.T, kv core.KVStore) *Runner {
	t.Helper()
	r, err := New(Options{KV: kv, Limit: 2, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Shutdown() })
	return r
}

func TestNewRequiresKV(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestStartRunsTaskAndCheckpointsProgress(t *testing.T) {
	kv := testutil.NewMemoryKV()
	runner := newTestRunner(t, kv)

	taskID, resumed, err := runner.Start(context.Background(), core.FeatureExplanations, "lesson-1", 3,
		func(ctx context.Context, report func(int)) error {
			for i := 1; i <= 3; i++ {
				report(i)
			}
			return nil
		})
	require.NoError(t, err)
	require.False(t, resumed)
	require.NotEmpty(t, taskID)

	require.NoError(t, runner.Wait())

	progress, err := runner.Progress(context.Background(), core.FeatureExplanations, "lesson-1")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, taskID, progress.TaskID)
	assert.Equal(t, model.ProgressStatusDone, progress.Status)
	assert.Equal(t, 3, progress.Completed)
	assert.Equal(t, 3, progress.Total)
	assert.Empty(t, progress.Error)
}

func TestStartRecordsFailure(t *testing.T) {
	kv := testutil.NewMemoryKV()
	runner := newTestRunner(t, kv)

	_, _, err := runner.Start(context.Background(), core.FeatureExplanations, "lesson-2", 2,
		func(ctx context.Context, report func(int)) error {
			report(1)
			return errors.New("generation refused")
		})
	require.NoError(t, err)
	require.NoError(t, runner.Wait())

	progress, err := runner.Progress(context.Background(), core.FeatureExplanations, "lesson-2")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, model.ProgressStatusFailed, progress.Status)
	assert.Equal(t, 1, progress.Completed)
	assert.Equal(t, "generation refused", progress.Error)
}

func TestStartDeduplicatesInFlightTask(t *testing.T) {
	kv := testutil.NewMemoryKV()
	runner := newTestRunner(t, kv)

	release := make(chan struct{})
	first, resumed, err := runner.Start(context.Background(), core.FeatureExplanations, "lesson-3", 1,
		func(ctx context.Context, report func(int)) error {
			<-release
			return nil
		})
	require.NoError(t, err)
	require.False(t, resumed)
	require.True(t, runner.Running(core.FeatureExplanations, "lesson-3"))

	second, resumed, err := runner.Start(context.Background(), core.FeatureExplanations, "lesson-3", 1,
		func(ctx context.Context, report func(int)) error { return nil })
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, first, second)

	close(release)
	require.NoError(t, runner.Wait())
	assert.False(t, runner.Running(core.FeatureExplanations, "lesson-3"))
}

func TestProgressWithoutTaskReturnsNil(t *testing.T) {
	kv := testutil.NewMemoryKV()
	runner := newTestRunner(t, kv)

	progress, err := runner.Progress(context.Background(), core.FeatureExplanations, "missing")
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestStartPropagatesCheckpointError(t *testing.T) {
	kv := testutil.NewMemoryKV()
	kv.Err = errors.New("kv down")
	runner := newTestRunner(t, kv)

	_, _, err := runner.Start(context.Background(), core.FeatureExplanations, "lesson-4", 1,
		func(ctx context.Context, report func(int)) error { return nil })
	require.Error(t, err)
	assert.False(t, runner.Running(core.FeatureExplanations, "lesson-4"))
}
