package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/testutil"
)

func newGradebookService(t *testing.T, kv *testutil.MemoryKV, roster *stubRoster) *GradebookService {
	t.Helper()
	clock := testutil.FixedClock(time.Unix(1_700_000_100, 0))
	svc, err := NewGradebookService(GradebookServiceOptions{
		KV:     kv,
		Roster: roster,
		Now:    clock,
	})
	require.NoError(t, err)
	return svc
}

func TestXPStartsAtZero(t *testing.T) {
	svc := newGradebookService(t, testutil.NewMemoryKV(), &stubRoster{})

	total, err := svc.XP(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", total.StudentID)
	assert.Zero(t, total.Total)
}

func TestAwardXPAccumulatesAndLogs(t *testing.T) {
	svc := newGradebookService(t, testutil.NewMemoryKV(), &stubRoster{})
	ctx := context.Background()

	_, err := svc.AwardXP(ctx, "S1", 20, "diagnostic:C1")
	require.NoError(t, err)
	total, err := svc.AwardXP(ctx, "S1", 5, "lesson:L1")
	require.NoError(t, err)
	assert.Equal(t, 25, total.Total)
	assert.Equal(t, int64(1_700_000_100), total.UpdatedAt)

	events, err := svc.XPLog(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 20, events[0].Amount)
	assert.Equal(t, "diagnostic:C1", events[0].Reason)
	assert.Equal(t, 5, events[1].Amount)
}

func TestAwardXPRejectsNonPositiveAmount(t *testing.T) {
	svc := newGradebookService(t, testutil.NewMemoryKV(), &stubRoster{})

	_, err := svc.AwardXP(context.Background(), "S1", 0, "nothing")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.AwardXP(context.Background(), "S1", -5, "rollback")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestResultsReshapesRosterListing(t *testing.T) {
	roster := &stubRoster{results: []map[string]any{
		{
			"sourcedId":          "r1",
			"student":            map[string]any{"sourcedId": "S1"},
			"assessmentLineItem": map[string]any{"sourcedId": "diag-C1"},
			"score":              85.0,
			"scoreDate":          "2026-08-01",
			"scoreStatus":        "fully graded",
			"metadata":           map[string]any{"noise": true},
		},
	}}
	svc := newGradebookService(t, testutil.NewMemoryKV(), roster)

	rows, err := svc.Results(context.Background(), "C1")
	require.NoError(t, err)

	list, ok := rows.([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	row, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "S1", row["student"])
	assert.Equal(t, "diag-C1", row["assessment"])
	assert.Equal(t, 85.0, row["score"])
	assert.Equal(t, "fully graded", row["status"])
	assert.NotContains(t, row, "metadata")
}

func TestResultsEmptyCourse(t *testing.T) {
	svc := newGradebookService(t, testutil.NewMemoryKV(), &stubRoster{})

	rows, err := svc.Results(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, []any{}, rows)
}
