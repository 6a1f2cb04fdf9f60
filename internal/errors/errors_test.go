package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NotFound("skill tree not found")
		assert.Equal(t, "skill tree not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := Wrap(cause, ErrCodeUpstream, "fetch course")
		assert.Equal(t, "fetch course: connection refused", err.Error())
	})
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrapf(cause, ErrCodeInternal, "poll batch %s", "b1")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "poll batch b1: boom", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not_found", NotFoundf("course %s", "C1"), IsNotFound},
		{"validation", Validation("courseSourcedId is required"), IsValidation},
		{"upstream", Upstream(503, "roster unavailable"), IsUpstream},
		{"rate_limited", RateLimited("too many requests"), IsRateLimited},
		{"extraction", Extraction("no JSON object in response"), IsExtraction},
		{"job_state", JobStatef("batch failed: %d errored", 3), IsJobState},
		{"internal", Internal("bug"), IsInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(stderrors.New("plain")))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := Validation("questionCount must be positive")
	outer := fmt.Errorf("submit diagnostic: %w", inner)
	assert.True(t, IsValidation(outer))
	assert.Equal(t, ErrCodeValidation, GetCode(outer))
}

func TestGetUpstreamStatus(t *testing.T) {
	assert.Equal(t, 502, GetUpstreamStatus(Upstream(502, "bad gateway")))
	assert.Equal(t, 0, GetUpstreamStatus(Validation("nope")))
	assert.Equal(t, 0, GetUpstreamStatus(stderrors.New("plain")))
}
