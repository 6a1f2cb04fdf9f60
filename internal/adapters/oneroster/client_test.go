package oneroster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openlearn/adaptive-api/internal/adapters/upstream"
)

func newRosterClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := upstream.New(upstream.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return NewClient(base)
}

func TestGetCourse(t *testing.T) {
	client := newRosterClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/courses/C1", r.URL.Path)
		_, _ = w.Write([]byte(`{"course":{"sourcedId":"C1","title":"Algebra I"}}`))
	}))

	course, err := client.GetCourse(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "Algebra I", course.Title)
}

func TestListCourseComponentsPaginates(t *testing.T) {
	// Two full pages then a short page; the client must walk all three.
	client := newRosterClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/courseComponents", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "course.sourcedId='C1'", r.URL.Query().Get("filter"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		count := PageSize
		if offset >= 2*PageSize {
			count = 5
		}
		components := make([]Component, count)
		for i := range components {
			components[i] = Component{
				SourcedID: fmt.Sprintf("L%d", offset+i),
				Title:     fmt.Sprintf("Lesson %d", offset+i),
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"courseComponents": components,
		}))
	}))

	components, err := client.ListCourseComponents(context.Background(), "C1")
	require.NoError(t, err)
	assert.Len(t, components, 2*PageSize+5)
	assert.Equal(t, "L0", components[0].SourcedID)
	assert.Equal(t, "L204", components[len(components)-1].SourcedID)
}

func TestCreateAssessmentResult(t *testing.T) {
	var posted map[string]AssessmentResult
	client := newRosterClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assessmentResults", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.CreateAssessmentResult(context.Background(), AssessmentResult{
		Student:       Ref{SourcedID: "S1"},
		AssessmentRef: Ref{SourcedID: "diag-C1"},
		Score:         80,
		ScoreStatus:   "fully graded",
	})
	require.NoError(t, err)
	assert.Equal(t, "S1", posted["assessmentResult"].Student.SourcedID)
}

func TestListAssessmentResultsShortFirstPage(t *testing.T) {
	var calls int
	client := newRosterClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"assessmentResults":[{"score":90}]}`))
	}))

	results, err := client.ListAssessmentResults(context.Background(), "student.sourcedId='S1'")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, calls, "a short page ends pagination")
}
