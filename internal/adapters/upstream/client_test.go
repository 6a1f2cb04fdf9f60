package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

// fakeTokens hands out "token-<n>" where n increments on each Invalidate.
type fakeTokens struct {
	generation  atomic.Int32
	tokenCalls  atomic.Int32
	invalidates atomic.Int32
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.tokenCalls.Add(1)
	return "token-" + string(rune('0'+f.generation.Load())), nil
}

func (f *fakeTokens) Invalidate() {
	f.invalidates.Add(1)
	f.generation.Add(1)
}

func newTestClient(t *testing.T, handler http.Handler, tokens *fakeTokens) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var opts Options
	opts.BaseURL = srv.URL
	if tokens != nil {
		opts.Tokens = tokens
	}
	client, err := New(opts)
	require.NoError(t, err)
	return client
}

func TestGetJSONAttachesBearerToken(t *testing.T) {
	tokens := &fakeTokens{}
	var seenAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sourcedId":"C1"}`))
	}), tokens)

	var dst struct {
		SourcedID string `json:"sourcedId"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/courses/C1", nil, &dst))
	assert.Equal(t, "C1", dst.SourcedID)
	assert.Equal(t, "Bearer token-0", seenAuth)
}

func TestRetryOnceAfter401(t *testing.T) {
	tokens := &fakeTokens{}
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}), tokens)

	var dst map[string]any
	require.NoError(t, client.GetJSON(context.Background(), "/courses", nil, &dst))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), tokens.invalidates.Load())
}

func TestSecond401IsReturned(t *testing.T) {
	tokens := &fakeTokens{}
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad token"}`))
	}), tokens)

	err := client.GetJSON(context.Background(), "/courses", nil, &map[string]any{})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
	assert.Equal(t, http.StatusUnauthorized, apperrors.GetUpstreamStatus(err))
	// Exactly one retry: two calls total, never more.
	assert.Equal(t, int32(2), calls.Load())
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		check      func(error) bool
		wantStatus int
	}{
		{"404 maps to not found", http.StatusNotFound, apperrors.IsNotFound, 0},
		{"429 maps to rate limited", http.StatusTooManyRequests, apperrors.IsRateLimited, 0},
		{"500 maps to 502 upstream", http.StatusInternalServerError, apperrors.IsUpstream, http.StatusBadGateway},
		{"400 maps to upstream with status", http.StatusBadRequest, apperrors.IsUpstream, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"detail"}`))
			}), nil)

			err := client.GetJSON(context.Background(), "/x", nil, &map[string]any{})
			require.Error(t, err)
			assert.True(t, tt.check(err))
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, apperrors.GetUpstreamStatus(err))
			}
			assert.Contains(t, err.Error(), "detail", "body snippet carried for diagnostics")
		})
	}
}

func TestPostJSONSendsBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "S1", body["studentId"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}), nil)

	var dst map[string]any
	err := client.PostJSON(context.Background(), "/results", map[string]string{"studentId": "S1"}, &dst)
	require.NoError(t, err)
	assert.Equal(t, true, dst["ok"])
}

func TestGetRawReturnsContentType(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<assessmentItem identifier="q1"/>`))
	}), nil)

	raw, contentType, err := client.GetRaw(context.Background(), "/items/q1", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/xml", contentType)
	assert.Contains(t, string(raw), "assessmentItem")
}
