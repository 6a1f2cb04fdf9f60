package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

func newAPIClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestCreateBatch(t *testing.T) {
	var posted map[string]any
	client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages/batches", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		_, _ = w.Write([]byte(`{"id":"msgbatch_01","processing_status":"in_progress","request_counts":{"processing":2}}`))
	}))

	batch, err := client.CreateBatch(context.Background(), []model.BatchRequest{
		{CustomID: "C1:chunk-0", Params: model.MessageParams{Model: "claude-sonnet", MaxTokens: 1024}},
		{CustomID: "C1:chunk-1", Params: model.MessageParams{Model: "claude-sonnet", MaxTokens: 1024}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msgbatch_01", batch.ID)
	assert.Equal(t, model.BatchStatusInProgress, batch.ProcessingStatus)
	assert.Equal(t, 2, batch.RequestCounts.Processing)

	requests, ok := posted["requests"].([]any)
	require.True(t, ok)
	assert.Len(t, requests, 2)
}

func TestCreateBatchEmpty(t *testing.T) {
	client := newAPIClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))
	_, err := client.CreateBatch(context.Background(), nil)
	require.Error(t, err)
}

func TestGetBatch(t *testing.T) {
	client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages/batches/msgbatch_01", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"msgbatch_01","processing_status":"ended","request_counts":{"succeeded":1,"errored":1}}`))
	}))

	batch, err := client.GetBatch(context.Background(), "msgbatch_01")
	require.NoError(t, err)
	assert.True(t, batch.Terminal())
	assert.Equal(t, 1, batch.RequestCounts.Succeeded)
	assert.Equal(t, 1, batch.RequestCounts.Errored)
}

func TestBatchResultsDecodesJSONL(t *testing.T) {
	client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages/batches/msgbatch_01/results", r.URL.Path)
		_, _ = w.Write([]byte(
			`{"custom_id":"C1:chunk-0","result":{"type":"succeeded","message":{"content":[{"type":"text","text":"part one"},{"type":"text","text":" part two"}]}}}` + "\n" +
				`{"custom_id":"C1:chunk-1","result":{"type":"errored","error":{"type":"api_error","message":"overloaded"}}}` + "\n"))
	}))

	results, err := client.BatchResults(context.Background(), "msgbatch_01")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "C1:chunk-0", results[0].CustomID)
	assert.True(t, results[0].Succeeded())
	assert.Equal(t, "part one part two", results[0].Text)

	assert.Equal(t, "C1:chunk-1", results[1].CustomID)
	assert.False(t, results[1].Succeeded())
	assert.Equal(t, "overloaded", results[1].Error)
}

func TestCreateMessage(t *testing.T) {
	client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		var params model.MessageParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "claude-sonnet", params.Model)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"An explanation."}]}`))
	}))

	text, err := client.CreateMessage(context.Background(), model.MessageParams{
		Model:     "claude-sonnet",
		MaxTokens: 512,
		Messages:  []model.Message{{Role: "user", Content: "explain q1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "An explanation.", text)
}

func TestErrorMapping(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
		}))
		_, err := client.GetBatch(context.Background(), "b1")
		require.Error(t, err)
		assert.True(t, apperrors.IsRateLimited(err))
	})

	t.Run("server error maps to 502", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		_, err := client.GetBatch(context.Background(), "b1")
		require.Error(t, err)
		assert.True(t, apperrors.IsUpstream(err))
		assert.Equal(t, http.StatusBadGateway, apperrors.GetUpstreamStatus(err))
	})
}
