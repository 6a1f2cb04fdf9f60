package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/openlearn/adaptive-api/internal/domain/model"
)

// ScriptedBatch is a core.BatchClient fake whose status and results are set
// by the test between calls.
type ScriptedBatch struct {
	mu sync.Mutex

	// NextBatchID is assigned to the next created batch. Defaults to "batch-<n>".
	NextBatchID string
	// Status is returned by GetBatch for every known batch id.
	Status string
	// Counts is returned by GetBatch alongside Status.
	Counts model.RequestCounts
	// Results is returned by BatchResults.
	Results []model.BatchResult

	// CreateErr, GetErr, and ResultsErr force the corresponding call to fail.
	CreateErr  error
	GetErr     error
	ResultsErr error

	created   int
	submitted [][]model.BatchRequest
}

// CreateBatch implements core.BatchClient.
func (s *ScriptedBatch) CreateBatch(
	_ context.Context,
	requests []model.BatchRequest,
) (*model.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.created++
	id := s.NextBatchID
	if id == "" {
		id = fmt.Sprintf("batch-%d", s.created)
	}
	reqs := make([]model.BatchRequest, len(requests))
	copy(reqs, requests)
	s.submitted = append(s.submitted, reqs)
	return &model.Batch{ID: id, ProcessingStatus: model.BatchStatusInProgress}, nil
}

// GetBatch implements core.BatchClient.
func (s *ScriptedBatch) GetBatch(_ context.Context, batchID string) (*model.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	status := s.Status
	if status == "" {
		status = model.BatchStatusInProgress
	}
	return &model.Batch{ID: batchID, ProcessingStatus: status, RequestCounts: s.Counts}, nil
}

// BatchResults implements core.BatchClient.
func (s *ScriptedBatch) BatchResults(
	_ context.Context,
	_ string,
) ([]model.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ResultsErr != nil {
		return nil, s.ResultsErr
	}
	out := make([]model.BatchResult, len(s.Results))
	copy(out, s.Results)
	return out, nil
}

// CreatedBatches returns how many batches were submitted.
func (s *ScriptedBatch) CreatedBatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// SubmittedRequests returns the request sets submitted so far.
func (s *ScriptedBatch) SubmittedRequests() [][]model.BatchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]model.BatchRequest, len(s.submitted))
	copy(out, s.submitted)
	return out
}

// ScriptedMessages is a core.MessageClient fake that replies from a queue or
// a fixed response.
type ScriptedMessages struct {
	mu sync.Mutex

	// Reply is returned for every call when Replies is empty.
	Reply string
	// Replies are returned in order, one per call.
	Replies []string
	// Err forces every call to fail.
	Err error

	calls []model.MessageParams
}

// CreateMessage implements core.MessageClient.
func (s *ScriptedMessages) CreateMessage(
	_ context.Context,
	params model.MessageParams,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.calls = append(s.calls, params)
	if len(s.Replies) > 0 {
		reply := s.Replies[0]
		s.Replies = s.Replies[1:]
		return reply, nil
	}
	return s.Reply, nil
}

// Calls returns the message params seen so far.
func (s *ScriptedMessages) Calls() []model.MessageParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MessageParams, len(s.calls))
	copy(out, s.calls)
	return out
}
