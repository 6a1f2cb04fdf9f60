// Package core defines the ports between the service layer and the external
// collaborators (KV store, batch inference, identity) in hexagonal style.
package core

import (
	"context"
	"time"

	"github.com/openlearn/adaptive-api/internal/domain/model"
)

// KVStore defines the interface for the external key-value service that holds
// all cross-invocation state (job records, result artifacts, XP bookkeeping).
// Keys are namespaced strings built from (feature, subjectID) tuples; values
// are JSON-encoded.
type KVStore interface {
	// Get retrieves a value by key. Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under key. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a key. Returns true if the key was deleted, false if it
	// didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// ListAppend appends a member to the list stored at key, creating it if
	// absent.
	ListAppend(ctx context.Context, key string, member []byte) error

	// ListRemove removes all occurrences of member from the list at key.
	ListRemove(ctx context.Context, key string, member []byte) error

	// ListMembers returns every member of the list at key, oldest first.
	// Returns an empty slice if the key doesn't exist.
	ListMembers(ctx context.Context, key string) ([][]byte, error)

	// Health checks the health of the KV connection.
	Health(ctx context.Context) error
}

// BatchClient defines the interface for the external batch-inference service.
type BatchClient interface {
	// CreateBatch submits a set of generation requests as one asynchronous
	// batch and returns its handle.
	CreateBatch(ctx context.Context, requests []model.BatchRequest) (*model.Batch, error)

	// GetBatch returns the current processing status and request counts for a
	// previously submitted batch.
	GetBatch(ctx context.Context, batchID string) (*model.Batch, error)

	// BatchResults fetches the per-request results of an ended batch, one
	// entry per custom_id.
	BatchResults(ctx context.Context, batchID string) ([]model.BatchResult, error)
}

// MessageClient defines the synchronous single-message generation interface
// used by the background explanation worker.
type MessageClient interface {
	// CreateMessage runs one generation request to completion and returns the
	// concatenated text output.
	CreateMessage(ctx context.Context, params model.MessageParams) (string, error)
}

// TokenSource supplies bearer tokens for upstream REST calls and supports
// reactive invalidation after a 401.
type TokenSource interface {
	// Token returns a currently valid bearer token, fetching one if needed.
	Token(ctx context.Context) (string, error)

	// Invalidate discards the cached token so the next Token call fetches a
	// fresh one.
	Invalidate()
}
