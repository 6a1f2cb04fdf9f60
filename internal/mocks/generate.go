// Package mocks provides mock implementations for testing the adaptive job
// system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the core ports. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockKV := mocks.NewMockKVStore(ctrl)
//	mockKV.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
package mocks

// Generate mock for KVStore interface from internal/core package.
// This creates MockKVStore with methods for all KVStore interface methods:
// Get, Set, SetIfNotExists, Delete, Exists, ListAppend, ListRemove, ListMembers, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=kv_store_mock.go github.com/openlearn/adaptive-api/internal/core KVStore

// Generate mock for BatchClient interface from internal/core package.
// This creates MockBatchClient with methods for all BatchClient interface methods:
// CreateBatch, GetBatch, BatchResults
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=batch_client_mock.go github.com/openlearn/adaptive-api/internal/core BatchClient

// Generate mock for MessageClient interface from internal/core package.
// This creates MockMessageClient with methods for all MessageClient interface methods:
// CreateMessage
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=message_client_mock.go github.com/openlearn/adaptive-api/internal/core MessageClient

// Generate mock for TokenSource interface from internal/core package.
// This creates MockTokenSource with methods for all TokenSource interface methods:
// Token, Invalidate
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=token_source_mock.go github.com/openlearn/adaptive-api/internal/core TokenSource
