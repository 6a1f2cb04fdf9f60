// Package model defines the data types shared across the adaptive-api job
// lifecycle and feature services.
package model

import "encoding/json"

// JobStatus is the status stored in a JobRecord. Terminal states are
// represented by record deletion rather than a stored value, so "processing"
// is the only status that ever appears in the KV store.
type JobStatus string

// JobStatusProcessing indicates a batch submission is in flight.
const JobStatusProcessing JobStatus = "processing"

// JobRecord is the ephemeral KV entry tracking an in-flight batch submission
// for one (feature, subject) pair. It is write-once: the poller either
// promotes it into a ResultArtifact or deletes it.
type JobRecord struct {
	// BatchID is the opaque handle returned by the batch-inference service.
	BatchID string `json:"batchId"`
	// Status is always "processing" while the record exists.
	Status JobStatus `json:"status"`
	// CreatedAt is the submission time in seconds since epoch, used only to
	// report elapsed time to pollers.
	CreatedAt int64 `json:"createdAt"`
	// Meta carries feature-specific context (course title, chunk count,
	// question count, model) so the poller can enrich its response without
	// re-deriving it.
	Meta map[string]any `json:"meta,omitempty"`
}

// MetaString returns a string meta field, or "" if absent or not a string.
func (r *JobRecord) MetaString(key string) string {
	if r.Meta == nil {
		return ""
	}
	s, _ := r.Meta[key].(string)
	return s
}

// MetaInt returns an integer meta field, tolerating the float64 that
// encoding/json produces for numbers. Returns 0 if absent.
func (r *JobRecord) MetaInt(key string) int {
	if r.Meta == nil {
		return 0
	}
	switch v := r.Meta[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// EncodeJobRecord marshals a JobRecord for KV storage.
func EncodeJobRecord(r *JobRecord) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeJobRecord unmarshals a JobRecord read from the KV store.
func DecodeJobRecord(raw []byte) (*JobRecord, error) {
	var r JobRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
