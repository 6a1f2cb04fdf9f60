package model

import "encoding/json"

// Worker task statuses checkpointed to the KV store. Unlike batch jobs,
// worker progress records do store terminal statuses, since the worker has
// no external service to re-query.
const (
	ProgressStatusRunning = "running"
	ProgressStatusDone    = "done"
	ProgressStatusFailed  = "failed"
)

// WorkerProgress is the KV checkpoint a background worker task writes after
// each unit of work, polled the same way as a batch job record.
type WorkerProgress struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
	StartedAt int64  `json:"startedAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// EncodeWorkerProgress serializes a progress checkpoint for KV storage.
func EncodeWorkerProgress(p *WorkerProgress) ([]byte, error) {
	return json.Marshal(p)
}

// DecodeWorkerProgress deserializes a progress checkpoint from KV storage.
func DecodeWorkerProgress(raw []byte) (*WorkerProgress, error) {
	var p WorkerProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ExplanationArtifact is the durable output of the explanation worker: one
// worked explanation per question for a lesson.
type ExplanationArtifact struct {
	ArtifactMeta
	LessonSourcedID string            `json:"lessonSourcedId"`
	Explanations    map[string]string `json:"explanations"`
}
