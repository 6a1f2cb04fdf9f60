package model

// Message is a single turn in a generation conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageParams describes one generation request: the model, output budget,
// system prompt, and conversation turns.
type MessageParams struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// BatchRequest is one sub-request inside a batch submission. CustomID is the
// correlation identifier the poller uses to reassemble results after
// asynchronous completion; it is derived from the subject id and chunk index.
type BatchRequest struct {
	CustomID string        `json:"custom_id"`
	Params   MessageParams `json:"params"`
}

// Batch processing statuses reported by the batch-inference service.
const (
	BatchStatusInProgress = "in_progress"
	BatchStatusCanceling  = "canceling"
	BatchStatusEnded      = "ended"
)

// RequestCounts breaks down the sub-requests of a batch by outcome.
type RequestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

// Batch is the handle and status of an asynchronous batch job.
type Batch struct {
	ID               string        `json:"id"`
	ProcessingStatus string        `json:"processing_status"`
	RequestCounts    RequestCounts `json:"request_counts"`
}

// Terminal reports whether the batch has reached a terminal processing state.
func (b *Batch) Terminal() bool {
	return b.ProcessingStatus == BatchStatusEnded
}

// Canceling reports whether the batch is being or has been canceled.
func (b *Batch) Canceling() bool {
	return b.ProcessingStatus == BatchStatusCanceling
}

// Result types for individual batch sub-requests.
const (
	BatchResultSucceeded = "succeeded"
	BatchResultErrored   = "errored"
	BatchResultCanceled  = "canceled"
	BatchResultExpired   = "expired"
)

// BatchResult is the outcome of one sub-request, keyed by its CustomID.
// Text holds the model's free-text output for succeeded results; Error holds
// the upstream error description otherwise.
type BatchResult struct {
	CustomID string `json:"custom_id"`
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded reports whether this sub-request produced usable output.
func (r *BatchResult) Succeeded() bool {
	return r.Type == BatchResultSucceeded
}
