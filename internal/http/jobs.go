// Package httpx provides the HTTP handlers and router for the adaptive
// learning API.
package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/domain/job"
)

// pollResponse shapes a lifecycle poll result for the wire. Processing jobs
// report elapsed seconds and any partial counts the batch service exposed;
// finished jobs carry the artifact.
func pollResponse[T any](poll *job.PollResult[T]) map[string]any {
	switch poll.State {
	case job.StateDone:
		return map[string]any{
			"status":   string(job.StateDone),
			"artifact": poll.Artifact,
		}
	case job.StateProcessing:
		resp := map[string]any{
			"status":         string(job.StateProcessing),
			"batchId":        poll.Record.BatchID,
			"elapsedSeconds": int(poll.Elapsed.Seconds()),
			"requestCounts":  poll.Counts,
		}
		if len(poll.Record.Meta) > 0 {
			resp["meta"] = poll.Record.Meta
		}
		return resp
	default:
		return map[string]any{"status": string(job.StateNone)}
	}
}

// decodeOptionalJSON decodes the request body when one is present. Requests
// without a body leave dst at its zero value.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return DecodeJSON(w, r, dst)
}

// generateRequest is the shared body of the generation endpoints.
type generateRequest struct {
	Regenerate bool `json:"regenerate"`
}
