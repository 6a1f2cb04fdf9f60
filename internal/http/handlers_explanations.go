package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/service"
)

// ExplanationHandlers provides HTTP handlers for the background explanation
// worker.
type ExplanationHandlers struct {
	Svc *service.ExplanationsService
}

// Generate handles POST /api/lessons/{lessonID}/explanations. The work runs
// on a background task; the response carries the task id to poll for.
func (h *ExplanationHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	taskID, resumed, err := h.Svc.Generate(r.Context(), r.PathValue("lessonID"), req.Regenerate)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{
		"taskId":  taskID,
		"resumed": resumed,
	})
}

// Status handles GET /api/lessons/{lessonID}/explanations.
func (h *ExplanationHandlers) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.Svc.Status(r.Context(), r.PathValue("lessonID"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}
