package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/service"
)

// RelevanceHandlers provides HTTP handlers for question-relevance analysis.
type RelevanceHandlers struct {
	Svc *service.RelevanceService
}

// Generate handles POST /api/lessons/{lessonID}/relevance.
func (h *RelevanceHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Generate(r.Context(), r.PathValue("lessonID"), req.Regenerate)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, result)
}

// Status handles GET /api/lessons/{lessonID}/relevance.
func (h *RelevanceHandlers) Status(w http.ResponseWriter, r *http.Request) {
	poll, err := h.Svc.Status(r.Context(), r.PathValue("lessonID"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, pollResponse(poll))
}
