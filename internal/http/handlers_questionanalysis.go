package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/service"
)

// QuestionAnalysisHandlers provides HTTP handlers for question-bank
// analysis.
type QuestionAnalysisHandlers struct {
	Svc *service.QuestionAnalysisService
}

// Generate handles POST /api/tests/{testID}/analysis.
func (h *QuestionAnalysisHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Generate(r.Context(), r.PathValue("testID"), req.Regenerate)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, result)
}

// Status handles GET /api/tests/{testID}/analysis.
func (h *QuestionAnalysisHandlers) Status(w http.ResponseWriter, r *http.Request) {
	poll, err := h.Svc.Status(r.Context(), r.PathValue("testID"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, pollResponse(poll))
}
