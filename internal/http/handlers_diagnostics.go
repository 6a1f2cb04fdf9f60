package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/domain/model"
	"github.com/openlearn/adaptive-api/internal/service"
)

// DiagnosticHandlers provides HTTP handlers for diagnostic generation and
// scoring.
type DiagnosticHandlers struct {
	Svc *service.DiagnosticService
}

type diagnosticGenerateRequest struct {
	QuestionCount int  `json:"questionCount"`
	Regenerate    bool `json:"regenerate"`
}

// Generate handles POST /api/courses/{courseID}/diagnostic.
func (h *DiagnosticHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req diagnosticGenerateRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Generate(r.Context(), r.PathValue("courseID"), req.QuestionCount, req.Regenerate)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, result)
}

// Status handles GET /api/courses/{courseID}/diagnostic.
func (h *DiagnosticHandlers) Status(w http.ResponseWriter, r *http.Request) {
	poll, err := h.Svc.Status(r.Context(), r.PathValue("courseID"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, pollResponse(poll))
}

type scoreRequest struct {
	StudentID string                   `json:"studentId"`
	Answers   []model.DiagnosticAnswer `json:"answers"`
}

// Score handles POST /api/courses/{courseID}/diagnostic/score.
func (h *DiagnosticHandlers) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	score, err := h.Svc.Score(r.Context(), r.PathValue("courseID"), req.StudentID, req.Answers)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, score)
}
