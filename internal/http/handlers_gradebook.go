package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/service"
)

// GradebookHandlers provides HTTP handlers for XP bookkeeping and gradebook
// reads.
type GradebookHandlers struct {
	Svc *service.GradebookService
}

// GetXP handles GET /api/students/{studentID}/xp.
func (h *GradebookHandlers) GetXP(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")
	total, err := h.Svc.XP(r.Context(), studentID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	events, err := h.Svc.XPLog(r.Context(), studentID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"studentId": total.StudentID,
		"total":     total.Total,
		"updatedAt": total.UpdatedAt,
		"log":       events,
	})
}

type awardXPRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// AwardXP handles POST /api/students/{studentID}/xp.
func (h *GradebookHandlers) AwardXP(w http.ResponseWriter, r *http.Request) {
	var req awardXPRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	total, err := h.Svc.AwardXP(r.Context(), r.PathValue("studentID"), req.Amount, req.Reason)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, total)
}

// Results handles GET /api/courses/{courseID}/results.
func (h *GradebookHandlers) Results(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.Results(r.Context(), r.PathValue("courseID"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"results": rows})
}
