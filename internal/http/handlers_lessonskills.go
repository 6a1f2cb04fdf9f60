package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/service"
)

// LessonSkillsHandlers provides HTTP handlers for lesson-to-skill mapping.
type LessonSkillsHandlers struct {
	Svc *service.LessonSkillsService
}

// Generate handles POST /api/courses/{courseID}/lesson-skills.
func (h *LessonSkillsHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Generate(r.Context(), r.PathValue("courseID"), req.Regenerate)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, result)
}

// Status handles GET /api/courses/{courseID}/lesson-skills.
func (h *LessonSkillsHandlers) Status(w http.ResponseWriter, r *http.Request) {
	poll, err := h.Svc.Status(r.Context(), r.PathValue("courseID"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, pollResponse(poll))
}
