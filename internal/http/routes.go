package httpx

import (
	"log/slog"
	"net/http"

	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	SkillTrees   *service.SkillTreeService
	LessonSkills *service.LessonSkillsService
	Diagnostics  *service.DiagnosticService
	Analysis     *service.QuestionAnalysisService
	Relevance    *service.RelevanceService
	Explanations *service.ExplanationsService
	Gradebook    *service.GradebookService
	KV           core.KVStore
	Logger       *slog.Logger // Logger for request logging and panics (optional)
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	health := &HealthHandler{KV: services.KV}
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("HEAD /healthz", health.Health)

	skillTrees := &SkillTreeHandlers{Svc: services.SkillTrees}
	mux.HandleFunc("POST /api/courses/{courseID}/skill-tree", skillTrees.Generate)
	mux.HandleFunc("GET /api/courses/{courseID}/skill-tree", skillTrees.Status)

	lessonSkills := &LessonSkillsHandlers{Svc: services.LessonSkills}
	mux.HandleFunc("POST /api/courses/{courseID}/lesson-skills", lessonSkills.Generate)
	mux.HandleFunc("GET /api/courses/{courseID}/lesson-skills", lessonSkills.Status)

	diagnostics := &DiagnosticHandlers{Svc: services.Diagnostics}
	mux.HandleFunc("POST /api/courses/{courseID}/diagnostic", diagnostics.Generate)
	mux.HandleFunc("GET /api/courses/{courseID}/diagnostic", diagnostics.Status)
	mux.HandleFunc("POST /api/courses/{courseID}/diagnostic/score", diagnostics.Score)

	analysis := &QuestionAnalysisHandlers{Svc: services.Analysis}
	mux.HandleFunc("POST /api/tests/{testID}/analysis", analysis.Generate)
	mux.HandleFunc("GET /api/tests/{testID}/analysis", analysis.Status)

	relevance := &RelevanceHandlers{Svc: services.Relevance}
	mux.HandleFunc("POST /api/lessons/{lessonID}/relevance", relevance.Generate)
	mux.HandleFunc("GET /api/lessons/{lessonID}/relevance", relevance.Status)

	explanations := &ExplanationHandlers{Svc: services.Explanations}
	mux.HandleFunc("POST /api/lessons/{lessonID}/explanations", explanations.Generate)
	mux.HandleFunc("GET /api/lessons/{lessonID}/explanations", explanations.Status)

	gradebook := &GradebookHandlers{Svc: services.Gradebook}
	mux.HandleFunc("GET /api/students/{studentID}/xp", gradebook.GetXP)
	mux.HandleFunc("POST /api/students/{studentID}/xp", gradebook.AwardXP)
	mux.HandleFunc("GET /api/courses/{courseID}/results", gradebook.Results)

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = CORS()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
