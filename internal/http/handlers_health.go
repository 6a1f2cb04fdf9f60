package httpx

import (
	"net/http"

	"github.com/openlearn/adaptive-api/internal/core"
)

// HealthHandler reports process liveness and KV connectivity.
type HealthHandler struct {
	KV core.KVStore
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.KV != nil {
		if err := h.KV.Health(r.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "degraded", "kv": err.Error()})
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
