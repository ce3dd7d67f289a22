package http

import (
	"net/http"

	"github.com/copperkettle/tasklist/internal/tasks/store"
	"github.com/copperkettle/tasklist/pkg/httpx"
)

// HealthHandler reports liveness plus a database ping.
type HealthHandler struct {
	Store store.Store
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}
