package handler

import (
	"net/http"

	"github.com/mavuno/agrolink/internal/connectivity"
)

// HealthHandler serves the liveness probe. The process is live whether or
// not the upstream is reachable; connectivity is reported for information.
type HealthHandler struct {
	net connectivity.Checker
}

func NewHealthHandler(net connectivity.Checker) *HealthHandler {
	return &HealthHandler{net: net}
}

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"online": h.net.Online(),
	})
}
