package dashboard

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the JSON body of /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
	Survey string `json:"survey"`
	Error  string `json:"error,omitempty"`
}

// handleHealth returns 200 unless a configured Redis is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Redis: "disabled", Survey: "loaded"}
	if _, err := s.currentSurvey(); err != nil {
		resp.Survey = "unavailable"
	}

	if s.cache == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.cache.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Redis = "disconnected"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Redis = "connected"
	writeJSON(w, http.StatusOK, resp)
}
