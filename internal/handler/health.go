package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/busops/ticket-counter/spec"
)

// GetHealth handles GET /healthz. It answers 200 while the process is up.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetReady handles GET /readyz. It runs every readiness check and answers
// 503 when any of them fails.
func (s *Server) GetReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, result := http.StatusOK, map[string]string{}
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.log.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
			result[c.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		result[c.Name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": result})
}

// GetOpenAPI handles GET /openapi.yaml.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}
