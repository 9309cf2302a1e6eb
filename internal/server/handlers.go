package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Conn().Ping(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "fintrack",
	})
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status":         "running",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"memory": map[string]interface{}{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"num_gc":         m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
	if s.breaker != nil {
		response["price_source"] = map[string]interface{}{
			"circuit_open": s.breaker.Open(),
			"failures":     s.breaker.Failures(),
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleTriggerJob runs a registered background job immediately.
// The job's own lock still prevents overlap with a scheduled run.
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := s.jobs[name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown job: " + name,
		})
		return
	}

	s.log.Info().Str("job", name).Msg("Manual job trigger")

	if err := s.sched.RunNow(job); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"job":    name,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
