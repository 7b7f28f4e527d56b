package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Oracle == nil || s.deps.Oracle.Stats() == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.deps.Oracle.Model(),
		"stats": s.deps.Oracle.Stats().Snapshot(),
	})
}
