package api

import (
	"net/http"
)

func (s *Server) handleMappingStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		jsonError(w, "mapping stats unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{
		"stats": s.deps.Stats.Snapshot(),
	}
	if c, ok := s.deps.Repository.(interface{ Len() int }); ok {
		resp["cached_configs"] = c.Len()
	}
	if s.deps.Orchestrator != nil {
		resp["queue_depth"] = s.deps.Orchestrator.QueueDepth()
	}
	writeJSON(w, http.StatusOK, resp)
}
