package logserver

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const defaultLogLines = 50

type logsResponse struct {
	Lines []string `json:"lines"`
	Count int      `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	n := defaultLogLines
	if v := r.URL.Query().Get("lines"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			s.respondError(w, http.StatusBadRequest, "lines must be a non-negative integer")
			return
		}
		n = parsed
	}
	lines := s.Recent(n)
	s.respondJSON(w, http.StatusOK, logsResponse{Lines: lines, Count: len(lines)})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
