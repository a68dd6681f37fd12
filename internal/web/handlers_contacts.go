package web

import (
	"fmt"
	"net/http"
	"strconv"
)

const maxListLimit = 1000

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(HealthMessage))
}

// handleListContacts returns stored contacts, paged by limit and offset.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 100)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := parseIntParam(r, "offset", 0)

	contacts, err := s.contacts.List(r.Context(), limit, offset)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list contacts: %w", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

// parseIntParam parses a non-negative integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
