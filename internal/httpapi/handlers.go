package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/websoft9/portd/internal/registry"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFind serves GET /services[?status&port&expired&limit], proxying
// Registry.Find("*", opts).
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := registry.FindOptions{Status: q.Get("status")}

	if v := q.Get("port"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid port"})
			return
		}
		opts.Port = port
	}
	if v := q.Get("expired"); v != "" {
		expired, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expired"})
			return
		}
		opts.Expired = &expired
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		opts.Limit = limit
	}

	result := s.registry.Find("*", opts)
	if result.Error != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": result.Error})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGet serves GET /services/{id}, proxying Registry.Get(id).
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result := s.registry.Get(id)
	if result.Error == "not found" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": result.Error})
		return
	}
	if result.Error != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": result.Error})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
