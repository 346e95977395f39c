package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lxcxjxhx/HOS-M2F/internal/converter"
	"github.com/lxcxjxhx/HOS-M2F/internal/render"
	"github.com/lxcxjxhx/HOS-M2F/internal/version"
)

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"modes": s.modes.Names()})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"output": render.Formats(),
		"input":  converter.Formats(),
	})
}

// handleVersions lists the recorded history for a document path given in
// the path query parameter.
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	store := s.orchestrator.Engine().Versions()
	if store == nil {
		jsonError(w, "version history is disabled", http.StatusNotImplemented)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	history, err := store.History(path)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"path": path, "versions": history})
}

// handleRevert records a new version pointing at an older tree hash.
// History stays append-only; nothing is deleted.
func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	store := s.orchestrator.Engine().Versions()
	if store == nil {
		jsonError(w, "version history is disabled", http.StatusNotImplemented)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "versionID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid version id", http.StatusBadRequest)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	v, err := store.Revert(path, id)
	if err != nil {
		if errors.Is(err, version.ErrNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
