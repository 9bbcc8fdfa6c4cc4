package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------
// Gallery Handlers
// ---------------------------------------------------------------------

const defaultRunListLimit = 50

func (s *Server) handleListGalleryRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Gallery storage is not configured")
		return
	}

	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Storage error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetGalleryRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.galleryRunID(w, r)
	if !ok {
		return
	}

	report, err := s.store.GetReport(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Storage error: "+err.Error())
		return
	}
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	charts, err := s.store.ListCharts(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Storage error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"report": report,
		"charts": charts,
	})
}

func (s *Server) handleDeleteGalleryRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.galleryRunID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteRun(r.Context(), runID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Storage error: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// galleryRunID validates storage availability and the {id} path parameter.
func (s *Server) galleryRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Gallery storage is not configured")
		return uuid.Nil, false
	}
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID")
		return uuid.Nil, false
	}
	return runID, true
}
