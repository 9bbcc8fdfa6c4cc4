package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jonathan/data-autopilot/internal/loader"
	"github.com/jonathan/data-autopilot/internal/session"
	"github.com/jonathan/data-autopilot/internal/types"
)

// ---------------------------------------------------------------------
// Session Handlers
// ---------------------------------------------------------------------

type CreateSessionRequest struct {
	Source string `json:"source" validate:"required"`
}

type SessionResponse struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
}

func (s *Server) sessionResponse(sess *session.Session) SessionResponse {
	ds := sess.Dataset()
	return SessionResponse{
		ID:        sess.ID(),
		Source:    sess.Source(),
		CreatedAt: sess.CreatedAt(),
		Rows:      ds.RowCount(),
		Columns:   ds.Names(),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	ds, err := loader.Load(req.Source)
	if err != nil {
		s.faultResponse(w, err)
		return
	}

	sess := session.New(req.Source, ds, s.client, s.executor, session.WithPilotOptions(s.pilot))
	s.sessions.Add(sess)

	s.jsonResponse(w, http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()
	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, s.sessionResponse(sess))
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"session": s.sessionResponse(sess),
		"summary": sess.Summary(5),
		"history": sess.History(),
		"report":  sess.Report(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.sessions.Remove(sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunAutopilot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	report, runErr := sess.RunAutopilot(r.Context())
	if report != nil {
		s.persistRun(r.Context(), sess, report)
	}
	if runErr != nil {
		// Aborted runs still carry a partial report worth returning.
		fault := types.AsFault(runErr, types.FaultRuntime)
		s.jsonResponse(w, HTTPStatus(fault), map[string]any{
			"error":    fault.Message,
			"category": string(fault.Category),
			"report":   report,
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, report)
}

// persistRun saves a finished run and its dashboard charts to the gallery.
// Best effort: a storage failure is logged by the caller's middleware, not
// surfaced to the client.
func (s *Server) persistRun(ctx context.Context, sess *session.Session, report *types.RunReport) {
	if s.store == nil {
		return
	}
	runID, err := s.store.CreateRun(ctx, sess.Source())
	if err != nil {
		return
	}
	if err := s.store.CompleteRun(ctx, runID, report); err != nil {
		return
	}
	for _, chart := range sess.Charts() {
		if err := s.store.SaveChart(ctx, runID, chart); err != nil {
			return
		}
	}
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	msg, err := sess.Chat(r.Context(), req.Message)
	if err != nil {
		s.faultResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, msg)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	if err := sess.Revert(); err != nil {
		s.faultResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleSessionCharts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Charts())
}

// lookupSession resolves the {id} path parameter to a live session. On
// failure it writes the error response and returns ok=false.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid session ID")
		return nil, false
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return sess, true
}
