package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/scoring"
	"github.com/roach88/matchpoint/internal/store"
)

// Error codes that only exist at the HTTP boundary.
const (
	codeBadRequest  = "BAD_REQUEST"
	codeRateLimited = "RATE_LIMITED"
	codeInternal    = "INTERNAL"
	codeUnavailable = "UNAVAILABLE"
)

type errorBody struct {
	Status string      `json:"status"`
	Error  errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// playerBody accepts a player as 1, 2, "1", "p1" or "player1".
type playerBody struct {
	Player any               `json:"player"`
	Type   scoring.PointType `json:"type,omitempty"`
}

func (b playerBody) player() (scoring.Player, error) {
	switch v := b.Player.(type) {
	case float64:
		return scoring.ParsePlayer(fmt.Sprint(v))
	case string:
		return scoring.ParsePlayer(v)
	default:
		return scoring.PlayerNone, scoring.NewInvalidPlayerError(b.Player)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := map[string]any{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	}
	if err := s.store.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		health["status"] = "unhealthy"
		health["error"] = err.Error()
	}
	respondJSON(w, status, health)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var cfg scoring.Config
	if !decodeBody(w, r, &cfg) {
		return
	}
	s.submit(w, r, http.StatusCreated, engine.Command{Kind: engine.CommandNew, Config: &cfg})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListMatches(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if list == nil {
		list = []store.MatchSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"matches": list})
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, http.StatusOK, engine.Command{Kind: engine.CommandShow, MatchID: chi.URLParam(r, "id")})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if _, err := s.engine.Submit(ctx, engine.Command{Kind: engine.CommandDelete, MatchID: id}); err != nil {
		s.respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePoint(w http.ResponseWriter, r *http.Request) {
	var body playerBody
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := body.player()
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if body.Type == "" {
		body.Type = scoring.PointNormal
	}
	s.submit(w, r, http.StatusOK, engine.Command{
		Kind:      engine.CommandPoint,
		MatchID:   chi.URLParam(r, "id"),
		Player:    p,
		PointType: body.Type,
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, http.StatusOK, engine.Command{Kind: engine.CommandUndo, MatchID: chi.URLParam(r, "id")})
}

func (s *Server) handleRetire(w http.ResponseWriter, r *http.Request) {
	var body playerBody
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := body.player()
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.submit(w, r, http.StatusOK, engine.Command{Kind: engine.CommandRetire, MatchID: chi.URLParam(r, "id"), Player: p})
}

func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, http.StatusOK, engine.Command{Kind: engine.CommandSuspend, MatchID: chi.URLParam(r, "id")})
}

// handleWebSocket upgrades the connection and streams updates for one match.
// The first frame is the current state.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	out, err := s.engine.Submit(ctx, engine.Command{Kind: engine.CommandShow, MatchID: id})
	cancel()
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("websocket upgrade failed", "match_id", id, "error", err)
		return
	}

	view := newMatchView(out)
	c := newClient(uuid.NewString(), id, conn, s.hub)
	c.send <- Message{Type: MessageTypeState, MatchID: id, Seq: out.Seq, Match: &view}
	if !s.hub.addClient(c) {
		conn.Close()
		return
	}

	go c.writePump(s.ctx)
	go c.readPump()
}

// submit runs cmd through the engine and responds with the resulting view.
// Websocket watchers are updated by the engine through the hub.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, status int, cmd engine.Command) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	out, err := s.engine.Submit(ctx, cmd)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, status, newMatchView(out))
}

// respondEngineError maps scoring, engine and context errors onto HTTP
// statuses.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	var (
		se *scoring.Error
		re *engine.RuntimeError
	)
	switch {
	case errors.As(err, &se):
		status := http.StatusBadRequest
		switch se.Code {
		case scoring.ErrCodeMatchOver, scoring.ErrCodeCannotUndo, scoring.ErrCodeNotResumable:
			status = http.StatusConflict
		}
		respondError(w, status, string(se.Code), se.Message)

	case errors.As(err, &re):
		status := http.StatusInternalServerError
		switch re.Code {
		case engine.ErrCodeUnknownMatch:
			status = http.StatusNotFound
		case engine.ErrCodeEngineStopped:
			status = http.StatusServiceUnavailable
		case engine.ErrCodeUnknownCommand:
			status = http.StatusBadRequest
		}
		respondError(w, status, string(re.Code), re.Message)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "engine did not answer in time")

	default:
		slog.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{
		Status: "error",
		Error:  errorDetail{Code: code, Message: message},
	})
}
