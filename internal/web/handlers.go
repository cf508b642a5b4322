package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/p-n-ai/classbot/internal/agent"
	"github.com/p-n-ai/classbot/internal/chat"
	"github.com/p-n-ai/classbot/internal/quiz"
)

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handlePage serves the HTML shell with the initial view. The first visit of
// a session honours ?info=chapterN.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	initMsg := chat.InboundMessage{Type: chat.CommandInit, Info: r.URL.Query().Get("info")}

	view, err := s.run(r.Context(), id, func(st *agent.State) (agent.View, error) {
		return s.engine.Handle(r.Context(), st, initMsg)
	})
	if err != nil {
		slog.Error("rendering page failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, view); err != nil {
		slog.Error("writing page failed", "error", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	view, err := s.run(r.Context(), id, func(st *agent.State) (agent.View, error) {
		return s.engine.Handle(r.Context(), st, chat.InboundMessage{Type: chat.CommandView})
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat.OutboundMessage{Type: "view", View: view})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCommandBytes)
	var msg chat.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, chat.OutboundMessage{Type: "error", Error: "invalid command: " + err.Error()})
		return
	}
	if err := msg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, chat.OutboundMessage{Type: "error", Error: err.Error()})
		return
	}

	id := s.sessionID(w, r)
	view, err := s.run(r.Context(), id, func(st *agent.State) (agent.View, error) {
		return s.engine.Handle(r.Context(), st, msg)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat.OutboundMessage{Type: "view", View: view})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	slog.Info("websocket connected", "session_id", id)

	s.channel.Serve(w, r, func(ctx context.Context, msg chat.InboundMessage) (any, error) {
		view, err := s.run(ctx, id, func(st *agent.State) (agent.View, error) {
			return s.engine.Handle(ctx, st, msg)
		})
		if err != nil {
			_, err = publicError(err)
			return nil, err
		}
		return view, nil
	})
}

var errInternal = errors.New("internal server error")

// publicError maps err to its HTTP status and the error shown to the client.
// Server-side failures are logged and replaced with a generic message.
func publicError(err error) (int, error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("command failed", "error", err)
		return status, errInternal
	}
	return status, err
}

func writeError(w http.ResponseWriter, err error) {
	status, err := publicError(err)
	writeJSON(w, status, chat.OutboundMessage{Type: "error", Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrUnknownClass):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrNoActiveQuiz),
		errors.Is(err, agent.ErrQuizInProgress),
		errors.Is(err, agent.ErrNoClassSelected),
		errors.Is(err, quiz.ErrSessionClosed),
		errors.Is(err, quiz.ErrInvalidSnapshot):
		return http.StatusConflict
	case errors.Is(err, agent.ErrUnknownAction),
		errors.Is(err, agent.ErrEmptyQuestion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}
