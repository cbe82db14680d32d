package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/krshsl/praxis/interviewer/session"
	ws "github.com/krshsl/praxis/interviewer/websocket"
)

// SessionHandler serves GET /interviews/{id}/session. Authentication and
// loading happen before the upgrade; a refused request is upgraded only to
// carry the close code and reason.
type SessionHandler struct {
	orchestrator *session.Orchestrator
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	connOpts     ws.Options
	// base outlives individual requests; cancelling it ends every session.
	base context.Context
}

func NewSessionHandler(base context.Context, orchestrator *session.Orchestrator, hub *ws.Hub, cfg WebSocketConfig) *SessionHandler {
	opts := ws.DefaultOptions()
	if cfg.ReadLimit > 0 {
		opts.ReadLimit = cfg.ReadLimit
	}
	return &SessionHandler{
		orchestrator: orchestrator,
		hub:          hub,
		connOpts:     opts,
		base:         base,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, cfg.AllowedOrigins)
			},
		},
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")

	sess, err := h.orchestrator.Open(r.Context(), TokenFromRequest(r), interviewID)
	if err != nil {
		var serr *session.Error
		if !errors.As(err, &serr) {
			serr = &session.Error{Code: session.CodeUnexpected, CloseCode: session.CloseInternalServerErr, State: session.Authenticating, Err: err}
		}
		h.reject(w, r, serr)
		return
	}

	ctx, cancel := context.WithCancel(h.base)
	defer cancel()

	if !h.hub.Register(interviewID, sess.ID, sess.User.ID, cancel) {
		h.reject(w, r, session.NewRejection(session.CodeSessionActive, errors.New("interview already has a live session")))
		return
	}
	defer h.hub.Unregister(interviewID, sess.ID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err, "interview_id", interviewID)
		return
	}

	out := sess.Run(ctx, ws.NewConn(conn, h.connOpts))
	attrs := []any{"session_id", sess.ID, "interview_id", interviewID, "state", out.State.String(), "answered", out.Answered}
	if out.Err != nil {
		attrs = append(attrs, "code", out.Err.Code)
	}
	slog.Info("Session ended", attrs...)
}

// reject upgrades only to deliver the close frame. Clients that cannot
// upgrade get the HTTP error written by the upgrader instead.
func (h *SessionHandler) reject(w http.ResponseWriter, r *http.Request, serr *session.Error) {
	slog.Warn("Session refused", "code", serr.Code, "close_code", serr.CloseCode, "state", serr.State.String(), "error", serr.Err)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	msg := websocket.FormatCloseMessage(serr.CloseCode, serr.Code)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.connOpts.WriteWait)); err != nil {
		slog.Debug("Failed to send close frame", "error", err)
	}
}
