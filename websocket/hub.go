// Package websocket adapts gorilla websocket connections to the session
// channel and tracks which interviews have a live session.
package websocket

import (
	"context"
	"log/slog"
	"sync"
)

type liveSession struct {
	sessionID string
	userID    string
	cancel    context.CancelFunc
}

// Hub is the registry of live sessions, at most one per interview.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	draining bool
	wg       sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*liveSession)}
}

// Register claims interviewID for a session. It returns false when another
// session already holds it or the hub is shutting down.
func (h *Hub) Register(interviewID, sessionID, userID string, cancel context.CancelFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.draining {
		return false
	}
	if live, ok := h.sessions[interviewID]; ok {
		slog.Warn("Session already live for interview", "interview_id", interviewID, "live_session_id", live.sessionID, "session_id", sessionID)
		return false
	}
	h.sessions[interviewID] = &liveSession{sessionID: sessionID, userID: userID, cancel: cancel}
	h.wg.Add(1)
	slog.Info("Session registered", "interview_id", interviewID, "session_id", sessionID, "user_id", userID)
	return true
}

// Unregister releases interviewID if sessionID still holds it.
func (h *Hub) Unregister(interviewID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.sessions[interviewID]
	if !ok || live.sessionID != sessionID {
		return
	}
	delete(h.sessions, interviewID)
	h.wg.Done()
	slog.Info("Session unregistered", "interview_id", interviewID, "session_id", sessionID)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CancelAll stops accepting sessions and cancels every live one.
func (h *Hub) CancelAll() int {
	h.mu.Lock()
	h.draining = true
	cancels := make([]context.CancelFunc, 0, len(h.sessions))
	for _, live := range h.sessions {
		cancels = append(cancels, live.cancel)
	}
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if len(cancels) > 0 {
		slog.Info("Cancelled live sessions", "count", len(cancels))
	}
	return len(cancels)
}

// Wait blocks until every registered session has unregistered or ctx ends.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
