package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tonimelisma/gradecal/internal/ics"
	"github.com/tonimelisma/gradecal/internal/sync"
)

// errUnknownUser answers routes naming a user the store does not have.
var errUnknownUser = errors.New("unknown user")

// handleSync runs a manual pass for the user. Pass failures the user can
// fix are reported in the Result with 200; only internal errors are 500.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	if err := s.requireUser(r.Context(), uid); err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.runner.Run(r.Context(), uid, sync.TriggerManual)
	s.hub.Publish(NewEvent(uid, sync.TriggerManual, report, err))

	res := sync.ResultOf(err)

	status := http.StatusOK
	if res.Error == sync.KeywordInternal {
		status = http.StatusInternalServerError

		s.logger.Error("manual pass failed",
			slog.String("user_id", uid),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, res)
}

// handleCalendar serves the user's cache as an ICS feed.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	ctx := r.Context()

	if err := s.requireUser(ctx, uid); err != nil {
		s.writeError(w, err)
		return
	}

	c, err := s.store.ReadCache(ctx, uid)
	if err != nil {
		s.writeError(w, err)
		return
	}

	courses, err := s.store.Courses(ctx, uid)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Render fully before writing so a failure can still become a 500.
	var buf bytes.Buffer
	if err := ics.Render(&buf, c, courses, ics.Options{
		Name:          "Gradescope assignments",
		SourceBaseURL: s.baseURL,
	}); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleEvents streams pass events to a websocket client until it
// disconnects. ?user= restricts the stream to one user.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	only := r.URL.Query().Get("user")

	// Subscribe before the upgrade completes so no event published after
	// the client sees the handshake is missed.
	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	s.logger.Debug("report subscriber connected", slog.Int("subscribers", s.hub.Subscribers()))

	// The client sends nothing; CloseRead cancels ctx when it goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if only != "" && ev.UserID != only {
				continue
			}

			if err := s.writeEvent(ctx, conn, ev); err != nil {
				s.logger.Debug("report subscriber gone", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeEventTimeout)
	defer cancel()

	return wsjson.Write(ctx, conn, ev)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.hub.Subscribers(),
	})
}

func (s *Server) requireUser(ctx context.Context, uid string) error {
	ok, err := s.store.HasUser(ctx, uid)
	if err != nil {
		return err
	}

	if !ok {
		return errUnknownUser
	}

	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnknownUser) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
