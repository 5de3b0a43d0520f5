package http

import (
	"context"
	"net/http"
	"strings"

	"sketchspy/internal/app"
)

type contextKey int

const (
	sessionKey contextKey = iota
	roomKey
)

// requireSession resolves the bearer token to a session and its room
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, room, err := s.hub.Authorize(bearerToken(r))
		if err != nil {
			s.sendDomainError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		ctx = context.WithValue(ctx, roomKey, room)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// caller returns the session and room set by requireSession
func caller(r *http.Request) (*app.Session, *app.RoomActor) {
	session, _ := r.Context().Value(sessionKey).(*app.Session)
	room, _ := r.Context().Value(roomKey).(*app.RoomActor)
	return session, room
}
