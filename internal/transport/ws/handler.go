package ws

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"sketchspy/internal/app"
)

// Handler upgrades authorized requests to a room event subscription
type Handler struct {
	hub      *app.GameHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler. An origin list containing "*" accepts any origin.
func NewHandler(hub *app.GameHub, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// ServeHTTP handles GET /ws?token=...&roomCode=...
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	session, room, err := h.hub.Authorize(token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if code := r.URL.Query().Get("roomCode"); code != "" && !strings.EqualFold(code, room.Code()) {
		http.Error(w, "session does not belong to this room", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub, err := room.Subscribe(r.Context())
	if err != nil {
		h.logger.Debug("subscribe failed", "roomCode", room.Code(), "error", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"))
		conn.Close()
		return
	}

	client := NewClient(conn, h.hub, session, sub, h.logger.With("roomCode", room.Code()))

	h.logger.Info("websocket connected", "roomCode", room.Code(), "playerID", session.PlayerID)

	if err := client.greet(); err != nil {
		h.logger.Debug("websocket greeting failed", "error", err)
		client.Close()
		return
	}
	client.Run()
}
