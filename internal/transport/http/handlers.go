package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sketchspy/internal/domain"
)

// CreateRoomResponse is the response for room creation
type CreateRoomResponse struct {
	RoomCode   string `json:"roomCode"`
	InviteLink string `json:"inviteLink"`
}

// GetRoomResponse is the public lobby summary of a room
type GetRoomResponse struct {
	RoomCode    string        `json:"roomCode"`
	PlayerCount int           `json:"playerCount"`
	MaxPlayers  int           `json:"maxPlayers"`
	Status      domain.Status `json:"status"`
	CanJoin     bool          `json:"canJoin"`
}

// RoomExistsResponse is the response for checking if room exists
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// JoinRequest is the body of a join call
type JoinRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms    int `json:"activeRooms"`
	TotalPlayers   int `json:"totalPlayers"`
	ActiveSessions int `json:"activeSessions"`
}

// handleCreateRoom handles POST /api/rooms
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.CreateRoom()
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create room")
		return
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	s.sendCreated(w, &CreateRoomResponse{
		RoomCode:   room.Code(),
		InviteLink: scheme + "://" + r.Host + "/join/" + room.Code(),
	})
}

// handleGetRoom handles GET /api/rooms/{roomCode}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Room(chi.URLParam(r, "roomCode"))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	snap, err := room.Snapshot(r.Context())
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	s.sendSuccess(w, &GetRoomResponse{
		RoomCode:    snap.Code,
		PlayerCount: len(snap.Players),
		MaxPlayers:  snap.Settings.MaxPlayers,
		Status:      snap.Status,
		CanJoin:     len(snap.Players) < snap.Settings.MaxPlayers,
	})
}

// handleRoomExists handles GET /api/rooms/{roomCode}/exists
func (s *Server) handleRoomExists(w http.ResponseWriter, r *http.Request) {
	_, err := s.hub.Room(chi.URLParam(r, "roomCode"))
	s.sendSuccess(w, &RoomExistsResponse{Exists: err == nil})
}

// handleRoomState handles GET /api/rooms/{roomCode}/state
func (s *Server) handleRoomState(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Room(chi.URLParam(r, "roomCode"))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	snap, err := room.Snapshot(r.Context())
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, snap)
}

// handleJoin handles POST /api/rooms/{roomCode}/join
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	joined, err := s.hub.Join(r.Context(), chi.URLParam(r, "roomCode"), req.Name, req.Avatar)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	s.sendCreated(w, joined)
}

// handleDrawings handles GET /api/rooms/{roomCode}/drawings
func (s *Server) handleDrawings(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Room(chi.URLParam(r, "roomCode"))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	entries, err := room.Drawings(r.Context())
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, entries)
}

// handleTally handles GET /api/rooms/{roomCode}/votes
func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Room(chi.URLParam(r, "roomCode"))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	tally, err := room.Tally(r.Context())
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, tally)
}

// handleResult handles GET /api/rooms/{roomCode}/result
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Room(chi.URLParam(r, "roomCode"))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	result, err := room.Result(r.Context())
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, result)
}

// handleHistory handles GET /api/rooms/{roomCode}/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.hub.History(r.Context(), chi.URLParam(r, "roomCode"))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, history)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{Status: "ok"})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		ActiveRooms:    s.hub.RoomCount(),
		TotalPlayers:   s.hub.PlayerCount(),
		ActiveSessions: s.hub.Sessions().Count(),
	})
}
