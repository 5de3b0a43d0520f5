package http

import (
	"io"
	"net/http"
	"strings"

	"sketchspy/internal/domain"
)

// MeResponse confirms a session and returns the caller's membership
type MeResponse struct {
	Player    domain.PlayerInfo `json:"player"`
	RoomCode  string            `json:"roomCode"`
	ExpiresAt int64             `json:"expiresAt"`
}

// TargetRequest names another player of the room
type TargetRequest struct {
	PlayerID string `json:"playerId"`
}

// AvatarRequest is the body of an avatar update
type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

// ReactRequest is the body of a reaction
type ReactRequest struct {
	TargetID string `json:"targetId"`
	Emoji    string `json:"emoji"`
}

// PromptResponse carries the caller's private prompt
type PromptResponse struct {
	Prompt string `json:"prompt"`
}

// DrawingResponse references a stored drawing
type DrawingResponse struct {
	ArtifactURL string `json:"artifactUrl"`
}

// handleMe handles GET /api/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	player, err := room.Member(r.Context(), session.PlayerID)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	s.sendSuccess(w, &MeResponse{
		Player:    player,
		RoomCode:  room.Code(),
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	})
}

// handleLeave handles POST /api/room/leave
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	session, _ := caller(r)
	if err := s.hub.Leave(r.Context(), session.Token); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handleKick handles POST /api/room/kick
func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	session, _ := caller(r)

	var req TargetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	if err := s.hub.Kick(r.Context(), session.Token, req.PlayerID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handleLeaveGame handles POST /api/room/leave-game
func (s *Server) handleLeaveGame(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)
	if err := room.LeaveGame(r.Context(), session.PlayerID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handleUpdateAvatar handles PUT /api/room/avatar
func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	var req AvatarRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	if err := room.UpdateAvatar(r.Context(), session.PlayerID, req.Avatar); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handleUpdateSettings handles PUT /api/room/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	var patch domain.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	settings, err := room.UpdateSettings(r.Context(), session.PlayerID, patch)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, settings)
}

// handleStart handles POST /api/room/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)
	if err := room.Start(r.Context(), session.PlayerID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handlePrompt handles GET /api/room/prompt
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	prompt, err := room.Prompt(r.Context(), session.PlayerID)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, &PromptResponse{Prompt: prompt})
}

// handleSubmitDrawing handles POST /api/room/drawing. The image is either the
// "drawing" field of a multipart form or the raw request body.
func (s *Server) handleSubmitDrawing(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	// Reject before the upload touches the disk.
	if err := room.CanSubmit(r.Context(), session.PlayerID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	body, err := drawingReader(r)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	defer body.Close()

	url, err := s.artifacts.Save(room.Code(), body)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	if err := room.SubmitDrawing(r.Context(), session.PlayerID, url); err != nil {
		s.discardArtifact(url)
		s.sendDomainError(w, r, err)
		return
	}

	s.sendCreated(w, &DrawingResponse{ArtifactURL: url})
}

func drawingReader(r *http.Request) (io.ReadCloser, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}

	file, _, err := r.FormFile("drawing")
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	return file, nil
}

// handleWithdrawDrawing handles DELETE /api/room/drawing
func (s *Server) handleWithdrawDrawing(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	url, err := room.WithdrawDrawing(r.Context(), session.PlayerID)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	s.discardArtifact(url)
	s.sendSuccess(w, nil)
}

func (s *Server) discardArtifact(url string) {
	if err := s.artifacts.Delete(url); err != nil {
		s.logger.Warn("failed to delete drawing", "url", url, "error", err)
	}
}

// handleSubmissionStatus handles GET /api/room/drawing/status
func (s *Server) handleSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	status, err := room.SubmissionStatus(r.Context(), session.PlayerID)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, status)
}

// handleVote handles POST /api/room/vote
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)

	var req TargetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	if err := room.CastVote(r.Context(), session.PlayerID, req.PlayerID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handleFinishVoting handles POST /api/room/finish
func (s *Server) handleFinishVoting(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)
	if err := room.FinishVoting(r.Context(), session.PlayerID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handleReset handles POST /api/room/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	session, room := caller(r)
	if err := room.Reset(r.Context(), session.PlayerID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}

// handleReact handles POST /api/room/react
func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	session, _ := caller(r)

	var req ReactRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	if err := s.hub.React(r.Context(), session.Token, req.TargetID, req.Emoji); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendSuccess(w, nil)
}
