package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"sketchspy/internal/domain"
)

// Response is a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable maps domain errors to status and a stable machine code. Order
// matters only for wrapped errors matching several entries.
var errorTable = []errorMapping{
	{domain.ErrRoomNotFound, http.StatusNotFound, "ROOM_NOT_FOUND"},
	{domain.ErrPlayerNotFound, http.StatusNotFound, "PLAYER_NOT_FOUND"},
	{domain.ErrRoomFull, http.StatusConflict, "ROOM_FULL"},
	{domain.ErrNotAuthorized, http.StatusForbidden, "NOT_AUTHORIZED"},
	{domain.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
	{domain.ErrNotEnoughPlayers, http.StatusConflict, "NOT_ENOUGH_PLAYERS"},
	{domain.ErrAlreadySubmitted, http.StatusConflict, "ALREADY_SUBMITTED"},
	{domain.ErrAlreadyVoted, http.StatusConflict, "ALREADY_VOTED"},
	{domain.ErrNotInRound, http.StatusForbidden, "NOT_IN_ROUND"},
	{domain.ErrNoSubmission, http.StatusNotFound, "NO_SUBMISSION"},
	{domain.ErrInvalidTarget, http.StatusBadRequest, "INVALID_TARGET"},
	{domain.ErrCannotVoteSelf, http.StatusBadRequest, "CANNOT_VOTE_SELF"},
	{domain.ErrSessionExpired, http.StatusUnauthorized, "SESSION_EXPIRED"},
	{domain.ErrInvalidSession, http.StatusUnauthorized, "INVALID_SESSION"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{domain.ErrNoPrompts, http.StatusServiceUnavailable, "NO_PROMPTS"},
}

// ErrorCode returns the machine code clients receive for err
func ErrorCode(err error) string {
	_, code := classify(err)
	return code
}

func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data any) {
	s.sendJSON(w, http.StatusOK, &Response{Success: true, Data: data})
}

// sendCreated sends a 201 JSON response
func (s *Server) sendCreated(w http.ResponseWriter, data any) {
	s.sendJSON(w, http.StatusCreated, &Response{Success: true, Data: data})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// sendDomainError maps err onto the envelope. Unknown errors are logged and hidden.
func (s *Server) sendDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "Internal server error"
	}
	s.sendError(w, status, code, message)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, body *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10))
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
