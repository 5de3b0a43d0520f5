package ws

import (
	"encoding/json"
	"errors"
	"time"

	"sketchspy/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgPing  MessageType = "ping"
	MsgReact MessageType = "react"
)

// Server → Client message types
const (
	MsgConnected MessageType = "connected"
	MsgEvent     MessageType = "event"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewServerMessage creates a server message stamped with the current time in ms
func NewServerMessage(msgType MessageType, payload any) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ReactPayload is the payload for react message
type ReactPayload struct {
	TargetID string `json:"targetId"`
	Emoji    string `json:"emoji"`
}

// ConnectedPayload confirms the subscription. Every event after it is delivered.
type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInvalidState   = "INVALID_STATE"
	ErrCodeInvalidTarget  = "INVALID_TARGET"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeInvalidSession = "INVALID_SESSION"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return ErrCodeRateLimited
	case errors.Is(err, domain.ErrInvalidState):
		return ErrCodeInvalidState
	case errors.Is(err, domain.ErrInvalidTarget):
		return ErrCodeInvalidTarget
	case errors.Is(err, domain.ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, domain.ErrInvalidSession), errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrPlayerNotFound):
		return ErrCodeInvalidSession
	default:
		return ErrCodeInternalError
	}
}
