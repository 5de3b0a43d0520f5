package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sketchspy/internal/domain"
)

// API is the part of the server's REST surface the reconciler needs
type API interface {
	Join(ctx context.Context, roomCode, name, avatar string) (*JoinResult, error)
	Me(ctx context.Context, token string) (*Me, error)
	Snapshot(ctx context.Context, roomCode string) (domain.RoomSnapshot, error)
	LeaveGame(ctx context.Context, token string) error
	Leave(ctx context.Context, token string) error
}

// JoinResult is returned by a successful join
type JoinResult struct {
	Player       domain.PlayerInfo `json:"player"`
	RoomCode     string            `json:"roomCode"`
	SessionToken string            `json:"sessionToken"`
	ExpiresAt    int64             `json:"expiresAt"`
}

// Me is the server's confirmation of a session
type Me struct {
	Player    domain.PlayerInfo `json:"player"`
	RoomCode  string            `json:"roomCode"`
	ExpiresAt int64             `json:"expiresAt"`
}

// APIError is a rejected call. It unwraps to the matching domain error when the code is known.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

var codeErrors = map[string]error{
	"ROOM_NOT_FOUND":     domain.ErrRoomNotFound,
	"PLAYER_NOT_FOUND":   domain.ErrPlayerNotFound,
	"ROOM_FULL":          domain.ErrRoomFull,
	"NOT_AUTHORIZED":     domain.ErrNotAuthorized,
	"INVALID_STATE":      domain.ErrInvalidState,
	"NOT_ENOUGH_PLAYERS": domain.ErrNotEnoughPlayers,
	"ALREADY_SUBMITTED":  domain.ErrAlreadySubmitted,
	"ALREADY_VOTED":      domain.ErrAlreadyVoted,
	"NOT_IN_ROUND":       domain.ErrNotInRound,
	"NO_SUBMISSION":      domain.ErrNoSubmission,
	"INVALID_TARGET":     domain.ErrInvalidTarget,
	"CANNOT_VOTE_SELF":   domain.ErrCannotVoteSelf,
	"SESSION_EXPIRED":    domain.ErrSessionExpired,
	"INVALID_SESSION":    domain.ErrInvalidSession,
	"RATE_LIMITED":       domain.ErrRateLimited,
	"INVALID_INPUT":      domain.ErrInvalidInput,
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPAPI talks to the server's REST endpoints
type HTTPAPI struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAPI creates an API client for the server at baseURL. A nil client uses a 10s timeout.
func NewHTTPAPI(baseURL string, client *http.Client) *HTTPAPI {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *HTTPAPI) CreateRoom(ctx context.Context) (string, error) {
	var out struct {
		RoomCode string `json:"roomCode"`
	}
	err := a.do(ctx, http.MethodPost, "/api/rooms", "", nil, &out)
	return out.RoomCode, err
}

func (a *HTTPAPI) Join(ctx context.Context, roomCode, name, avatar string) (*JoinResult, error) {
	var out JoinResult
	body := map[string]string{"name": name, "avatar": avatar}
	if err := a.do(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(roomCode)+"/join", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) Me(ctx context.Context, token string) (*Me, error) {
	var out Me
	if err := a.do(ctx, http.MethodGet, "/api/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) Snapshot(ctx context.Context, roomCode string) (domain.RoomSnapshot, error) {
	var out domain.RoomSnapshot
	err := a.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(roomCode)+"/state", "", nil, &out)
	return out, err
}

func (a *HTTPAPI) LeaveGame(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodPost, "/api/room/leave-game", token, nil, nil)
}

func (a *HTTPAPI) Leave(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodPost, "/api/room/leave", token, nil, nil)
}

func (a *HTTPAPI) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response (%d): %w", method, path, resp.StatusCode, err)
	}
	if !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Code: "INTERNAL_ERROR"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}
