package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sketchspy/internal/domain"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = 6

	// DefaultMaxRoundAge is how long a round may run before it is ended
	DefaultMaxRoundAge = 10 * time.Minute

	// DefaultStaleRoomTimeout is how long an empty room is kept
	DefaultStaleRoomTimeout = 2 * time.Hour

	// DefaultCleanupInterval is how often stale rooms and rounds are collected
	DefaultCleanupInterval = time.Minute

	codeAttempts = 10
)

// RoomCodeChars are characters used for room codes (no ambiguous chars)
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// HubConfig tunes the room registry
type HubConfig struct {
	Limits           domain.Limits
	RoomCodeLength   int
	MaxRoundAge      time.Duration
	StaleRoomTimeout time.Duration
	CleanupInterval  time.Duration
}

// HubDeps are the collaborators shared by every room
type HubDeps struct {
	Sessions *SessionStore
	Deck     *PromptDeck
	Archive  RoundArchive
	Clock    Clock
	Logger   *slog.Logger

	// Optional overrides, mainly for tests.
	Pick  func(n int) int
	NewID func() string
}

// JoinResult is returned to a player who joined a room
type JoinResult struct {
	Player       domain.PlayerInfo `json:"player"`
	RoomCode     string            `json:"roomCode"`
	SessionToken string            `json:"sessionToken"`
	ExpiresAt    int64             `json:"expiresAt"`
}

// GameHub is the room registry. Its lock only guards the code→room map and is
// never held while a room processes an operation.
type GameHub struct {
	rooms map[string]*RoomActor
	mu    sync.RWMutex

	cfg      HubConfig
	sessions *SessionStore
	deck     *PromptDeck
	archive  RoundArchive
	clock    Clock
	logger   *slog.Logger
	pick     func(n int) int
	newID    func() string

	done      chan struct{}
	closeOnce sync.Once
}

// NewGameHub creates a new game hub and starts its cleanup loop
func NewGameHub(cfg HubConfig, deps HubDeps) *GameHub {
	if cfg.RoomCodeLength <= 0 {
		cfg.RoomCodeLength = DefaultRoomCodeLength
	}
	cfg.RoomCodeLength = max(4, min(cfg.RoomCodeLength, 8))
	if cfg.MaxRoundAge <= 0 {
		cfg.MaxRoundAge = DefaultMaxRoundAge
	}
	if cfg.StaleRoomTimeout <= 0 {
		cfg.StaleRoomTimeout = DefaultStaleRoomTimeout
	}
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Pick == nil {
		deps.Pick = mathrand.IntN
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	hub := &GameHub{
		rooms:    make(map[string]*RoomActor),
		cfg:      cfg,
		sessions: deps.Sessions,
		deck:     deps.Deck,
		archive:  deps.Archive,
		clock:    deps.Clock,
		logger:   deps.Logger,
		pick:     deps.Pick,
		newID:    deps.NewID,
		done:     make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go hub.cleanupLoop(cfg.CleanupInterval)
	}

	return hub
}

// Sessions returns the session store
func (h *GameHub) Sessions() *SessionStore {
	return h.sessions
}

// CreateRoom allocates a unique code and starts an empty room
func (h *GameHub) CreateRoom() (*RoomActor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for range codeAttempts {
		code := h.generateRoomCode()
		if _, exists := h.rooms[code]; exists {
			continue
		}

		room := NewRoomActor(code, h.cfg.Limits, RoomDeps{
			Clock:   h.clock,
			Deck:    h.deck,
			Archive: h.archive,
			Logger:  h.logger,
			Pick:    h.pick,
			NewID:   h.newID,
			OnEmpty: h.removeRoom,
		})
		h.rooms[code] = room

		h.logger.Info("room created", "roomCode", code)
		return room, nil
	}

	return nil, fmt.Errorf("failed to generate unique room code")
}

// Room returns a room by code
func (h *GameHub) Room(code string) (*RoomActor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Join adds a player to a room and issues their session token
func (h *GameHub) Join(ctx context.Context, code, name, avatar string) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 32 {
		return nil, domain.ErrInvalidInput
	}

	room, err := h.Room(code)
	if err != nil {
		return nil, err
	}

	player, err := room.Join(ctx, name, avatar)
	if err != nil {
		return nil, err
	}

	session, err := h.sessions.Issue(room.Code(), player.ID)
	if err != nil {
		if leaveErr := room.Leave(ctx, player.ID); leaveErr != nil {
			h.logger.Error("failed to roll back join", "playerID", player.ID, "error", leaveErr)
		}
		return nil, err
	}

	return &JoinResult{
		Player:       player,
		RoomCode:     room.Code(),
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt.UnixMilli(),
	}, nil
}

// Authorize resolves a bearer token to its session and room
func (h *GameHub) Authorize(token string) (*Session, *RoomActor, error) {
	session, err := h.sessions.Validate(token)
	if err != nil {
		return nil, nil, err
	}

	room, err := h.Room(session.RoomCode)
	if err != nil {
		h.sessions.Revoke(token)
		return nil, nil, err
	}

	return session, room, nil
}

// Leave removes the session's player from its room and revokes the session
func (h *GameHub) Leave(ctx context.Context, token string) error {
	session, room, err := h.Authorize(token)
	if err != nil {
		return err
	}

	if err := room.Leave(ctx, session.PlayerID); err != nil {
		return err
	}
	h.sessions.Revoke(token)
	return nil
}

// Kick removes target from the caller's room and revokes the target's sessions
func (h *GameHub) Kick(ctx context.Context, token, targetID string) error {
	session, room, err := h.Authorize(token)
	if err != nil {
		return err
	}

	if err := room.Kick(ctx, session.PlayerID, targetID); err != nil {
		return err
	}
	h.sessions.RevokePlayer(room.Code(), targetID)
	return nil
}

// React broadcasts a reaction from the session's player, subject to its rate limit
func (h *GameHub) React(ctx context.Context, token, targetID, emoji string) error {
	session, room, err := h.Authorize(token)
	if err != nil {
		return err
	}
	if !session.Allow(h.clock.Now()) {
		return domain.ErrRateLimited
	}
	return room.React(ctx, session.PlayerID, targetID, emoji)
}

// History returns the archived rounds of a room
func (h *GameHub) History(ctx context.Context, code string) ([]domain.RoundRecord, error) {
	if h.archive == nil {
		return []domain.RoundRecord{}, nil
	}
	return h.archive.RoundHistory(ctx, strings.ToUpper(code))
}

// RoomCount returns the number of live rooms
func (h *GameHub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// PlayerCount returns the total number of players across all rooms
func (h *GameHub) PlayerCount() int {
	total := 0
	for _, room := range h.snapshotRooms() {
		total += room.PlayerCount()
	}
	return total
}

// Close shuts down the hub and all rooms
func (h *GameHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*RoomActor)
	h.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}

// removeRoom is called by a room once its last member left
func (h *GameHub) removeRoom(code string) {
	h.mu.Lock()
	delete(h.rooms, code)
	h.mu.Unlock()

	h.sessions.RevokeRoom(code)
	h.logger.Info("room destroyed", "roomCode", code)
}

func (h *GameHub) snapshotRooms() []*RoomActor {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]*RoomActor, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// generateRoomCode generates a random room code
func (h *GameHub) generateRoomCode() string {
	b := make([]byte, h.cfg.RoomCodeLength)
	rand.Read(b)

	code := make([]byte, h.cfg.RoomCodeLength)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}

	return string(code)
}

// cleanupLoop periodically collects stale rooms and rounds
func (h *GameHub) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.Cleanup(context.Background())
		}
	}
}

// Cleanup ends rounds older than the max round age, removes rooms that have
// been empty past the stale timeout and prunes expired sessions.
func (h *GameHub) Cleanup(ctx context.Context) {
	now := h.clock.Now()

	for _, room := range h.snapshotRooms() {
		if room.PlayerCount() == 0 && now.Sub(room.CreatedAt()) > h.cfg.StaleRoomTimeout {
			h.mu.Lock()
			if h.rooms[room.Code()] == room {
				delete(h.rooms, room.Code())
			}
			h.mu.Unlock()

			room.Close()
			h.logger.Info("stale room cleaned up", "roomCode", room.Code())
			continue
		}

		expired, err := room.ExpireRound(ctx, h.cfg.MaxRoundAge)
		if err != nil {
			h.logger.Debug("round expiry skipped", "roomCode", room.Code(), "error", err)
			continue
		}
		if expired {
			h.logger.Info("stale round ended", "roomCode", room.Code())
		}
	}

	if n := h.sessions.Prune(); n > 0 {
		h.logger.Debug("expired sessions pruned", "count", n)
	}
}
