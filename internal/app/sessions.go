package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"sketchspy/internal/domain"
)

const (
	// DefaultSessionTTL bounds how long a session token stays valid
	DefaultSessionTTL = 24 * time.Hour

	reactionRate  = rate.Limit(2)
	reactionBurst = 5
)

// Session binds a bearer token to one player of one room
type Session struct {
	Token     string
	PlayerID  string
	RoomCode  string
	IssuedAt  time.Time
	ExpiresAt time.Time

	limiter *rate.Limiter
}

// Allow reports whether the session may send another rate-limited message
func (s *Session) Allow(now time.Time) bool {
	return s.limiter.AllowN(now, 1)
}

type sessionClaims struct {
	PlayerID string `json:"pid"`
	RoomCode string `json:"room"`
	jwt.RegisteredClaims
}

// SessionStore issues signed session tokens and tracks which are still live.
// A token survives reconnects and reloads; it is revoked on leave or kick.
type SessionStore struct {
	secret []byte
	ttl    time.Duration
	clock  Clock

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a session store signing with the given secret
func NewSessionStore(secret []byte, ttl time.Duration, clock Clock) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		secret:   secret,
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]*Session),
	}
}

// Issue creates a session for a player who just joined a room
func (s *SessionStore) Issue(roomCode, playerID string) (*Session, error) {
	now := s.clock.Now()
	claims := sessionClaims{
		PlayerID: playerID,
		RoomCode: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	session := &Session{
		Token:     token,
		PlayerID:  playerID,
		RoomCode:  roomCode,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		limiter:   rate.NewLimiter(reactionRate, reactionBurst),
	}

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session, nil
}

// Validate verifies the token signature and expiry and that it was not revoked
func (s *SessionStore) Validate(token string) (*Session, error) {
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSession
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.Revoke(token)
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrInvalidSession
	}

	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok || session.PlayerID != claims.PlayerID || session.RoomCode != claims.RoomCode {
		return nil, domain.ErrInvalidSession
	}

	return session, nil
}

// Revoke invalidates a single token
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// RevokePlayer invalidates every token held by a player of a room
func (s *SessionStore) RevokePlayer(roomCode, playerID string) int {
	return s.revokeWhere(func(sess *Session) bool {
		return sess.RoomCode == roomCode && sess.PlayerID == playerID
	})
}

// RevokeRoom invalidates every token of a room
func (s *SessionStore) RevokeRoom(roomCode string) int {
	return s.revokeWhere(func(sess *Session) bool {
		return sess.RoomCode == roomCode
	})
}

// Prune drops expired sessions
func (s *SessionStore) Prune() int {
	now := s.clock.Now()
	return s.revokeWhere(func(sess *Session) bool {
		return !now.Before(sess.ExpiresAt)
	})
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) revokeWhere(match func(*Session) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, sess := range s.sessions {
		if match(sess) {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}
