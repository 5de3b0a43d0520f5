package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchspy/internal/domain"
)

func TestSessionStore(t *testing.T) {
	t.Run("issue and validate", func(t *testing.T) {
		store := NewSessionStore([]byte("secret"), time.Hour, newFakeClock())
		issued, err := store.Issue("ABCD", "p1")
		require.NoError(t, err)

		got, err := store.Validate(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, "p1", got.PlayerID)
		assert.Equal(t, "ABCD", got.RoomCode)
	})

	t.Run("token survives repeated validation", func(t *testing.T) {
		clock := newFakeClock()
		store := NewSessionStore([]byte("secret"), 24*time.Hour, clock)
		issued, err := store.Issue("ABCD", "p1")
		require.NoError(t, err)

		clock.Advance(23 * time.Hour)
		_, err = store.Validate(issued.Token)
		assert.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		clock := newFakeClock()
		store := NewSessionStore([]byte("secret"), time.Hour, clock)
		issued, err := store.Issue("ABCD", "p1")
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)
		_, err = store.Validate(issued.Token)
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
		assert.Equal(t, 0, store.Count())
	})

	t.Run("foreign signature", func(t *testing.T) {
		clock := newFakeClock()
		other := NewSessionStore([]byte("other"), time.Hour, clock)
		issued, err := other.Issue("ABCD", "p1")
		require.NoError(t, err)

		store := NewSessionStore([]byte("secret"), time.Hour, clock)
		_, err = store.Validate(issued.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("garbage and empty tokens", func(t *testing.T) {
		store := NewSessionStore([]byte("secret"), time.Hour, newFakeClock())
		_, err := store.Validate("not-a-token")
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
		_, err = store.Validate("")
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("revocation", func(t *testing.T) {
		store := NewSessionStore([]byte("secret"), time.Hour, newFakeClock())
		a, err := store.Issue("ABCD", "p1")
		require.NoError(t, err)
		b, err := store.Issue("ABCD", "p2")
		require.NoError(t, err)
		c, err := store.Issue("WXYZ", "p3")
		require.NoError(t, err)

		store.Revoke(a.Token)
		_, err = store.Validate(a.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)

		assert.Equal(t, 1, store.RevokePlayer("ABCD", "p2"))
		_, err = store.Validate(b.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)

		assert.Equal(t, 1, store.RevokeRoom("WXYZ"))
		_, err = store.Validate(c.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("prune", func(t *testing.T) {
		clock := newFakeClock()
		store := NewSessionStore([]byte("secret"), time.Hour, clock)
		_, err := store.Issue("ABCD", "p1")
		require.NoError(t, err)

		assert.Equal(t, 0, store.Prune())
		clock.Advance(time.Hour)
		assert.Equal(t, 1, store.Prune())
	})

	t.Run("reaction rate limit", func(t *testing.T) {
		clock := newFakeClock()
		store := NewSessionStore([]byte("secret"), time.Hour, clock)
		s, err := store.Issue("ABCD", "p1")
		require.NoError(t, err)

		for range reactionBurst {
			assert.True(t, s.Allow(clock.Now()))
		}
		assert.False(t, s.Allow(clock.Now()))
		assert.True(t, s.Allow(clock.Now().Add(time.Second)))
	})
}
