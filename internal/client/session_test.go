package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	session := &PersistedSession{
		RoomCode:     "ABCDEF",
		RoomID:       "ABCDEF",
		PlayerID:     "bob",
		SessionToken: "token",
		IsAdmin:      true,
		Timestamp:    t0.UnixMilli(),
	}
	require.NoError(t, store.Save(session))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, session, loaded)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestPersistedSession(t *testing.T) {
	s := &PersistedSession{RoomCode: "ABCDEF", PlayerID: "bob", SessionToken: "token", Timestamp: t0.UnixMilli()}
	assert.True(t, s.Complete())
	assert.False(t, s.Expired(t0.Add(23*time.Hour), DefaultSessionMaxAge))
	assert.True(t, s.Expired(t0.Add(25*time.Hour), DefaultSessionMaxAge))

	s.SessionToken = ""
	assert.False(t, s.Complete())

	var missing *PersistedSession
	assert.False(t, missing.Complete())
}
