package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sketchspy/internal/domain"
)

func newTestHub(t *testing.T) (*GameHub, *fakeClock, *MockArchive) {
	t.Helper()

	clock := newFakeClock()
	archive := &MockArchive{}
	archive.On("SaveRound", mock.Anything, mock.Anything).Return(nil)

	hub := NewGameHub(HubConfig{
		Limits:         domain.DefaultLimits(),
		RoomCodeLength: 6,
	}, HubDeps{
		Sessions: NewSessionStore([]byte("secret"), time.Hour, clock),
		Deck:     NewPromptDeck(DefaultPromptPairs),
		Archive:  archive,
		Clock:    clock,
		Logger:   discardLogger(),
	})
	t.Cleanup(hub.Close)

	return hub, clock, archive
}

func TestGameHub_CreateRoom(t *testing.T) {
	hub, _, _ := newTestHub(t)

	codes := make(map[string]bool)
	for range 20 {
		room, err := hub.CreateRoom()
		require.NoError(t, err)

		code := room.Code()
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(RoomCodeChars, c), "unexpected char %q", c)
		}
		assert.False(t, codes[code], "duplicate code %s", code)
		codes[code] = true
	}
	assert.Equal(t, 20, hub.RoomCount())

	_, err := hub.Room(strings.ToLower(firstKey(codes)))
	assert.NoError(t, err, "lookups are case insensitive")

	_, err = hub.Room("NOPE")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func firstKey(m map[string]bool) string {
	for k := range m {
		return k
	}
	return ""
}

func TestGameHub_JoinAndAuthorize(t *testing.T) {
	ctx := context.Background()
	hub, _, _ := newTestHub(t)
	room, err := hub.CreateRoom()
	require.NoError(t, err)

	_, err = hub.Join(ctx, room.Code(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	joined, err := hub.Join(ctx, room.Code(), "ann", "robot")
	require.NoError(t, err)
	assert.True(t, joined.Player.IsAdmin)
	assert.NotEmpty(t, joined.SessionToken)

	session, got, err := hub.Authorize(joined.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, room, got)
	assert.Equal(t, joined.Player.ID, session.PlayerID)
	assert.Equal(t, 1, hub.PlayerCount())
}

func TestGameHub_LeaveRevokesAndDestroys(t *testing.T) {
	ctx := context.Background()
	hub, _, _ := newTestHub(t)
	room, err := hub.CreateRoom()
	require.NoError(t, err)

	ann, err := hub.Join(ctx, room.Code(), "ann", "")
	require.NoError(t, err)
	bob, err := hub.Join(ctx, room.Code(), "bob", "")
	require.NoError(t, err)

	require.NoError(t, hub.Leave(ctx, ann.SessionToken))
	_, _, err = hub.Authorize(ann.SessionToken)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	assert.Equal(t, 1, hub.RoomCount())

	require.NoError(t, hub.Leave(ctx, bob.SessionToken))
	assert.Equal(t, 0, hub.RoomCount())
	_, err = hub.Room(room.Code())
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestGameHub_Kick(t *testing.T) {
	ctx := context.Background()
	hub, _, _ := newTestHub(t)
	room, err := hub.CreateRoom()
	require.NoError(t, err)

	ann, err := hub.Join(ctx, room.Code(), "ann", "")
	require.NoError(t, err)
	bob, err := hub.Join(ctx, room.Code(), "bob", "")
	require.NoError(t, err)

	assert.ErrorIs(t, hub.Kick(ctx, bob.SessionToken, ann.Player.ID), domain.ErrNotAuthorized)
	require.NoError(t, hub.Kick(ctx, ann.SessionToken, bob.Player.ID))

	_, _, err = hub.Authorize(bob.SessionToken)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	_, _, err = hub.Authorize(ann.SessionToken)
	assert.NoError(t, err)
}

func TestGameHub_Cleanup(t *testing.T) {
	ctx := context.Background()
	hub, clock, _ := newTestHub(t)

	idle, err := hub.CreateRoom()
	require.NoError(t, err)

	busy, err := hub.CreateRoom()
	require.NoError(t, err)
	var admin string
	for i, name := range []string{"ann", "bob", "cat"} {
		joined, err := hub.Join(ctx, busy.Code(), name, "")
		require.NoError(t, err)
		if i == 0 {
			admin = joined.Player.ID
		}
	}
	require.NoError(t, busy.Start(ctx, admin))

	// The countdown fires on the jump. The draw deadline is armed afterwards
	// and stays pending, so the round is still running at cleanup.
	sub, err := busy.Subscribe(ctx)
	require.NoError(t, err)
	clock.Advance(3 * time.Hour)

	hub.Cleanup(ctx)

	_, err = hub.Room(idle.Code())
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.Equal(t, 1, hub.RoomCount())

	var ended *domain.GameEndedPayload
	for ev := range sub.Events() {
		if ev.Type == domain.EventGameEnded {
			ended = ev.Payload.(*domain.GameEndedPayload)
			break
		}
	}
	require.NotNil(t, ended)
	assert.Equal(t, domain.EndReasonTimer, ended.Reason)

	snap, err := busy.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLobby, snap.Status)
}

func TestGameHub_ReactRateLimit(t *testing.T) {
	ctx := context.Background()
	hub, clock, _ := newTestHub(t)
	room, err := hub.CreateRoom()
	require.NoError(t, err)

	var tokens []string
	var ids []string
	for _, name := range []string{"ann", "bob", "cat"} {
		joined, err := hub.Join(ctx, room.Code(), name, "")
		require.NoError(t, err)
		tokens = append(tokens, joined.SessionToken)
		ids = append(ids, joined.Player.ID)
	}

	assert.ErrorIs(t, hub.React(ctx, tokens[0], ids[1], "🔥"), domain.ErrInvalidState, "no round yet")
	require.NoError(t, room.Start(ctx, ids[0]))

	for range reactionBurst - 1 {
		require.NoError(t, hub.React(ctx, tokens[0], ids[1], "🔥"))
	}
	assert.ErrorIs(t, hub.React(ctx, tokens[0], ids[1], "🔥"), domain.ErrRateLimited)
	assert.NoError(t, hub.React(ctx, tokens[1], ids[0], "👏"), "limits are per session")

	clock.Advance(time.Second)
	assert.NoError(t, hub.React(ctx, tokens[0], ids[1], "🔥"))
}
