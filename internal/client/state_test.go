package client

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchspy/internal/domain"
)

func TestState_Sequencing(t *testing.T) {
	state := NewState("ann")
	assert.Equal(t, ViewEntry, state.View())

	joined := event(t, 6, domain.EventPlayerJoined, &domain.PlayerJoinedPayload{Player: domain.PlayerInfo{ID: "dan"}})
	assert.ErrorIs(t, state.ApplyEvent(joined, t0), ErrNoSnapshot)

	state.ApplySnapshot(lobbySnapshot(5, "ann", "bob", "cat"), t0)
	assert.Equal(t, ViewLobby, state.View())
	assert.True(t, state.IsAdmin())

	t.Run("already reflected events are ignored", func(t *testing.T) {
		old := event(t, 5, domain.EventPlayerJoined, &domain.PlayerJoinedPayload{Player: domain.PlayerInfo{ID: "eve"}})
		require.NoError(t, state.ApplyEvent(old, t0))
		assert.Len(t, state.Players, 3)
	})

	t.Run("next event applies", func(t *testing.T) {
		require.NoError(t, state.ApplyEvent(joined, t0))
		assert.Len(t, state.Players, 4)
		assert.Equal(t, uint64(6), state.Seq())
	})

	t.Run("gap is reported and leaves the state alone", func(t *testing.T) {
		skipped := event(t, 8, domain.EventPlayerJoined, &domain.PlayerJoinedPayload{Player: domain.PlayerInfo{ID: "fay"}})
		assert.ErrorIs(t, state.ApplyEvent(skipped, t0), ErrSequenceGap)
		assert.Len(t, state.Players, 4)
		assert.Equal(t, uint64(6), state.Seq())
	})
}

func TestState_LocalDeadlines(t *testing.T) {
	state := NewState("ann")
	state.ApplySnapshot(drawingSnapshot(9, []string{"ann", "bob", "cat"}, "ann", "bob", "cat"), t0)

	require.NotNil(t, state.Round)
	assert.Equal(t, t0.Add(90*time.Second), state.Round.DrawDeadline, "local clock skew does not matter")
	assert.Equal(t, t0.Add(150*time.Second), state.Round.VoteDeadline)
	assert.Equal(t, ViewDrawing, state.View())
	assert.True(t, state.ActiveParticipant())
	assert.False(t, state.Spectating())

	later := t0.Add(40 * time.Second)
	discuss := event(t, 10, domain.EventDiscussStarted, &domain.DiscussStartedPayload{
		GameID:       "game-1",
		VoteSeconds:  60,
		VoteDeadline: serverNow + 60_000,
	})
	require.NoError(t, state.ApplyEvent(discuss, later))
	assert.Equal(t, ViewVoting, state.View())
	assert.Equal(t, later, state.Round.DrawDeadline, "early voting moves the draw deadline")
	assert.Equal(t, later.Add(60*time.Second), state.Round.VoteDeadline)
}

func TestState_RoundLifecycle(t *testing.T) {
	state := NewState("bob")
	state.ApplySnapshot(lobbySnapshot(3, "ann", "bob", "cat"), t0)
	assert.False(t, state.IsAdmin())

	steps := []struct {
		typ     domain.EventType
		payload any
		view    View
	}{
		{domain.EventSettingsUpdated, &domain.SettingsUpdatedPayload{Settings: domain.Settings{DrawSeconds: 30, VoteSeconds: 20, MaxPlayers: 6}}, ViewLobby},
		{domain.EventGameCountdown, &domain.GameCountdownPayload{GameID: "game-1", StartAt: serverNow + 3000, Seconds: 3}, ViewCountdown},
		{domain.EventGameStarted, &domain.GameStartedPayload{GameID: "game-1", DrawSeconds: 30, VoteSeconds: 20, VoteStartTime: serverNow + 33_000, VoteDeadline: serverNow + 53_000, ActiveGameParticipants: []string{"ann", "bob", "cat"}}, ViewDrawing},
		{domain.EventDrawingUploaded, &domain.DrawingUploadedPayload{PlayerID: "ann", SubmittedCount: 1, ActiveCount: 3}, ViewDrawing},
		{domain.EventReaction, &domain.ReactionPayload{PlayerID: "cat", TargetID: "ann", Emoji: "🔥"}, ViewDrawing},
		{domain.EventDiscussStarted, &domain.DiscussStartedPayload{GameID: "game-1", VoteSeconds: 20, VoteDeadline: serverNow + 20_000}, ViewVoting},
		{domain.EventVoteUpdate, &domain.VoteUpdatePayload{Tally: domain.Tally{"cat": 1}, VotedCount: 1}, ViewVoting},
		{domain.EventShowResults, &domain.ShowResultsPayload{GameID: "game-1", Winner: domain.TeamImpostor, ImpostorID: "ann", Tally: domain.Tally{"cat": 1}}, ViewResults},
		{domain.EventRoomReset, &domain.RoomResetPayload{Settings: domain.Settings{DrawSeconds: 30, VoteSeconds: 20, MaxPlayers: 6}}, ViewLobby},
	}

	for i, step := range steps {
		require.NoError(t, state.ApplyEvent(event(t, uint64(4+i), step.typ, step.payload), t0), step.typ)
		assert.Equal(t, step.view, state.View(), step.typ)

		switch step.typ {
		case domain.EventGameCountdown:
			assert.Equal(t, t0.Add(3*time.Second), state.Round.CountdownEnd)
		case domain.EventGameStarted:
			assert.True(t, state.ActiveParticipant())
			assert.Equal(t, t0.Add(33*time.Second), state.Round.DrawDeadline)
		case domain.EventDrawingUploaded:
			assert.Equal(t, []string{"ann"}, state.Round.Submitted)
		case domain.EventReaction:
			assert.Len(t, state.Reactions, 1)
		case domain.EventVoteUpdate:
			assert.Equal(t, 1, state.Round.VotedCount)
		case domain.EventShowResults:
			require.NotNil(t, state.Round.Result)
			assert.Equal(t, domain.TeamImpostor, state.Round.Result.Winner)
			assert.Nil(t, state.Round.Result.VotedOutID)
		case domain.EventRoomReset:
			assert.Nil(t, state.Round)
			assert.Equal(t, 30, state.Settings.DrawSeconds)
		}
	}
}

func TestState_Spectating(t *testing.T) {
	state := NewState("dan")
	state.ApplySnapshot(drawingSnapshot(9, []string{"ann", "bob", "cat"}, "ann", "bob", "cat", "dan"), t0)

	assert.Equal(t, ViewLobby, state.View(), "a spectator waits in the lobby")
	assert.True(t, state.Spectating())
	assert.False(t, state.ActiveParticipant())

	sum, ok := state.Summary()
	require.True(t, ok)
	assert.Equal(t, 3, sum.ActiveCount)
	assert.Equal(t, t0.Add(90*time.Second), sum.Deadline)

	discuss := event(t, 10, domain.EventDiscussStarted, &domain.DiscussStartedPayload{GameID: "game-1", VoteSeconds: 60, VoteDeadline: serverNow + 60_000})
	require.NoError(t, state.ApplyEvent(discuss, t0))
	assert.Equal(t, ViewLobby, state.View(), "phase changes keep the spectator in the lobby")
	sum, ok = state.Summary()
	require.True(t, ok)
	assert.Equal(t, domain.StatusVoting, sum.Stage)
	assert.Equal(t, t0.Add(60*time.Second), sum.Deadline)

	ended := event(t, 11, domain.EventGameEnded, &domain.GameEndedPayload{GameID: "game-1", Reason: domain.EndReasonAllLeft})
	require.NoError(t, state.ApplyEvent(ended, t0))
	assert.Equal(t, ViewLobby, state.View())
	assert.False(t, state.Spectating())
	require.NotNil(t, state.LastEnded)
	assert.Equal(t, domain.EndReasonAllLeft, state.LastEnded.Reason)
}

func TestState_PlayerLeft(t *testing.T) {
	state := NewState("bob")
	state.ApplySnapshot(drawingSnapshot(9, []string{"ann", "bob", "cat"}, "ann", "bob", "cat"), t0)

	left := event(t, 10, domain.EventPlayerLeft, &domain.PlayerLeftPayload{PlayerID: "ann", AdminID: "bob"})
	require.NoError(t, state.ApplyEvent(left, t0))
	assert.True(t, state.IsAdmin())
	assert.Equal(t, []string{"bob", "cat"}, state.Round.Active)

	kicked := event(t, 11, domain.EventPlayerLeft, &domain.PlayerLeftPayload{PlayerID: "bob", AdminID: "cat", Kicked: true})
	require.NoError(t, state.ApplyEvent(kicked, t0))
	assert.True(t, state.Removed)
	assert.Equal(t, ViewEntry, state.View())
}

func TestState_Clone(t *testing.T) {
	state := NewState("ann")
	state.ApplySnapshot(drawingSnapshot(9, []string{"ann", "bob", "cat"}, "ann", "bob", "cat"), t0)

	cp := state.Clone()
	if diff := cmp.Diff(state, cp, cmp.AllowUnexported(State{})); diff != "" {
		t.Fatalf("clone differs (-want +got):\n%s", diff)
	}

	cp.Players[0].Name = "changed"
	cp.Round.Active[0] = "zed"
	assert.NotEqual(t, "changed", state.Players[0].Name)
	assert.Equal(t, "ann", state.Round.Active[0])
}
