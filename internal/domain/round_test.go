package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drawingRound(t *testing.T) *Round {
	t.Helper()
	timings := RoundTimings{Countdown: 3 * time.Second, Draw: 120 * time.Second, Vote: 60 * time.Second}
	r := NewRound("g1", PromptPair{"cat", "dog"}, []string{"p1", "p2", "p3"}, timings, epoch, firstIndex)
	require.NoError(t, r.BeginDrawing())
	return r
}

func votingRound(t *testing.T) *Round {
	t.Helper()
	r := drawingRound(t)
	require.NoError(t, r.BeginVoting(r.DrawDeadline, time.Minute))
	return r
}

func TestRound_PromptFor(t *testing.T) {
	r := drawingRound(t)
	assert.Equal(t, "p1", r.ImpostorID)
	assert.Equal(t, "dog", r.PromptFor("p1"))
	assert.Equal(t, "cat", r.PromptFor("p2"))
}

func TestRound_Submit(t *testing.T) {
	t.Run("duplicate submission keeps one artifact", func(t *testing.T) {
		r := drawingRound(t)
		require.NoError(t, r.Submit("p1", "/a.png", epoch))
		assert.ErrorIs(t, r.Submit("p1", "/b.png", epoch), ErrAlreadySubmitted)
		assert.Len(t, r.Drawings, 1)
		assert.Equal(t, "/a.png", r.Drawings["p1"].ArtifactURL)
	})

	t.Run("withdraw then resubmit", func(t *testing.T) {
		r := drawingRound(t)
		require.NoError(t, r.Submit("p1", "/a.png", epoch))
		old, err := r.Withdraw("p1")
		require.NoError(t, err)
		assert.Equal(t, "/a.png", old.ArtifactURL)
		require.NoError(t, r.Submit("p1", "/b.png", epoch))
		assert.Len(t, r.Drawings, 1)
		assert.Equal(t, "/b.png", r.Drawings["p1"].ArtifactURL)
	})

	t.Run("withdraw without submission", func(t *testing.T) {
		r := drawingRound(t)
		_, err := r.Withdraw("p2")
		assert.ErrorIs(t, err, ErrNoSubmission)
	})

	t.Run("non participant", func(t *testing.T) {
		r := drawingRound(t)
		assert.ErrorIs(t, r.Submit("late", "/x.png", epoch), ErrNotInRound)
	})

	t.Run("outside drawing", func(t *testing.T) {
		r := votingRound(t)
		assert.ErrorIs(t, r.Submit("p1", "/x.png", epoch), ErrInvalidState)
	})

	t.Run("CanSubmit matches Submit", func(t *testing.T) {
		r := drawingRound(t)
		assert.NoError(t, r.CanSubmit("p1"))
		assert.ErrorIs(t, r.CanSubmit("late"), ErrNotInRound)
		require.NoError(t, r.Submit("p1", "/a.png", epoch))
		assert.ErrorIs(t, r.CanSubmit("p1"), ErrAlreadySubmitted)
		assert.ErrorIs(t, votingRound(t).CanSubmit("p2"), ErrInvalidState)
	})

	t.Run("all submitted tracks active set", func(t *testing.T) {
		r := drawingRound(t)
		require.NoError(t, r.Submit("p1", "/1.png", epoch))
		require.NoError(t, r.Submit("p2", "/2.png", epoch))
		assert.False(t, r.AllSubmitted())
		assert.True(t, r.RemoveParticipant("p3"))
		assert.True(t, r.AllSubmitted())
	})
}

func TestRound_BeginVoting_Reanchors(t *testing.T) {
	r := drawingRound(t)
	early := epoch.Add(10 * time.Second)

	require.NoError(t, r.BeginVoting(early, time.Minute))
	assert.Equal(t, early, r.DrawDeadline)
	assert.Equal(t, early.Add(time.Minute), r.VoteDeadline)
	assert.True(t, r.DrawDeadline.Before(r.VoteDeadline))
	assert.ErrorIs(t, r.BeginVoting(early, time.Minute), ErrInvalidState)
}

func TestRound_CastVote(t *testing.T) {
	t.Run("rules", func(t *testing.T) {
		r := votingRound(t)
		assert.ErrorIs(t, r.CastVote("p1", "p1", epoch), ErrCannotVoteSelf)
		assert.ErrorIs(t, r.CastVote("p1", "ghost", epoch), ErrInvalidTarget)
		assert.ErrorIs(t, r.CastVote("ghost", "p1", epoch), ErrNotInRound)
		require.NoError(t, r.CastVote("p1", "p2", epoch))
		assert.ErrorIs(t, r.CastVote("p1", "p3", epoch), ErrAlreadyVoted)
		assert.Equal(t, Tally{"p2": 1}, r.Tally())
	})

	t.Run("tally sum equals distinct voters", func(t *testing.T) {
		r := votingRound(t)
		require.NoError(t, r.CastVote("p1", "p2", epoch))
		require.NoError(t, r.CastVote("p2", "p1", epoch))
		require.NoError(t, r.CastVote("p3", "p1", epoch))
		assert.Equal(t, len(r.Votes), r.Tally().Total())
		assert.True(t, r.AllVoted())
	})

	t.Run("votes survive participant leaving", func(t *testing.T) {
		r := votingRound(t)
		require.NoError(t, r.CastVote("p2", "p1", epoch))
		r.RemoveParticipant("p2")
		assert.Equal(t, Tally{"p1": 1}, r.Tally())
	})

	t.Run("before voting", func(t *testing.T) {
		r := drawingRound(t)
		assert.ErrorIs(t, r.CastVote("p1", "p2", epoch), ErrInvalidState)
	})
}

func TestRound_Finish(t *testing.T) {
	r := votingRound(t)
	require.NoError(t, r.CastVote("p2", "p1", epoch))
	require.NoError(t, r.CastVote("p3", "p1", epoch))

	out, err := r.Finish(epoch)
	require.NoError(t, err)
	assert.Equal(t, TeamArtists, out.Winner)
	assert.Equal(t, StatusResults, r.Stage)

	_, err = r.Finish(epoch)
	assert.ErrorIs(t, err, ErrInvalidState)
}
