package app

import (
	"context"

	"sketchspy/internal/domain"
)

// GalleryEntry is one submitted drawing. The artifact stays hidden until voting opens.
type GalleryEntry struct {
	PlayerID    string `json:"playerId"`
	ArtifactURL string `json:"artifactUrl,omitempty"`
}

// SubmissionStatus is the caller's view of the drawing phase
type SubmissionStatus struct {
	Submitted      bool   `json:"submitted"`
	ArtifactURL    string `json:"artifactUrl,omitempty"`
	SubmittedCount int    `json:"submittedCount"`
	ActiveCount    int    `json:"activeCount"`
}

// Snapshot returns the authoritative room view stamped with the last event seq
func (a *RoomActor) Snapshot(ctx context.Context) (domain.RoomSnapshot, error) {
	var snap domain.RoomSnapshot
	err := a.do(ctx, func() error {
		snap = a.room.Snapshot(a.seq, a.deps.Clock.Now())
		return nil
	})
	return snap, err
}

// Member returns the public view of a member
func (a *RoomActor) Member(ctx context.Context, playerID string) (domain.PlayerInfo, error) {
	var info domain.PlayerInfo
	err := a.do(ctx, func() error {
		player, err := a.room.Player(playerID)
		if err != nil {
			return err
		}
		info = player.ToInfo()
		return nil
	})
	return info, err
}

// Drawings lists the submissions of the current round
func (a *RoomActor) Drawings(ctx context.Context) ([]GalleryEntry, error) {
	var entries []GalleryEntry
	err := a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil || round.Stage == domain.StatusCountdown {
			return domain.ErrInvalidState
		}

		reveal := round.Stage != domain.StatusDrawing
		entries = make([]GalleryEntry, 0, len(round.Drawings))
		for _, id := range round.SubmittedIDs() {
			entry := GalleryEntry{PlayerID: id}
			if reveal {
				entry.ArtifactURL = round.Drawings[id].ArtifactURL
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// SubmissionStatus reports whether the caller has submitted this round
func (a *RoomActor) SubmissionStatus(ctx context.Context, playerID string) (SubmissionStatus, error) {
	var status SubmissionStatus
	err := a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil || !round.InRoster(playerID) {
			return domain.ErrNotInRound
		}

		status.SubmittedCount = len(round.Drawings)
		status.ActiveCount = len(round.Active)
		if d, ok := round.Drawings[playerID]; ok {
			status.Submitted = true
			status.ArtifactURL = d.ArtifactURL
		}
		return nil
	})
	return status, err
}

// CanSubmit checks whether a drawing from playerID would be accepted right now
func (a *RoomActor) CanSubmit(ctx context.Context, playerID string) error {
	return a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil {
			return domain.ErrInvalidState
		}
		return round.CanSubmit(playerID)
	})
}

// Tally returns the public vote tally while voting or after results
func (a *RoomActor) Tally(ctx context.Context) (domain.Tally, error) {
	var tally domain.Tally
	err := a.do(ctx, func() error {
		status := a.room.Status()
		if status != domain.StatusVoting && status != domain.StatusResults {
			return domain.ErrInvalidState
		}
		tally = a.room.CurrentRound.Tally()
		return nil
	})
	return tally, err
}

// Result returns the outcome of the current round once it reached RESULTS
func (a *RoomActor) Result(ctx context.Context) (*domain.Result, error) {
	var result *domain.Result
	err := a.do(ctx, func() error {
		r, ok := domain.ResultOf(a.room.CurrentRound)
		if !ok {
			return domain.ErrInvalidState
		}
		result = r
		return nil
	})
	return result, err
}
