package domain

import (
	"slices"
	"time"
)

// Round is one play-through within a room: prompts, drawing, voting, results.
type Round struct {
	ID         string     `json:"id"`
	Prompts    PromptPair `json:"prompts"`
	ImpostorID string     `json:"impostorId"`
	Stage      Status     `json:"stage"`

	// Roster is everyone present at start. Active shrinks as participants leave
	// the game and is what completion checks are measured against.
	Roster []string `json:"roster"`
	Active []string `json:"active"`

	CountdownEndsAt time.Time `json:"countdownEndsAt"`
	DrawDeadline    time.Time `json:"drawDeadline"`
	VoteDeadline    time.Time `json:"voteDeadline"`

	Drawings map[string]*Drawing `json:"drawings"`
	Votes    map[string]*Vote    `json:"votes"`
	Outcome  *Outcome            `json:"outcome,omitempty"`

	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
}

// RoundTimings are the durations a round is scheduled with
type RoundTimings struct {
	Countdown time.Duration
	Draw      time.Duration
	Vote      time.Duration
}

// NewRound creates a round in COUNTDOWN. pick must return a uniform index in [0, n).
func NewRound(id string, prompts PromptPair, participants []string, timings RoundTimings, now time.Time, pick func(n int) int) *Round {
	roster := slices.Clone(participants)
	countdownEnds := now.Add(timings.Countdown)
	drawDeadline := countdownEnds.Add(timings.Draw)

	return &Round{
		ID:              id,
		Prompts:         prompts,
		ImpostorID:      roster[pick(len(roster))],
		Stage:           StatusCountdown,
		Roster:          roster,
		Active:          slices.Clone(roster),
		CountdownEndsAt: countdownEnds,
		DrawDeadline:    drawDeadline,
		VoteDeadline:    drawDeadline.Add(timings.Vote),
		Drawings:        make(map[string]*Drawing),
		Votes:           make(map[string]*Vote),
		StartedAt:       now,
	}
}

// IsActive reports whether the player is still an active participant
func (r *Round) IsActive(playerID string) bool {
	return slices.Contains(r.Active, playerID)
}

// InRoster reports whether the player was present at round start
func (r *Round) InRoster(playerID string) bool {
	return slices.Contains(r.Roster, playerID)
}

// PromptFor returns the prompt dealt to the given participant
func (r *Round) PromptFor(playerID string) string {
	if playerID == r.ImpostorID {
		return r.Prompts.Impostor
	}
	return r.Prompts.Common
}

// RemoveParticipant drops the player from the active set. Drawings and votes
// already recorded are kept. It returns false if the player was not active.
func (r *Round) RemoveParticipant(playerID string) bool {
	idx := slices.Index(r.Active, playerID)
	if idx < 0 {
		return false
	}
	r.Active = slices.Delete(r.Active, idx, idx+1)
	return true
}

// CanSubmit reports whether Submit would accept a drawing from playerID
func (r *Round) CanSubmit(playerID string) error {
	if r.Stage != StatusDrawing {
		return ErrInvalidState
	}
	if !r.IsActive(playerID) {
		return ErrNotInRound
	}
	if _, ok := r.Drawings[playerID]; ok {
		return ErrAlreadySubmitted
	}
	return nil
}

// Submit records a drawing for an active participant during DRAWING
func (r *Round) Submit(playerID, artifactURL string, now time.Time) error {
	if err := r.CanSubmit(playerID); err != nil {
		return err
	}

	r.Drawings[playerID] = NewDrawing(playerID, artifactURL, now)
	return nil
}

// Withdraw deletes the caller's drawing so it can be resubmitted
func (r *Round) Withdraw(playerID string) (*Drawing, error) {
	if r.Stage != StatusDrawing {
		return nil, ErrInvalidState
	}
	drawing, ok := r.Drawings[playerID]
	if !ok {
		return nil, ErrNoSubmission
	}

	delete(r.Drawings, playerID)
	return drawing, nil
}

// AllSubmitted reports whether every active participant has a drawing
func (r *Round) AllSubmitted() bool {
	if len(r.Active) == 0 {
		return false
	}
	for _, id := range r.Active {
		if _, ok := r.Drawings[id]; !ok {
			return false
		}
	}
	return true
}

// CastVote records a vote during VOTING. A vote can not be changed once cast.
func (r *Round) CastVote(voterID, targetID string, now time.Time) error {
	if r.Stage != StatusVoting {
		return ErrInvalidState
	}
	if !r.IsActive(voterID) {
		return ErrNotInRound
	}
	if _, ok := r.Votes[voterID]; ok {
		return ErrAlreadyVoted
	}
	if voterID == targetID {
		return ErrCannotVoteSelf
	}
	if !r.InRoster(targetID) {
		return ErrInvalidTarget
	}

	r.Votes[voterID] = NewVote(voterID, targetID, now)
	return nil
}

// AllVoted reports whether every active participant has voted
func (r *Round) AllVoted() bool {
	if len(r.Active) == 0 {
		return false
	}
	for _, id := range r.Active {
		if _, ok := r.Votes[id]; !ok {
			return false
		}
	}
	return true
}

// Tally counts the votes cast so far
func (r *Round) Tally() Tally {
	tally := make(Tally, len(r.Votes))
	for _, v := range r.Votes {
		tally[v.TargetID]++
	}
	return tally
}

// BeginDrawing moves the round from COUNTDOWN to DRAWING
func (r *Round) BeginDrawing() error {
	if !r.Stage.CanTransitionTo(StatusDrawing) {
		return ErrInvalidState
	}
	r.Stage = StatusDrawing
	return nil
}

// BeginVoting moves the round from DRAWING to VOTING. When voting opens before
// the scheduled draw deadline both deadlines are re-anchored on now so the
// full voting window is kept.
func (r *Round) BeginVoting(now time.Time, vote time.Duration) error {
	if !r.Stage.CanTransitionTo(StatusVoting) {
		return ErrInvalidState
	}
	if now.Before(r.DrawDeadline) {
		r.DrawDeadline = now
		r.VoteDeadline = now.Add(vote)
	}
	r.Stage = StatusVoting
	return nil
}

// Finish computes the outcome and moves the round to RESULTS
func (r *Round) Finish(now time.Time) (Outcome, error) {
	if !r.Stage.CanTransitionTo(StatusResults) {
		return Outcome{}, ErrInvalidState
	}

	outcome := DecideOutcome(r.Tally(), r.ImpostorID)
	r.Outcome = &outcome
	r.Stage = StatusResults
	r.EndedAt = now
	return outcome, nil
}

// SubmittedIDs returns the IDs of players with a stored drawing, in roster order
func (r *Round) SubmittedIDs() []string {
	ids := make([]string, 0, len(r.Drawings))
	for _, id := range r.Roster {
		if _, ok := r.Drawings[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
