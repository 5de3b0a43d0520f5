package domain

import "time"

// Vote represents a vote cast by a player
type Vote struct {
	VoterID  string    `json:"voterId"`
	TargetID string    `json:"targetId"`
	CastAt   time.Time `json:"castAt"`
}

// NewVote creates a new vote
func NewVote(voterID, targetID string, at time.Time) *Vote {
	return &Vote{
		VoterID:  voterID,
		TargetID: targetID,
		CastAt:   at,
	}
}

// Tally maps a target player ID to the number of votes received
type Tally map[string]int

// Total returns the sum of all counts
func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Leader returns the target with the strictly highest count.
// It returns false on a tie for first place or when no votes were cast.
func (t Tally) Leader() (string, bool) {
	leader := ""
	best := 0
	tied := false

	for id, n := range t {
		switch {
		case n > best:
			leader, best, tied = id, n, false
		case n == best:
			tied = true
		}
	}

	if best == 0 || tied {
		return "", false
	}
	return leader, true
}

// Outcome is the finalized result of a round
type Outcome struct {
	Winner     Team    `json:"winner"`
	ImpostorID string  `json:"impostorId"`
	VotedOutID *string `json:"votedOutId"`
	Tally      Tally   `json:"tally"`
}

// DecideOutcome applies the tie-break rule: only a strict leader is voted out
// and the artists win only if that leader is the impostor.
func DecideOutcome(tally Tally, impostorID string) Outcome {
	outcome := Outcome{
		Winner:     TeamImpostor,
		ImpostorID: impostorID,
		Tally:      tally,
	}

	if leader, ok := tally.Leader(); ok {
		outcome.VotedOutID = &leader
		if leader == impostorID {
			outcome.Winner = TeamArtists
		}
	}

	return outcome
}
