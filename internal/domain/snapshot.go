package domain

import "time"

// RoomSnapshot is the authoritative view a client reconciles against. Seq is
// the sequence number of the last event emitted before the snapshot was taken.
type RoomSnapshot struct {
	Code       string       `json:"code"`
	Status     Status       `json:"status"`
	Players    []PlayerInfo `json:"players"`
	AdminID    string       `json:"adminId,omitempty"`
	Settings   Settings     `json:"settings"`
	MinPlayers int          `json:"minPlayers"`
	Seq        uint64       `json:"seq"`
	ServerTime int64        `json:"serverTime"`
	Round      *RoundView   `json:"round,omitempty"`
}

// RoundView is the public part of the current round. Prompts are only revealed
// once the round reaches RESULTS.
type RoundView struct {
	GameID                 string   `json:"gameId"`
	Stage                  Status   `json:"stage"`
	ActiveGameParticipants []string `json:"activeGameParticipants"`
	Roster                 []string `json:"roster"`
	CountdownEndsAt        int64    `json:"countdownEndsAt"`
	VoteStartTime          int64    `json:"voteStartTime"`
	VoteDeadline           int64    `json:"voteDeadline"`
	Submitted              []string `json:"submitted"`
	VotedCount             int      `json:"votedCount"`
	Tally                  Tally    `json:"tally,omitempty"`
	Result                 *Result  `json:"result,omitempty"`
	StartedAt              int64    `json:"startedAt"`
}

// Result is the public outcome of a finished round
type Result struct {
	GameID     string     `json:"gameId"`
	Winner     Team       `json:"winner"`
	ImpostorID string     `json:"impostorId"`
	VotedOutID *string    `json:"votedOutId"`
	Tally      Tally      `json:"tally"`
	Prompts    PromptPair `json:"prompts"`
}

// ResultOf returns the public result of a round in RESULTS
func ResultOf(r *Round) (*Result, bool) {
	if r == nil || r.Outcome == nil {
		return nil, false
	}
	return &Result{
		GameID:     r.ID,
		Winner:     r.Outcome.Winner,
		ImpostorID: r.ImpostorID,
		VotedOutID: r.Outcome.VotedOutID,
		Tally:      r.Outcome.Tally,
		Prompts:    r.Prompts,
	}, true
}

// Snapshot builds the authoritative room view
func (r *Room) Snapshot(seq uint64, now time.Time) RoomSnapshot {
	snap := RoomSnapshot{
		Code:       r.Code,
		Status:     r.Status(),
		Players:    r.PlayerInfoList(),
		Settings:   r.Settings,
		MinPlayers: r.Limits.MinPlayers,
		Seq:        seq,
		ServerTime: now.UnixMilli(),
	}
	if admin := r.Admin(); admin != nil {
		snap.AdminID = admin.ID
	}

	if round := r.CurrentRound; round != nil {
		view := &RoundView{
			GameID:                 round.ID,
			Stage:                  round.Stage,
			ActiveGameParticipants: append([]string(nil), round.Active...),
			Roster:                 append([]string(nil), round.Roster...),
			CountdownEndsAt:        round.CountdownEndsAt.UnixMilli(),
			VoteStartTime:          round.DrawDeadline.UnixMilli(),
			VoteDeadline:           round.VoteDeadline.UnixMilli(),
			Submitted:              round.SubmittedIDs(),
			VotedCount:             len(round.Votes),
			StartedAt:              round.StartedAt.UnixMilli(),
		}
		if round.Stage == StatusVoting || round.Stage == StatusResults {
			view.Tally = round.Tally()
		}
		view.Result, _ = ResultOf(round)
		snap.Round = view
	}

	return snap
}

// RoundRecord is the read-only archive entry of a round
type RoundRecord struct {
	GameID     string            `json:"gameId"`
	RoomCode   string            `json:"roomCode"`
	Prompts    PromptPair        `json:"prompts"`
	ImpostorID string            `json:"impostorId"`
	Roster     []string          `json:"roster"`
	Drawings   map[string]string `json:"drawings"`
	Votes      map[string]string `json:"votes"`
	Winner     Team              `json:"winner,omitempty"`
	VotedOutID *string           `json:"votedOutId,omitempty"`
	EndReason  EndReason         `json:"endReason,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	EndedAt    time.Time         `json:"endedAt"`
}

// RecordOf builds an archive entry. reason is empty for rounds that reached RESULTS.
func RecordOf(roomCode string, r *Round, reason EndReason) RoundRecord {
	rec := RoundRecord{
		GameID:     r.ID,
		RoomCode:   roomCode,
		Prompts:    r.Prompts,
		ImpostorID: r.ImpostorID,
		Roster:     append([]string(nil), r.Roster...),
		Drawings:   make(map[string]string, len(r.Drawings)),
		Votes:      make(map[string]string, len(r.Votes)),
		EndReason:  reason,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
	}
	for id, d := range r.Drawings {
		rec.Drawings[id] = d.ArtifactURL
	}
	for id, v := range r.Votes {
		rec.Votes[id] = v.TargetID
	}
	if r.Outcome != nil {
		rec.Winner = r.Outcome.Winner
		rec.VotedOutID = r.Outcome.VotedOutID
	}
	return rec
}
