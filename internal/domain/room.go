package domain

import (
	"slices"
	"time"
)

// Room is a group of players sharing one game at a time.
type Room struct {
	Code         string    `json:"code"`
	Players      []*Player `json:"players"` // join order
	Settings     Settings  `json:"settings"`
	Limits       Limits    `json:"-"`
	CurrentRound *Round    `json:"currentRound,omitempty"`
	History      []*Round  `json:"history"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewRoom creates an empty room
func NewRoom(code string, limits Limits, now time.Time) *Room {
	return &Room{
		Code:      code,
		Players:   make([]*Player, 0, limits.MaxPlayers),
		Settings:  DefaultSettings(limits),
		Limits:    limits,
		History:   make([]*Round, 0),
		CreatedAt: now,
	}
}

// Status is derived from the current round and nothing else
func (r *Room) Status() Status {
	if r.CurrentRound == nil {
		return StatusLobby
	}
	return r.CurrentRound.Stage
}

// AddPlayer appends a player. The first player becomes admin.
func (r *Room) AddPlayer(p *Player) error {
	if len(r.Players) >= r.Settings.MaxPlayers {
		return ErrRoomFull
	}

	p.IsAdmin = len(r.Players) == 0
	r.Players = append(r.Players, p)
	return nil
}

// RemovePlayer removes a player from membership. If the admin leaves, the
// longest-tenured remaining player is promoted.
func (r *Room) RemovePlayer(playerID string) (*Player, error) {
	idx := slices.IndexFunc(r.Players, func(p *Player) bool { return p.ID == playerID })
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}

	removed := r.Players[idx]
	r.Players = slices.Delete(r.Players, idx, idx+1)

	if removed.IsAdmin && len(r.Players) > 0 {
		r.Players[0].IsAdmin = true
	}
	removed.IsAdmin = false

	return removed, nil
}

// Player returns a member by ID
func (r *Room) Player(playerID string) (*Player, error) {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// IsMember reports whether the player belongs to the room
func (r *Room) IsMember(playerID string) bool {
	_, err := r.Player(playerID)
	return err == nil
}

// Admin returns the current admin, or nil for an empty room
func (r *Room) Admin() *Player {
	for _, p := range r.Players {
		if p.IsAdmin {
			return p
		}
	}
	return nil
}

// IsAdmin checks if the given player is the admin
func (r *Room) IsAdmin(playerID string) bool {
	p, err := r.Player(playerID)
	return err == nil && p.IsAdmin
}

// PlayerIDs returns member IDs in join order
func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

// PlayerInfoList returns the public view of every member in join order
func (r *Room) PlayerInfoList() []PlayerInfo {
	players := make([]PlayerInfo, len(r.Players))
	for i, p := range r.Players {
		players[i] = p.ToInfo()
	}
	return players
}

// CanStart checks the start preconditions other than admin identity
func (r *Room) CanStart() error {
	if r.Status() != StatusLobby {
		return ErrInvalidState
	}
	if len(r.Players) < r.Limits.MinPlayers {
		return ErrNotEnoughPlayers
	}
	return nil
}

// StartRound snapshots current membership as the round's participants
func (r *Room) StartRound(id string, prompts PromptPair, now time.Time, pick func(n int) int) (*Round, error) {
	if err := r.CanStart(); err != nil {
		return nil, err
	}

	timings := RoundTimings{
		Countdown: r.Limits.Countdown,
		Draw:      r.Settings.DrawDuration(),
		Vote:      r.Settings.VoteDuration(),
	}
	r.CurrentRound = NewRound(id, prompts, r.PlayerIDs(), timings, now, pick)
	return r.CurrentRound, nil
}

// ClearRound drops the current round reference. Rounds that were started are
// kept in History.
func (r *Room) ClearRound(now time.Time) *Round {
	round := r.CurrentRound
	if round == nil {
		return nil
	}
	if round.EndedAt.IsZero() {
		round.EndedAt = now
	}
	r.History = append(r.History, round)
	r.CurrentRound = nil
	return round
}

// UsedPrompts lists the prompt pairs of finished rounds
func (r *Room) UsedPrompts() []PromptPair {
	used := make([]PromptPair, len(r.History))
	for i, round := range r.History {
		used[i] = round.Prompts
	}
	return used
}

// UpdateSettings applies a patch while the room is in LOBBY
func (r *Room) UpdateSettings(patch SettingsPatch) error {
	if r.Status() != StatusLobby {
		return ErrInvalidState
	}
	r.Settings = patch.Apply(r.Settings, r.Limits)
	return nil
}
