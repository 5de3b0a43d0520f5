package domain

import "time"

const (
	MinDrawSeconds = 15
	MaxDrawSeconds = 300
	MinVoteSeconds = 15
	MaxVoteSeconds = 180
)

// Settings holds the admin-configurable parameters of a room
type Settings struct {
	DrawSeconds int `json:"drawSeconds"`
	VoteSeconds int `json:"voteSeconds"`
	MaxPlayers  int `json:"maxPlayers"`
}

// Limits are the process-wide bounds applied to room settings
type Limits struct {
	MinPlayers  int
	MaxPlayers  int
	Countdown   time.Duration
	DrawSeconds int
	VoteSeconds int
}

// DefaultLimits returns the stock player bounds and round timings.
func DefaultLimits() Limits {
	return Limits{
		MinPlayers:  3,
		MaxPlayers:  8,
		Countdown:   3 * time.Second,
		DrawSeconds: 120,
		VoteSeconds: 60,
	}
}

// DefaultSettings returns the settings a fresh room starts with
func DefaultSettings(limits Limits) Settings {
	return Settings{
		DrawSeconds: clamp(limits.DrawSeconds, MinDrawSeconds, MaxDrawSeconds),
		VoteSeconds: clamp(limits.VoteSeconds, MinVoteSeconds, MaxVoteSeconds),
		MaxPlayers:  limits.MaxPlayers,
	}
}

// DrawDuration returns the drawing window
func (s Settings) DrawDuration() time.Duration {
	return time.Duration(s.DrawSeconds) * time.Second
}

// VoteDuration returns the voting window
func (s Settings) VoteDuration() time.Duration {
	return time.Duration(s.VoteSeconds) * time.Second
}

// SettingsPatch carries a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	DrawSeconds *int `json:"drawSeconds,omitempty"`
	VoteSeconds *int `json:"voteSeconds,omitempty"`
	MaxPlayers  *int `json:"maxPlayers,omitempty"`
}

// Apply returns s with the patch applied and every value clamped to its bounds.
func (p SettingsPatch) Apply(s Settings, limits Limits) Settings {
	if p.DrawSeconds != nil {
		s.DrawSeconds = clamp(*p.DrawSeconds, MinDrawSeconds, MaxDrawSeconds)
	}
	if p.VoteSeconds != nil {
		s.VoteSeconds = clamp(*p.VoteSeconds, MinVoteSeconds, MaxVoteSeconds)
	}
	if p.MaxPlayers != nil {
		s.MaxPlayers = clamp(*p.MaxPlayers, limits.MinPlayers, limits.MaxPlayers)
	}
	return s
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
