package domain

import "time"

// Player is a member of a room. IDs are issued by the server and never reused.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewPlayer creates a new player with the given ID and display name
func NewPlayer(id, name, avatar string, joinedAt time.Time) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Avatar:   avatar,
		JoinedAt: joinedAt,
	}
}

// PlayerInfo is the public view of a player
type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	JoinedAt int64  `json:"joinedAt"`
}

// ToInfo converts a Player to PlayerInfo
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:       p.ID,
		Name:     p.Name,
		Avatar:   p.Avatar,
		IsAdmin:  p.IsAdmin,
		JoinedAt: p.JoinedAt.UnixMilli(),
	}
}
