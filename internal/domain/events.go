package domain

import "time"

// EventType represents the type of room event
type EventType string

const (
	EventPlayerJoined    EventType = "PLAYER_JOINED"
	EventPlayerLeft      EventType = "PLAYER_LEFT"
	EventPlayerLeftGame  EventType = "PLAYER_LEFT_GAME"
	EventAvatarUpdated   EventType = "AVATAR_UPDATED"
	EventSettingsUpdated EventType = "SETTINGS_UPDATED"
	EventGameCountdown   EventType = "GAME_COUNTDOWN"
	EventGameStarted     EventType = "GAME_STARTED"
	EventDrawingUploaded EventType = "DRAWING_UPLOADED"
	EventDiscussStarted  EventType = "DISCUSS_STARTED"
	EventVoteUpdate      EventType = "VOTE_UPDATE"
	EventShowResults     EventType = "SHOW_RESULTS"
	EventGameEnded       EventType = "GAME_ENDED"
	EventRoomReset       EventType = "ROOM_RESET"
	EventReaction        EventType = "REACTION"
)

// Event is one entry of a room's broadcast stream. Seq increases by one per
// emitted event within a room; ServerTime is the emission instant in epoch ms.
type Event struct {
	Type       EventType `json:"type"`
	RoomCode   string    `json:"roomCode"`
	Seq        uint64    `json:"seq"`
	ServerTime int64     `json:"serverTime"`
	Payload    any       `json:"payload,omitempty"`
}

// NewEvent creates a new room event stamped with the emission time
func NewEvent(eventType EventType, roomCode string, seq uint64, now time.Time, payload any) Event {
	return Event{
		Type:       eventType,
		RoomCode:   roomCode,
		Seq:        seq,
		ServerTime: now.UnixMilli(),
		Payload:    payload,
	}
}

// Payload types for the events

// PlayerJoinedPayload is sent when a player joins the room
type PlayerJoinedPayload struct {
	Player PlayerInfo `json:"player"`
}

// PlayerLeftPayload is sent when a player leaves or is kicked
type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	AdminID  string `json:"adminId,omitempty"`
	Kicked   bool   `json:"kicked"`
}

// PlayerLeftGamePayload is sent when an active participant leaves the round
type PlayerLeftGamePayload struct {
	PlayerID               string   `json:"playerId"`
	GameID                 string   `json:"gameId"`
	ActiveGameParticipants []string `json:"activeGameParticipants"`
}

// AvatarUpdatedPayload is sent when a player changes avatar
type AvatarUpdatedPayload struct {
	PlayerID string `json:"playerId"`
	Avatar   string `json:"avatar"`
}

// SettingsUpdatedPayload is sent when the admin changes settings
type SettingsUpdatedPayload struct {
	Settings Settings `json:"settings"`
}

// GameCountdownPayload is sent when the admin starts a round
type GameCountdownPayload struct {
	GameID  string `json:"gameId"`
	StartAt int64  `json:"startAt"`
	Seconds int    `json:"seconds"`
}

// GameStartedPayload is sent when drawing begins. It never carries prompts.
type GameStartedPayload struct {
	GameID                 string   `json:"gameId"`
	DrawSeconds            int      `json:"drawSeconds"`
	VoteSeconds            int      `json:"voteSeconds"`
	VoteStartTime          int64    `json:"voteStartTime"`
	VoteDeadline           int64    `json:"voteDeadline"`
	ActiveGameParticipants []string `json:"activeGameParticipants"`
}

// DrawingUploadedPayload is sent when a participant submits a drawing
type DrawingUploadedPayload struct {
	PlayerID       string `json:"playerId"`
	SubmittedCount int    `json:"submittedCount"`
	ActiveCount    int    `json:"activeCount"`
}

// DiscussStartedPayload is sent when voting opens
type DiscussStartedPayload struct {
	GameID       string `json:"gameId"`
	VoteSeconds  int    `json:"voteSeconds"`
	VoteDeadline int64  `json:"voteDeadline"`
}

// VoteUpdatePayload carries the full public tally
type VoteUpdatePayload struct {
	Tally      Tally `json:"tally"`
	VotedCount int   `json:"votedCount"`
}

// ShowResultsPayload is sent when a round reaches RESULTS
type ShowResultsPayload struct {
	GameID     string     `json:"gameId"`
	Winner     Team       `json:"winner"`
	ImpostorID string     `json:"impostorId"`
	VotedOutID *string    `json:"votedOutId"`
	Tally      Tally      `json:"tally"`
	Prompts    PromptPair `json:"prompts"`
}

// GameEndedPayload is sent when a round is aborted
type GameEndedPayload struct {
	GameID string    `json:"gameId"`
	Reason EndReason `json:"reason"`
}

// RoomResetPayload is sent when the admin returns the room to LOBBY
type RoomResetPayload struct {
	Settings Settings `json:"settings"`
}

// ReactionPayload is an emoji reaction from one player to another
type ReactionPayload struct {
	PlayerID string `json:"playerId"`
	TargetID string `json:"targetId"`
	Emoji    string `json:"emoji"`
}
