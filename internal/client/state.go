package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"sketchspy/internal/domain"
)

// View is the screen the client should show
type View string

const (
	ViewEntry     View = "ENTRY"
	ViewLobby     View = "LOBBY"
	ViewCountdown View = "COUNTDOWN"
	ViewDrawing   View = "DRAWING"
	ViewVoting    View = "VOTING"
	ViewResults   View = "RESULTS"
)

const maxReactions = 20

var (
	// ErrNoSnapshot is returned for events applied before any snapshot
	ErrNoSnapshot = errors.New("no snapshot applied")
	// ErrSequenceGap means events were missed and a fresh snapshot is needed
	ErrSequenceGap = errors.New("event sequence gap")
)

// Event is a room event as received over the wire
type Event struct {
	Type       domain.EventType `json:"type"`
	RoomCode   string           `json:"roomCode"`
	Seq        uint64           `json:"seq"`
	ServerTime int64            `json:"serverTime"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
}

// RoundState is the client's picture of the current round. Deadlines are on
// the local clock.
type RoundState struct {
	GameID       string
	Stage        domain.Status
	Active       []string
	Roster       []string
	Submitted    []string
	VotedCount   int
	Tally        domain.Tally
	Result       *domain.Result
	CountdownEnd time.Time
	DrawDeadline time.Time
	VoteDeadline time.Time
}

// Summary is the read-only description shown to a spectator
type Summary struct {
	GameID         string
	Stage          domain.Status
	ActiveCount    int
	SubmittedCount int
	VotedCount     int
	Deadline       time.Time
}

// State is the client state machine. It only changes through ApplySnapshot
// and ApplyEvent.
type State struct {
	PlayerID   string
	RoomCode   string
	Status     domain.Status
	Players    []domain.PlayerInfo
	AdminID    string
	Settings   domain.Settings
	MinPlayers int
	Round      *RoundState
	LastEnded  *domain.GameEndedPayload
	Reactions  []domain.ReactionPayload
	Removed    bool

	seq     uint64
	applied bool
}

// NewState creates the state of a player that has not seen its room yet
func NewState(playerID string) *State {
	return &State{PlayerID: playerID}
}

// Seq returns the sequence number of the last applied snapshot or event
func (s *State) Seq() uint64 {
	return s.seq
}

// Synced reports whether a snapshot has been applied
func (s *State) Synced() bool {
	return s.applied
}

// View derives the screen from the state
func (s *State) View() View {
	if !s.applied || s.Removed {
		return ViewEntry
	}
	// Players outside the running round wait in the lobby with Summary.
	if s.Spectating() {
		return ViewLobby
	}
	switch s.Status {
	case domain.StatusCountdown:
		return ViewCountdown
	case domain.StatusDrawing:
		return ViewDrawing
	case domain.StatusVoting:
		return ViewVoting
	case domain.StatusResults:
		return ViewResults
	default:
		return ViewLobby
	}
}

// IsAdmin reports whether the local player administers the room
func (s *State) IsAdmin() bool {
	return s.PlayerID != "" && s.PlayerID == s.AdminID
}

// ActiveParticipant reports whether the local player plays the running round
func (s *State) ActiveParticipant() bool {
	return s.Round != nil && s.Round.Stage.InProgress() && slices.Contains(s.Round.Active, s.PlayerID)
}

// Spectating reports whether a round runs without the local player
func (s *State) Spectating() bool {
	return s.Round != nil && s.Round.Stage.InProgress() && !slices.Contains(s.Round.Active, s.PlayerID)
}

// Summary returns the spectator view of the running round
func (s *State) Summary() (Summary, bool) {
	if !s.Spectating() {
		return Summary{}, false
	}

	r := s.Round
	sum := Summary{
		GameID:         r.GameID,
		Stage:          r.Stage,
		ActiveCount:    len(r.Active),
		SubmittedCount: len(r.Submitted),
		VotedCount:     r.VotedCount,
	}
	switch r.Stage {
	case domain.StatusCountdown:
		sum.Deadline = r.CountdownEnd
	case domain.StatusDrawing:
		sum.Deadline = r.DrawDeadline
	case domain.StatusVoting:
		sum.Deadline = r.VoteDeadline
	}
	return sum, true
}

// localTime converts a server instant into the local clock using the offset
// observed when the message carrying it arrived
func localTime(receivedAt time.Time, serverTime, serverInstant int64) time.Time {
	return receivedAt.Add(time.Duration(serverInstant-serverTime) * time.Millisecond)
}

// ApplySnapshot replaces the state with the authoritative snapshot received at receivedAt
func (s *State) ApplySnapshot(snap domain.RoomSnapshot, receivedAt time.Time) {
	s.RoomCode = snap.Code
	s.Status = snap.Status
	s.Players = slices.Clone(snap.Players)
	s.AdminID = snap.AdminID
	s.Settings = snap.Settings
	s.MinPlayers = snap.MinPlayers
	s.Removed = !slices.ContainsFunc(snap.Players, func(p domain.PlayerInfo) bool { return p.ID == s.PlayerID })
	s.seq = snap.Seq
	s.applied = true

	s.Round = nil
	if v := snap.Round; v != nil {
		s.Round = &RoundState{
			GameID:       v.GameID,
			Stage:        v.Stage,
			Active:       slices.Clone(v.ActiveGameParticipants),
			Roster:       slices.Clone(v.Roster),
			Submitted:    slices.Clone(v.Submitted),
			VotedCount:   v.VotedCount,
			Tally:        v.Tally,
			Result:       v.Result,
			CountdownEnd: localTime(receivedAt, snap.ServerTime, v.CountdownEndsAt),
			DrawDeadline: localTime(receivedAt, snap.ServerTime, v.VoteStartTime),
			VoteDeadline: localTime(receivedAt, snap.ServerTime, v.VoteDeadline),
		}
	}
}

// ApplyEvent folds one event into the state. Events already reflected in the
// state are ignored; a missing event yields ErrSequenceGap and leaves the state untouched.
func (s *State) ApplyEvent(ev Event, receivedAt time.Time) error {
	if !s.applied {
		return ErrNoSnapshot
	}
	if ev.Seq <= s.seq {
		return nil
	}
	if ev.Seq != s.seq+1 {
		return fmt.Errorf("%w: have %d, got %d", ErrSequenceGap, s.seq, ev.Seq)
	}

	if err := s.apply(ev, receivedAt); err != nil {
		return fmt.Errorf("apply %s #%d: %w", ev.Type, ev.Seq, err)
	}
	s.seq = ev.Seq
	return nil
}

func (s *State) apply(ev Event, receivedAt time.Time) error {
	at := func(serverInstant int64) time.Time {
		return localTime(receivedAt, ev.ServerTime, serverInstant)
	}

	switch ev.Type {
	case domain.EventPlayerJoined:
		var p domain.PlayerJoinedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if !slices.ContainsFunc(s.Players, func(x domain.PlayerInfo) bool { return x.ID == p.Player.ID }) {
			s.Players = append(s.Players, p.Player)
		}
		if p.Player.IsAdmin {
			s.AdminID = p.Player.ID
		}

	case domain.EventPlayerLeft:
		var p domain.PlayerLeftPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Players = slices.DeleteFunc(s.Players, func(x domain.PlayerInfo) bool { return x.ID == p.PlayerID })
		s.AdminID = p.AdminID
		for i := range s.Players {
			s.Players[i].IsAdmin = s.Players[i].ID == p.AdminID
		}
		if s.Round != nil {
			s.Round.Active = slices.DeleteFunc(s.Round.Active, func(id string) bool { return id == p.PlayerID })
		}
		if p.PlayerID == s.PlayerID {
			s.Removed = true
		}

	case domain.EventPlayerLeftGame:
		var p domain.PlayerLeftGamePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if s.Round != nil && s.Round.GameID == p.GameID {
			s.Round.Active = slices.Clone(p.ActiveGameParticipants)
		}

	case domain.EventAvatarUpdated:
		var p domain.AvatarUpdatedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		for i := range s.Players {
			if s.Players[i].ID == p.PlayerID {
				s.Players[i].Avatar = p.Avatar
			}
		}

	case domain.EventSettingsUpdated:
		var p domain.SettingsUpdatedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Settings = p.Settings

	case domain.EventGameCountdown:
		var p domain.GameCountdownPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		ids := make([]string, 0, len(s.Players))
		for _, pl := range s.Players {
			ids = append(ids, pl.ID)
		}
		s.Status = domain.StatusCountdown
		s.LastEnded = nil
		s.Reactions = nil
		s.Round = &RoundState{
			GameID:       p.GameID,
			Stage:        domain.StatusCountdown,
			Active:       ids,
			Roster:       slices.Clone(ids),
			CountdownEnd: at(p.StartAt),
		}

	case domain.EventGameStarted:
		var p domain.GameStartedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if s.Round == nil || s.Round.GameID != p.GameID {
			s.Round = &RoundState{GameID: p.GameID, Roster: slices.Clone(p.ActiveGameParticipants)}
		}
		s.Status = domain.StatusDrawing
		s.Round.Stage = domain.StatusDrawing
		s.Round.Active = slices.Clone(p.ActiveGameParticipants)
		s.Round.DrawDeadline = at(p.VoteStartTime)
		s.Round.VoteDeadline = at(p.VoteDeadline)
		s.Settings.DrawSeconds = p.DrawSeconds
		s.Settings.VoteSeconds = p.VoteSeconds

	case domain.EventDrawingUploaded:
		var p domain.DrawingUploadedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if s.Round != nil && !slices.Contains(s.Round.Submitted, p.PlayerID) {
			s.Round.Submitted = append(s.Round.Submitted, p.PlayerID)
		}

	case domain.EventDiscussStarted:
		var p domain.DiscussStartedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if s.Round == nil {
			return ErrNoSnapshot
		}
		s.Status = domain.StatusVoting
		s.Round.Stage = domain.StatusVoting
		s.Round.Tally = domain.Tally{}
		if s.Round.DrawDeadline.After(receivedAt) {
			s.Round.DrawDeadline = receivedAt
		}
		s.Round.VoteDeadline = at(p.VoteDeadline)

	case domain.EventVoteUpdate:
		var p domain.VoteUpdatePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if s.Round != nil {
			s.Round.Tally = p.Tally
			s.Round.VotedCount = p.VotedCount
		}

	case domain.EventShowResults:
		var p domain.ShowResultsPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if s.Round == nil {
			s.Round = &RoundState{GameID: p.GameID}
		}
		s.Status = domain.StatusResults
		s.Round.Stage = domain.StatusResults
		s.Round.Tally = p.Tally
		s.Round.Result = &domain.Result{
			GameID:     p.GameID,
			Winner:     p.Winner,
			ImpostorID: p.ImpostorID,
			VotedOutID: p.VotedOutID,
			Tally:      p.Tally,
			Prompts:    p.Prompts,
		}

	case domain.EventGameEnded:
		var p domain.GameEndedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Status = domain.StatusLobby
		s.Round = nil
		s.LastEnded = &p

	case domain.EventRoomReset:
		var p domain.RoomResetPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Status = domain.StatusLobby
		s.Round = nil
		s.Settings = p.Settings

	case domain.EventReaction:
		var p domain.ReactionPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Reactions = append(s.Reactions, p)
		if len(s.Reactions) > maxReactions {
			s.Reactions = slices.Delete(s.Reactions, 0, len(s.Reactions)-maxReactions)
		}
	}

	return nil
}

// Clone returns a deep enough copy for readers outside the owning goroutine
func (s *State) Clone() *State {
	cp := *s
	cp.Players = slices.Clone(s.Players)
	cp.Reactions = slices.Clone(s.Reactions)
	if s.Round != nil {
		r := *s.Round
		r.Active = slices.Clone(s.Round.Active)
		r.Roster = slices.Clone(s.Round.Roster)
		r.Submitted = slices.Clone(s.Round.Submitted)
		cp.Round = &r
	}
	return &cp
}
