package domain

// Status is the observable state of a room.
type Status string

const (
	StatusLobby     Status = "LOBBY"
	StatusCountdown Status = "COUNTDOWN"
	StatusDrawing   Status = "DRAWING"
	StatusVoting    Status = "VOTING"
	StatusResults   Status = "RESULTS"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// InProgress reports whether a round is running and has not yet reached results.
func (s Status) InProgress() bool {
	return s == StatusCountdown || s == StatusDrawing || s == StatusVoting
}

// CanTransitionTo checks the round stage graph. Any status may fall back to
// LOBBY when the round is aborted or reset.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusLobby {
		return true
	}

	validTransitions := map[Status]Status{
		StatusLobby:     StatusCountdown,
		StatusCountdown: StatusDrawing,
		StatusDrawing:   StatusVoting,
		StatusVoting:    StatusResults,
	}

	next, ok := validTransitions[s]
	return ok && next == target
}

// EndReason explains why a round ended without results.
type EndReason string

const (
	EndReasonAllLeft    EndReason = "all_left"
	EndReasonTimer      EndReason = "timer"
	EndReasonAdminReset EndReason = "admin_reset"
)
