package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"sketchspy/internal/domain"
)

const (
	inboxSize      = 64
	archiveTimeout = 10 * time.Second
	maxEmojiBytes  = 16
)

// RoundArchive stores finished and aborted rounds
type RoundArchive interface {
	SaveRound(ctx context.Context, rec domain.RoundRecord) error
	RoundHistory(ctx context.Context, roomCode string) ([]domain.RoundRecord, error)
}

// RoomDeps are the collaborators a room actor is built with
type RoomDeps struct {
	Clock   Clock
	Deck    *PromptDeck
	Archive RoundArchive
	Logger  *slog.Logger

	// Pick returns a uniform index in [0, n) and NewID a fresh unique ID.
	Pick  func(n int) int
	NewID func() string

	// OnEmpty runs on the actor goroutine after the last member left.
	OnEmpty func(code string)
}

// RoomActor serializes every mutation of one room through a single goroutine.
// Player calls and deadline callbacks are both delivered as inbox messages.
type RoomActor struct {
	code      string
	createdAt time.Time
	deps      RoomDeps
	logger    *slog.Logger
	events    *Broadcaster

	inbox     chan func()
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	members atomic.Int32

	// Owned by the run loop.
	room       *domain.Room
	generation uint64
	seq        uint64
	timer      phaseTimer
	closing    bool
}

// NewRoomActor creates a room and starts its actor goroutine
func NewRoomActor(code string, limits domain.Limits, deps RoomDeps) *RoomActor {
	now := deps.Clock.Now()
	logger := deps.Logger.With("roomCode", code)

	a := &RoomActor{
		code:      code,
		createdAt: now,
		deps:      deps,
		logger:    logger,
		events:    NewBroadcaster(DefaultSubscriberBuffer, logger),
		inbox:     make(chan func(), inboxSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		room:      domain.NewRoom(code, limits, now),
		timer:     phaseTimer{clock: deps.Clock},
	}

	go a.run()

	return a
}

// Code returns the room code
func (a *RoomActor) Code() string {
	return a.code
}

// CreatedAt returns when the room was created
func (a *RoomActor) CreatedAt() time.Time {
	return a.createdAt
}

// PlayerCount returns the current membership without entering the actor
func (a *RoomActor) PlayerCount() int {
	return int(a.members.Load())
}

// Done is closed once the actor has stopped
func (a *RoomActor) Done() <-chan struct{} {
	return a.done
}

// Close stops the actor and closes all subscriptions
func (a *RoomActor) Close() {
	a.closeOnce.Do(func() { close(a.stop) })
	<-a.done
}

func (a *RoomActor) run() {
	defer func() {
		a.timer.cancel()
		a.events.Close()
		close(a.done)
	}()

	for {
		select {
		case <-a.stop:
			return
		case msg := <-a.inbox:
			msg()
			if a.closing {
				return
			}
		}
	}
}

// do runs fn on the actor goroutine and waits for its result. A call whose
// context ends before the actor reaches it is dropped without running fn, so
// an error returned here always means the room was left untouched.
func (a *RoomActor) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	msg := func() {
		if err := ctx.Err(); err != nil {
			reply <- err
			return
		}
		reply <- fn()
	}

	select {
	case a.inbox <- msg:
	case <-a.done:
		return domain.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once queued the outcome is decided by the actor, not by ctx.
	select {
	case err := <-reply:
		return err
	case <-a.done:
		select {
		case err := <-reply:
			return err
		default:
			return domain.ErrRoomNotFound
		}
	}
}

// post delivers a message from outside a caller's request, e.g. a deadline
func (a *RoomActor) post(msg func()) {
	select {
	case a.inbox <- msg:
	case <-a.done:
	}
}

func (a *RoomActor) emit(eventType domain.EventType, payload any) {
	a.seq++
	a.events.Publish(domain.NewEvent(eventType, a.code, a.seq, a.deps.Clock.Now(), payload))
}

func (a *RoomActor) schedule(at time.Time, stage domain.Status) {
	d := deadline{generation: a.generation, stage: stage}
	a.timer.schedule(at, func() {
		a.post(func() { a.onDeadline(d) })
	})
}

func (a *RoomActor) onDeadline(d deadline) {
	round := a.room.CurrentRound
	if d.generation != a.generation || round == nil || round.Stage != d.stage {
		a.logger.Debug("stale deadline ignored",
			"generation", d.generation,
			"currentGeneration", a.generation,
			"stage", d.stage,
		)
		return
	}

	switch d.stage {
	case domain.StatusCountdown:
		a.beginDrawing()
	case domain.StatusDrawing:
		a.beginVoting()
	case domain.StatusVoting:
		a.finishRound()
	}
}

// Subscribe registers a subscriber. Only events emitted after this call are delivered.
func (a *RoomActor) Subscribe(ctx context.Context) (*Subscription, error) {
	var sub *Subscription
	err := a.do(ctx, func() error {
		sub = a.events.Subscribe()
		return nil
	})
	return sub, err
}

// Join adds a new player. The first player becomes admin.
func (a *RoomActor) Join(ctx context.Context, name, avatar string) (domain.PlayerInfo, error) {
	var info domain.PlayerInfo
	err := a.do(ctx, func() error {
		player := domain.NewPlayer(a.deps.NewID(), name, avatar, a.deps.Clock.Now())
		if err := a.room.AddPlayer(player); err != nil {
			return err
		}
		a.members.Store(int32(len(a.room.Players)))

		info = player.ToInfo()
		a.emit(domain.EventPlayerJoined, &domain.PlayerJoinedPayload{Player: info})
		a.logger.Info("player joined", "playerID", player.ID)
		return nil
	})
	return info, err
}

// Leave removes the player from the room
func (a *RoomActor) Leave(ctx context.Context, playerID string) error {
	return a.do(ctx, func() error {
		return a.removeMember(playerID, false)
	})
}

// Kick removes target on behalf of the admin. Kicking yourself is a leave.
func (a *RoomActor) Kick(ctx context.Context, byID, targetID string) error {
	return a.do(ctx, func() error {
		if !a.room.IsAdmin(byID) {
			return domain.ErrNotAuthorized
		}
		if !a.room.IsMember(targetID) {
			return domain.ErrInvalidTarget
		}
		return a.removeMember(targetID, targetID != byID)
	})
}

// LeaveGame drops the player from the current round but keeps room membership
func (a *RoomActor) LeaveGame(ctx context.Context, playerID string) error {
	return a.do(ctx, func() error {
		round := a.room.CurrentRound
		if !a.room.IsMember(playerID) || round == nil || !round.IsActive(playerID) {
			return domain.ErrNotInRound
		}
		a.leaveRound(playerID)
		return nil
	})
}

func (a *RoomActor) removeMember(playerID string, kicked bool) error {
	if !a.room.IsMember(playerID) {
		return domain.ErrPlayerNotFound
	}

	a.leaveRound(playerID)

	if _, err := a.room.RemovePlayer(playerID); err != nil {
		return err
	}
	a.members.Store(int32(len(a.room.Players)))

	payload := &domain.PlayerLeftPayload{PlayerID: playerID, Kicked: kicked}
	if admin := a.room.Admin(); admin != nil {
		payload.AdminID = admin.ID
	}
	a.emit(domain.EventPlayerLeft, payload)
	a.logger.Info("player left", "playerID", playerID, "kicked", kicked)

	if len(a.room.Players) == 0 {
		a.closing = true
		if a.deps.OnEmpty != nil {
			a.deps.OnEmpty(a.code)
		}
	}
	return nil
}

// leaveRound removes an active participant and re-evaluates the round
func (a *RoomActor) leaveRound(playerID string) {
	round := a.room.CurrentRound
	if round == nil || !round.RemoveParticipant(playerID) {
		return
	}

	a.emit(domain.EventPlayerLeftGame, &domain.PlayerLeftGamePayload{
		PlayerID:               playerID,
		GameID:                 round.ID,
		ActiveGameParticipants: append([]string(nil), round.Active...),
	})

	if len(round.Active) == 0 {
		a.endRound(domain.EndReasonAllLeft)
		return
	}
	a.checkCompletion()
}

func (a *RoomActor) checkCompletion() {
	round := a.room.CurrentRound
	switch {
	case round == nil:
	case round.Stage == domain.StatusDrawing && round.AllSubmitted():
		a.beginVoting()
	case round.Stage == domain.StatusVoting && round.AllVoted():
		a.finishRound()
	}
}

// UpdateAvatar changes the caller's avatar descriptor
func (a *RoomActor) UpdateAvatar(ctx context.Context, playerID, avatar string) error {
	return a.do(ctx, func() error {
		player, err := a.room.Player(playerID)
		if err != nil {
			return err
		}
		player.Avatar = avatar
		a.emit(domain.EventAvatarUpdated, &domain.AvatarUpdatedPayload{PlayerID: playerID, Avatar: avatar})
		return nil
	})
}

// UpdateSettings applies a settings patch while in LOBBY
func (a *RoomActor) UpdateSettings(ctx context.Context, byID string, patch domain.SettingsPatch) (domain.Settings, error) {
	var settings domain.Settings
	err := a.do(ctx, func() error {
		if !a.room.IsAdmin(byID) {
			return domain.ErrNotAuthorized
		}
		if err := a.room.UpdateSettings(patch); err != nil {
			return err
		}
		settings = a.room.Settings
		a.emit(domain.EventSettingsUpdated, &domain.SettingsUpdatedPayload{Settings: settings})
		return nil
	})
	return settings, err
}

// Start begins a round: COUNTDOWN now, DRAWING once the countdown elapses
func (a *RoomActor) Start(ctx context.Context, byID string) error {
	return a.do(ctx, func() error {
		if !a.room.IsAdmin(byID) {
			return domain.ErrNotAuthorized
		}
		if err := a.room.CanStart(); err != nil {
			return err
		}

		prompts, err := a.deps.Deck.Draw(a.room.UsedPrompts())
		if err != nil {
			return err
		}

		round, err := a.room.StartRound(a.deps.NewID(), prompts, a.deps.Clock.Now(), a.deps.Pick)
		if err != nil {
			return err
		}
		a.generation++

		a.emit(domain.EventGameCountdown, &domain.GameCountdownPayload{
			GameID:  round.ID,
			StartAt: round.CountdownEndsAt.UnixMilli(),
			Seconds: int(a.room.Limits.Countdown / time.Second),
		})
		a.schedule(round.CountdownEndsAt, domain.StatusCountdown)

		a.logger.Info("round started",
			"gameID", round.ID,
			"participants", len(round.Roster),
			"generation", a.generation,
		)
		return nil
	})
}

func (a *RoomActor) beginDrawing() {
	round := a.room.CurrentRound
	if err := round.BeginDrawing(); err != nil {
		a.logger.Error("failed to begin drawing", "error", err)
		return
	}

	a.emit(domain.EventGameStarted, &domain.GameStartedPayload{
		GameID:                 round.ID,
		DrawSeconds:            a.room.Settings.DrawSeconds,
		VoteSeconds:            a.room.Settings.VoteSeconds,
		VoteStartTime:          round.DrawDeadline.UnixMilli(),
		VoteDeadline:           round.VoteDeadline.UnixMilli(),
		ActiveGameParticipants: append([]string(nil), round.Active...),
	})
	a.schedule(round.DrawDeadline, domain.StatusDrawing)
}

func (a *RoomActor) beginVoting() {
	round := a.room.CurrentRound
	if err := round.BeginVoting(a.deps.Clock.Now(), a.room.Settings.VoteDuration()); err != nil {
		a.logger.Error("failed to begin voting", "error", err)
		return
	}

	a.emit(domain.EventDiscussStarted, &domain.DiscussStartedPayload{
		GameID:       round.ID,
		VoteSeconds:  a.room.Settings.VoteSeconds,
		VoteDeadline: round.VoteDeadline.UnixMilli(),
	})
	a.schedule(round.VoteDeadline, domain.StatusVoting)
}

func (a *RoomActor) finishRound() {
	round := a.room.CurrentRound
	outcome, err := round.Finish(a.deps.Clock.Now())
	if err != nil {
		a.logger.Error("failed to finish round", "error", err)
		return
	}
	a.timer.cancel()

	a.emit(domain.EventShowResults, &domain.ShowResultsPayload{
		GameID:     round.ID,
		Winner:     outcome.Winner,
		ImpostorID: outcome.ImpostorID,
		VotedOutID: outcome.VotedOutID,
		Tally:      outcome.Tally,
		Prompts:    round.Prompts,
	})
	a.archiveRound(domain.RecordOf(a.code, round, ""))

	a.logger.Info("round finished", "gameID", round.ID, "winner", outcome.Winner)
}

// endRound aborts or clears the current round and returns the room to LOBBY
func (a *RoomActor) endRound(reason domain.EndReason) {
	round := a.room.CurrentRound
	if round == nil {
		return
	}

	inProgress := round.Stage.InProgress()
	a.clearRound()

	if inProgress {
		a.archiveRound(domain.RecordOf(a.code, round, reason))
	}
	a.emit(domain.EventGameEnded, &domain.GameEndedPayload{GameID: round.ID, Reason: reason})

	a.logger.Info("round ended", "gameID", round.ID, "reason", reason)
}

// clearRound drops the current round and invalidates its pending deadline
func (a *RoomActor) clearRound() {
	a.generation++
	a.timer.cancel()
	a.room.ClearRound(a.deps.Clock.Now())
}

// Prompt returns the caller's own prompt while drawing
func (a *RoomActor) Prompt(ctx context.Context, playerID string) (string, error) {
	var prompt string
	err := a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil || round.Stage != domain.StatusDrawing || !round.IsActive(playerID) {
			return domain.ErrNotInRound
		}
		prompt = round.PromptFor(playerID)
		return nil
	})
	return prompt, err
}

// SubmitDrawing stores the caller's drawing reference. The last missing
// submission opens voting immediately.
func (a *RoomActor) SubmitDrawing(ctx context.Context, playerID, artifactURL string) error {
	return a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil {
			return domain.ErrInvalidState
		}
		if err := round.Submit(playerID, artifactURL, a.deps.Clock.Now()); err != nil {
			return err
		}

		a.emit(domain.EventDrawingUploaded, &domain.DrawingUploadedPayload{
			PlayerID:       playerID,
			SubmittedCount: len(round.Drawings),
			ActiveCount:    len(round.Active),
		})
		a.checkCompletion()
		return nil
	})
}

// WithdrawDrawing deletes the caller's submission and returns its artifact URL
func (a *RoomActor) WithdrawDrawing(ctx context.Context, playerID string) (string, error) {
	var url string
	err := a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil {
			return domain.ErrInvalidState
		}
		drawing, err := round.Withdraw(playerID)
		if err != nil {
			return err
		}
		url = drawing.ArtifactURL
		return nil
	})
	return url, err
}

// CastVote records a vote and publishes the full tally
func (a *RoomActor) CastVote(ctx context.Context, voterID, targetID string) error {
	return a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil {
			return domain.ErrInvalidState
		}
		if err := round.CastVote(voterID, targetID, a.deps.Clock.Now()); err != nil {
			return err
		}

		tally := round.Tally()
		a.emit(domain.EventVoteUpdate, &domain.VoteUpdatePayload{
			Tally:      tally,
			VotedCount: tally.Total(),
		})
		a.checkCompletion()
		return nil
	})
}

// FinishVoting closes voting early on the admin's request
func (a *RoomActor) FinishVoting(ctx context.Context, byID string) error {
	return a.do(ctx, func() error {
		if !a.room.IsAdmin(byID) {
			return domain.ErrNotAuthorized
		}
		if a.room.Status() != domain.StatusVoting {
			return domain.ErrInvalidState
		}
		a.finishRound()
		return nil
	})
}

// Reset returns the room to LOBBY, aborting a round that has not reached results
func (a *RoomActor) Reset(ctx context.Context, byID string) error {
	return a.do(ctx, func() error {
		if !a.room.IsAdmin(byID) {
			return domain.ErrNotAuthorized
		}

		if round := a.room.CurrentRound; round != nil && round.Stage.InProgress() {
			a.endRound(domain.EndReasonAdminReset)
		} else {
			a.clearRound()
		}

		a.emit(domain.EventRoomReset, &domain.RoomResetPayload{Settings: a.room.Settings})
		return nil
	})
}

// React broadcasts an emoji reaction while a round exists
func (a *RoomActor) React(ctx context.Context, playerID, targetID, emoji string) error {
	if emoji == "" || len(emoji) > maxEmojiBytes {
		return domain.ErrInvalidInput
	}

	return a.do(ctx, func() error {
		if !a.room.IsMember(playerID) {
			return domain.ErrPlayerNotFound
		}
		if !a.room.IsMember(targetID) {
			return domain.ErrInvalidTarget
		}
		if a.room.CurrentRound == nil {
			return domain.ErrInvalidState
		}
		a.emit(domain.EventReaction, &domain.ReactionPayload{PlayerID: playerID, TargetID: targetID, Emoji: emoji})
		return nil
	})
}

// ExpireRound aborts a round that has been running longer than maxAge
func (a *RoomActor) ExpireRound(ctx context.Context, maxAge time.Duration) (bool, error) {
	expired := false
	err := a.do(ctx, func() error {
		round := a.room.CurrentRound
		if round == nil || !round.Stage.InProgress() {
			return nil
		}
		if a.deps.Clock.Now().Sub(round.StartedAt) <= maxAge {
			return nil
		}
		a.endRound(domain.EndReasonTimer)
		expired = true
		return nil
	})
	return expired, err
}

func (a *RoomActor) archiveRound(rec domain.RoundRecord) {
	if a.deps.Archive == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := a.deps.Archive.SaveRound(ctx, rec); err != nil {
			a.logger.Error("failed to archive round", "gameID", rec.GameID, "error", err)
		}
	}()
}
