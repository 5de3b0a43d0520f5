package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"sketchspy/internal/domain"
)

// Reason says why the client is resuming
type Reason int

const (
	// ReasonReload is a fresh start of the client, e.g. a page reload. An
	// active participant gives up its seat in the running round.
	ReasonReload Reason = iota
	// ReasonReconnect is a dropped connection. The player keeps its seat.
	ReasonReconnect
)

func (r Reason) String() string {
	if r == ReasonReload {
		return "reload"
	}
	return "reconnect"
}

// ErrRemoved is returned by Follow once the local player left the room
var ErrRemoved = errors.New("removed from room")

// Options tunes a Reconciler. Zero values pick defaults.
type Options struct {
	Logger   *slog.Logger
	Now      func() time.Time
	MaxAge   time.Duration
	OnChange func(*State)
}

// Reconciler restores and follows the client's view of its room. It owns the
// persisted session, the event feed and the State.
type Reconciler struct {
	api    API
	dialer Dialer
	store  LocalStore
	opts   Options

	mu      sync.Mutex
	session *PersistedSession
	state   *State
	feed    Feed
}

// NewReconciler wires a reconciler to its server API, feed dialer and session store
func NewReconciler(api API, dialer Dialer, store LocalStore, opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultSessionMaxAge
	}
	return &Reconciler{api: api, dialer: dialer, store: store, opts: opts}
}

// State returns a copy of the current state, or nil before a successful resume
func (r *Reconciler) State() *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return nil
	}
	return r.state.Clone()
}

// View returns the screen to show
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return ViewEntry
	}
	return r.state.View()
}

// Enter joins a room, persists the new session and resumes into it
func (r *Reconciler) Enter(ctx context.Context, roomCode, name, avatar string) (View, error) {
	joined, err := r.api.Join(ctx, roomCode, name, avatar)
	if err != nil {
		return ViewEntry, err
	}

	err = r.store.Save(&PersistedSession{
		RoomCode:     joined.RoomCode,
		RoomID:       joined.RoomCode,
		PlayerID:     joined.Player.ID,
		SessionToken: joined.SessionToken,
		IsAdmin:      joined.Player.IsAdmin,
		Timestamp:    r.opts.Now().UnixMilli(),
	})
	if err != nil {
		return ViewEntry, fmt.Errorf("persist session: %w", err)
	}

	return r.Resume(ctx, ReasonReconnect)
}

// Leave leaves the room for good and forgets the session
func (r *Reconciler) Leave(ctx context.Context) error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()

	if session != nil {
		err := r.api.Leave(ctx, session.SessionToken)
		if err != nil && !sessionGone(err) {
			return err
		}
	}
	r.reset()
	return nil
}

// Resume restores the session after a reload or reconnect. It ends in ENTRY
// when there is nothing valid to resume. Transport failures are returned and
// keep the persisted session for another attempt.
func (r *Reconciler) Resume(ctx context.Context, reason Reason) (View, error) {
	logger := r.opts.Logger.With("reason", reason.String())

	session, err := r.store.Load()
	if err != nil || !session.Complete() || session.Expired(r.opts.Now(), r.opts.MaxAge) {
		logger.Debug("no usable session", "error", err)
		r.reset()
		return ViewEntry, nil
	}

	me, err := r.api.Me(ctx, session.SessionToken)
	if err != nil {
		if sessionGone(err) {
			logger.Info("session rejected", "error", err)
			r.reset()
			return ViewEntry, nil
		}
		return ViewEntry, fmt.Errorf("verify session: %w", err)
	}

	feed, err := r.dialer.Dial(ctx, session.SessionToken, me.RoomCode)
	if err != nil {
		return ViewEntry, fmt.Errorf("open feed: %w", err)
	}

	state, err := r.sync(ctx, me.RoomCode, session.PlayerID)
	if err != nil {
		feed.Close()
		if sessionGone(err) {
			r.reset()
			return ViewEntry, nil
		}
		return ViewEntry, err
	}

	if reason == ReasonReload && state.ActiveParticipant() {
		logger.Info("leaving running round after reload", "gameID", state.Round.GameID)
		err := r.api.LeaveGame(ctx, session.SessionToken)
		if err != nil && !errors.Is(err, domain.ErrNotInRound) && !errors.Is(err, domain.ErrInvalidState) {
			feed.Close()
			return ViewEntry, fmt.Errorf("leave round: %w", err)
		}
		if state, err = r.sync(ctx, me.RoomCode, session.PlayerID); err != nil {
			feed.Close()
			return ViewEntry, err
		}
	}

	if state.Removed {
		feed.Close()
		r.reset()
		return ViewEntry, nil
	}

	session.RoomCode = me.RoomCode
	session.IsAdmin = state.IsAdmin()
	session.Timestamp = r.opts.Now().UnixMilli()
	if err := r.store.Save(session); err != nil {
		logger.Warn("failed to persist session", "error", err)
	}

	r.mu.Lock()
	if r.feed != nil {
		r.feed.Close()
	}
	r.session = session
	r.state = state
	r.feed = feed
	r.mu.Unlock()

	r.notify()
	logger.Info("resumed", "roomCode", state.RoomCode, "view", state.View(), "seq", state.Seq())
	return state.View(), nil
}

func (r *Reconciler) sync(ctx context.Context, roomCode, playerID string) (*State, error) {
	snap, err := r.api.Snapshot(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	state := NewState(playerID)
	state.ApplySnapshot(snap, r.opts.Now())
	return state, nil
}

// Follow applies buffered and live events until ctx ends, the feed closes or
// the player is removed. A sequence gap triggers a fresh snapshot.
func (r *Reconciler) Follow(ctx context.Context) error {
	r.mu.Lock()
	feed, state := r.feed, r.state
	r.mu.Unlock()

	if feed == nil || state == nil {
		return ErrNoSnapshot
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-feed.Events():
			if !ok {
				return ErrFeedClosed
			}
			if err := r.apply(ctx, rec); err != nil {
				return err
			}
		}
	}
}

func (r *Reconciler) apply(ctx context.Context, rec Received) error {
	r.mu.Lock()
	state, session := r.state, r.session
	if state == nil {
		r.mu.Unlock()
		return ErrFeedClosed
	}
	wasAdmin := state.IsAdmin()
	err := state.ApplyEvent(rec.Event, rec.At)
	r.mu.Unlock()

	switch {
	case errors.Is(err, ErrSequenceGap):
		r.opts.Logger.Info("resynchronizing", "error", err)
		fresh, err := r.sync(ctx, state.RoomCode, state.PlayerID)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.state = fresh
		state = fresh
		r.mu.Unlock()
	case err != nil:
		r.opts.Logger.Warn("dropping event", "type", rec.Event.Type, "seq", rec.Event.Seq, "error", err)
		return nil
	}

	if state.Removed {
		r.notify()
		r.reset()
		return ErrRemoved
	}

	if state.IsAdmin() != wasAdmin {
		session.IsAdmin = state.IsAdmin()
		session.Timestamp = r.opts.Now().UnixMilli()
		if err := r.store.Save(session); err != nil {
			r.opts.Logger.Warn("failed to persist session", "error", err)
		}
	}

	r.notify()
	return nil
}

// Run resumes and follows, reconnecting with backoff whenever the feed drops
func (r *Reconciler) Run(ctx context.Context, reason Reason) error {
	backoff := time.Second
	for {
		view, err := r.Resume(ctx, reason)
		switch {
		case err != nil:
			r.opts.Logger.Warn("resume failed", "error", err, "retryIn", backoff)
		case view == ViewEntry:
			return ErrNoSession
		default:
			backoff = time.Second
			err = r.Follow(ctx)
			if errors.Is(err, ErrRemoved) || ctx.Err() != nil {
				return err
			}
			r.opts.Logger.Info("feed lost, reconnecting", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
		reason = ReasonReconnect
	}
}

func (r *Reconciler) notify() {
	if r.opts.OnChange == nil {
		return
	}
	if s := r.State(); s != nil {
		r.opts.OnChange(s)
	}
}

func (r *Reconciler) reset() {
	if err := r.store.Clear(); err != nil {
		r.opts.Logger.Warn("failed to clear session", "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.feed != nil {
		r.feed.Close()
	}
	r.session = nil
	r.state = nil
	r.feed = nil
}

// sessionGone reports errors after which the persisted session is useless
func sessionGone(err error) bool {
	return errors.Is(err, domain.ErrInvalidSession) ||
		errors.Is(err, domain.ErrSessionExpired) ||
		errors.Is(err, domain.ErrRoomNotFound) ||
		errors.Is(err, domain.ErrPlayerNotFound)
}
