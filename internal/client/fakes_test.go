package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sketchspy/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

// serverNow is the server clock in the fixtures. It runs 7s ahead of the local clock.
var serverNow = t0.Add(7 * time.Second).UnixMilli()

func event(t *testing.T, seq uint64, typ domain.EventType, payload any) Event {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Event{Type: typ, RoomCode: "ABCDEF", Seq: seq, ServerTime: serverNow, Payload: data}
}

func players(ids ...string) []domain.PlayerInfo {
	out := make([]domain.PlayerInfo, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.PlayerInfo{ID: id, Name: id, IsAdmin: i == 0})
	}
	return out
}

func lobbySnapshot(seq uint64, ids ...string) domain.RoomSnapshot {
	return domain.RoomSnapshot{
		Code:       "ABCDEF",
		Status:     domain.StatusLobby,
		Players:    players(ids...),
		AdminID:    ids[0],
		Settings:   domain.Settings{DrawSeconds: 120, VoteSeconds: 60, MaxPlayers: 8},
		MinPlayers: 3,
		Seq:        seq,
		ServerTime: serverNow,
	}
}

func drawingSnapshot(seq uint64, active []string, ids ...string) domain.RoomSnapshot {
	snap := lobbySnapshot(seq, ids...)
	snap.Status = domain.StatusDrawing
	snap.Round = &domain.RoundView{
		GameID:                 "game-1",
		Stage:                  domain.StatusDrawing,
		ActiveGameParticipants: active,
		Roster:                 active,
		CountdownEndsAt:        serverNow - 10_000,
		VoteStartTime:          serverNow + 90_000,
		VoteDeadline:           serverNow + 150_000,
		Submitted:              []string{},
		StartedAt:              serverNow - 13_000,
	}
	return snap
}

type fakeAPI struct {
	mu         sync.Mutex
	me         *Me
	meErr      error
	snapshots  []domain.RoomSnapshot
	snapErr    error
	leaveGames int
	leaves     int
	onLeave    func()
	join       *JoinResult
}

func (f *fakeAPI) Join(ctx context.Context, roomCode, name, avatar string) (*JoinResult, error) {
	if f.join == nil {
		return nil, domain.ErrRoomNotFound
	}
	return f.join, nil
}

func (f *fakeAPI) Me(ctx context.Context, token string) (*Me, error) {
	return f.me, f.meErr
}

// Snapshot returns the queued snapshots in order and repeats the last one
func (f *fakeAPI) Snapshot(ctx context.Context, roomCode string) (domain.RoomSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.snapErr != nil {
		return domain.RoomSnapshot{}, f.snapErr
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return snap, nil
}

func (f *fakeAPI) LeaveGame(ctx context.Context, token string) error {
	f.mu.Lock()
	f.leaveGames++
	onLeave := f.onLeave
	f.mu.Unlock()

	if onLeave != nil {
		onLeave()
	}
	return nil
}

func (f *fakeAPI) Leave(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	return nil
}

type fakeFeed struct {
	ch     chan Received
	closed bool
	mu     sync.Mutex
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan Received, 32)}
}

func (f *fakeFeed) Events() <-chan Received {
	return f.ch
}

func (f *fakeFeed) push(ev Event) {
	f.ch <- Received{Event: ev, At: t0}
}

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFeed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeDialer struct {
	feed  *fakeFeed
	err   error
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, token, roomCode string) (Feed, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.feed, nil
}
