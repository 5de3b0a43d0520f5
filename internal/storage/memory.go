package storage

import (
	"context"
	"slices"
	"sync"

	"sketchspy/internal/domain"
)

// MemoryArchive keeps archived rounds in process memory
type MemoryArchive struct {
	mu     sync.RWMutex
	rounds map[string][]domain.RoundRecord
}

// NewMemoryArchive creates an empty archive
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		rounds: make(map[string][]domain.RoundRecord),
	}
}

// SaveRound stores a round. Saving the same game twice keeps the first record.
func (m *MemoryArchive) SaveRound(ctx context.Context, rec domain.RoundRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.rounds[rec.RoomCode]
	if slices.ContainsFunc(existing, func(r domain.RoundRecord) bool { return r.GameID == rec.GameID }) {
		return nil
	}
	m.rounds[rec.RoomCode] = append(existing, rec)
	return nil
}

// RoundHistory returns a room's rounds in start order
func (m *MemoryArchive) RoundHistory(ctx context.Context, roomCode string) ([]domain.RoundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	history := slices.Clone(m.rounds[roomCode])
	slices.SortStableFunc(history, func(a, b domain.RoundRecord) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	if history == nil {
		history = []domain.RoundRecord{}
	}
	return history, nil
}
