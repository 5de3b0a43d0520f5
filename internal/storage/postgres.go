package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sketchspy/internal/domain"
)

const uniqueViolation = "23505"

// PostgresStore archives rounds and serves prompt pairs from Postgres
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and verifies the connection
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// SaveRound archives a round. Re-archiving the same game is a no-op.
func (s *PostgresStore) SaveRound(ctx context.Context, rec domain.RoundRecord) error {
	var endReason *string
	if rec.EndReason != "" {
		reason := string(rec.EndReason)
		endReason = &reason
	}
	var winner *string
	if rec.Winner != "" {
		w := string(rec.Winner)
		winner = &w
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rounds (
			game_id, room_code, common_prompt, impostor_prompt, impostor_id,
			roster, drawings, votes, winner, voted_out_id, end_reason, started_at, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (game_id) DO NOTHING`,
		rec.GameID, rec.RoomCode, rec.Prompts.Common, rec.Prompts.Impostor, rec.ImpostorID,
		rec.Roster, rec.Drawings, rec.Votes, winner, rec.VotedOutID, endReason, rec.StartedAt, rec.EndedAt,
	)
	return wrapErr(err)
}

// RoundHistory returns a room's archived rounds in start order
func (s *PostgresStore) RoundHistory(ctx context.Context, roomCode string) ([]domain.RoundRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT game_id, room_code, common_prompt, impostor_prompt, impostor_id,
			roster, drawings, votes, winner, voted_out_id, end_reason, started_at, ended_at
		FROM rounds
		WHERE room_code = $1
		ORDER BY started_at`, roomCode)
	if err != nil {
		return nil, wrapErr(err)
	}

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RoundRecord, error) {
		var (
			rec       domain.RoundRecord
			winner    *string
			endReason *string
		)
		err := row.Scan(
			&rec.GameID, &rec.RoomCode, &rec.Prompts.Common, &rec.Prompts.Impostor, &rec.ImpostorID,
			&rec.Roster, &rec.Drawings, &rec.Votes, &winner, &rec.VotedOutID, &endReason, &rec.StartedAt, &rec.EndedAt,
		)
		if winner != nil {
			rec.Winner = domain.Team(*winner)
		}
		if endReason != nil {
			rec.EndReason = domain.EndReason(*endReason)
		}
		return rec, err
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	return history, nil
}

// PromptPairs loads every prompt pair
func (s *PostgresStore) PromptPairs(ctx context.Context) ([]domain.PromptPair, error) {
	rows, err := s.pool.Query(ctx, `SELECT common, impostor FROM prompt_pairs ORDER BY id`)
	if err != nil {
		return nil, wrapErr(err)
	}

	pairs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.PromptPair])
	if err != nil {
		return nil, wrapErr(err)
	}
	return pairs, nil
}

// AddPromptPair inserts a new pair
func (s *PostgresStore) AddPromptPair(ctx context.Context, pair domain.PromptPair) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO prompt_pairs (common, impostor) VALUES ($1, $2)`, pair.Common, pair.Impostor)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicatePrompt
	}
	return wrapErr(err)
}

// SeedPromptPairs adds the pairs that are not stored yet and returns how many were new
func (s *PostgresStore) SeedPromptPairs(ctx context.Context, pairs []domain.PromptPair) (int, error) {
	added := 0
	for _, pair := range pairs {
		err := s.AddPromptPair(ctx, pair)
		switch {
		case errors.Is(err, domain.ErrDuplicatePrompt):
		case err != nil:
			return added, err
		default:
			added++
		}
	}
	return added, nil
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
