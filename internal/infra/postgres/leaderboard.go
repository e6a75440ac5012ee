package postgres

import (
	"context"
	"fmt"

	"quiz-arena-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Leaderboard persists accumulated scores in Postgres.
type Leaderboard struct {
	pool *pgxpool.Pool
}

func NewLeaderboard(pool *pgxpool.Pool) *Leaderboard {
	return &Leaderboard{pool: pool}
}

func (l *Leaderboard) Record(ctx context.Context, entries []domain.LeaderboardEntry) error {
	for _, e := range entries {
		_, err := l.pool.Exec(ctx, `
			INSERT INTO leaderboard (name, score) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET score = leaderboard.score + EXCLUDED.score`,
			e.Name, e.Score)
		if err != nil {
			return fmt.Errorf("record score for %s: %w", e.Name, err)
		}
	}
	return nil
}

func (l *Leaderboard) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	rows, err := l.pool.Query(ctx, `SELECT name, score FROM leaderboard ORDER BY score DESC, name ASC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Score); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard rows: %w", err)
	}
	return entries, nil
}
