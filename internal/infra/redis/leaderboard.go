package redis

import (
	"context"
	"fmt"

	"quiz-arena-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "arena:leaderboard"

// Leaderboard accumulates scores in a Redis sorted set, keyed by player name.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) Record(ctx context.Context, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := l.client.Pipeline()
	for _, e := range entries {
		pipe.ZIncrBy(ctx, leaderboardKey, float64(e.Score), e.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record leaderboard: %w", err)
	}
	return nil
}

func (l *Leaderboard) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top leaderboard: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		name, _ := m.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{Name: name, Score: int(m.Score)})
	}
	return entries, nil
}
