package redis

import (
	"context"
	"testing"

	"quiz-arena-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLeaderboardAccumulatesScores(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	lb := NewLeaderboard(newClient(mr))

	if err := lb.Record(ctx, []domain.LeaderboardEntry{
		{Name: "Alice", Score: 3},
		{Name: "Bob", Score: 5},
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := lb.Record(ctx, []domain.LeaderboardEntry{{Name: "Alice", Score: 4}}); err != nil {
		t.Fatalf("record: %v", err)
	}

	top, err := lb.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].Name != "Alice" || top[0].Score != 7 || top[1].Name != "Bob" || top[1].Score != 5 {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}

	top, err = lb.Top(ctx, 1)
	if err != nil {
		t.Fatalf("top 1: %v", err)
	}
	if len(top) != 1 || top[0].Name != "Alice" {
		t.Fatalf("expected only the leader, got %+v", top)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
