package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quiz-arena-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LeaderboardStore keeps accumulated scores in process memory. It is the
// default when neither Redis nor Postgres is configured.
type LeaderboardStore struct {
	mu     sync.RWMutex
	scores map[string]int
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{scores: make(map[string]int)}
}

func (s *LeaderboardStore) Record(_ context.Context, entries []domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.scores[e.Name] += e.Score
	}
	return nil
}

func (s *LeaderboardStore) Top(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	entries := make([]domain.LeaderboardEntry, 0, len(s.scores))
	for name, score := range s.scores {
		entries = append(entries, domain.LeaderboardEntry{Name: name, Score: score})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// LeaderboardBackend is the persistent store a cache wraps (e.g. Postgres).
type LeaderboardBackend interface {
	Record(ctx context.Context, entries []domain.LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// CachedLeaderboard caches Top results with TTL to avoid hitting the backing
// store on every fetch.
type CachedLeaderboard struct {
	backend LeaderboardBackend
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.RWMutex
	top   []domain.LeaderboardEntry
	topN  int
	until time.Time
}

func NewCachedLeaderboard(backend LeaderboardBackend, ttl time.Duration) *CachedLeaderboard {
	return &CachedLeaderboard{
		backend: backend,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Record writes through and invalidates the cached snapshot.
func (c *CachedLeaderboard) Record(ctx context.Context, entries []domain.LeaderboardEntry) error {
	if err := c.backend.Record(ctx, entries); err != nil {
		return err
	}
	c.mu.Lock()
	c.top = nil
	c.until = time.Time{}
	c.mu.Unlock()
	return nil
}

func (c *CachedLeaderboard) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	now := c.clock()

	c.mu.RLock()
	if c.topN == n && c.until.After(now) {
		cached := c.top
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("top", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.topN == n && c.until.After(now) {
			cached := c.top
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()

		entries, err := c.backend.Top(ctx, n)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.top = entries
		c.topN = n
		c.until = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func (c *CachedLeaderboard) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
