package redis

import (
	"context"
	"sync"
	"time"

	"quiz-arena-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// RoomStore is a Redis-aware implementation of app.RoomStore.
// Notes:
//   - Rooms themselves stay in a local in-memory map because they carry live
//     timers and subscriber channels that cannot cross a process boundary.
//   - Redis marks room-id liveness so external tooling can observe active
//     rooms (and could route sticky traffic in a multi-instance setup).
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) Create(id string, room *app.Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; ok {
		return false
	}
	s.rooms[id] = room
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id), "1", s.ttl).Err()
	return true
}

func (s *RoomStore) Get(id string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *RoomStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return
	}
	delete(s.rooms, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *RoomStore) All() []*app.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*app.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *RoomStore) key(id string) string {
	return "arena:room:" + id
}
