package app

import (
	"sync"
	"time"

	"quiz-arena-service/internal/domain"
)

// Room is one isolated game session. The registry exclusively owns all Room
// instances; timer callbacks re-resolve rooms by id instead of holding a
// reference across delays.
type Room struct {
	id        string
	createdAt time.Time

	mu              sync.Mutex
	players         []*domain.Player
	status          domain.RoomStatus
	currentQuestion *domain.Question
	questionNumber  int
	timeRemaining   int
	awaitingNext    bool
	countdownLeft   int
	closed          bool
	subscribers     map[chan domain.Event]struct{}

	// Timer handles live on the room so every deletion path can cancel them.
	countdownTimer *time.Timer
	clockTimer     *time.Timer
	advanceTimer   *time.Timer
	cleanupTimer   *time.Timer
}

// RoomSnapshot is a consistent copy of room state for callers outside the
// room's lock.
type RoomSnapshot struct {
	ID              string
	Status          domain.RoomStatus
	Players         []domain.Player
	CurrentQuestion *domain.Question
	QuestionNumber  int
	TimeRemaining   int
	AwaitingNext    bool
	CreatedAt       time.Time
}

func newRoom(id string, host domain.Player, now time.Time) *Room {
	host.IsHost = true
	return &Room{
		id:          id,
		createdAt:   now,
		players:     []*domain.Player{&host},
		status:      domain.StatusWaiting,
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// ID returns the room identifier. It never changes after creation.
func (r *Room) ID() string {
	return r.id
}

// Snapshot copies the room state under the lock.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := RoomSnapshot{
		ID:             r.id,
		Status:         r.status,
		Players:        r.playersLocked(),
		QuestionNumber: r.questionNumber,
		TimeRemaining:  r.timeRemaining,
		AwaitingNext:   r.awaitingNext,
		CreatedAt:      r.createdAt,
	}
	if r.currentQuestion != nil {
		q := *r.currentQuestion
		snap.CurrentQuestion = &q
	}
	return snap
}

// join adds a player while the room is waiting. Re-joining with an id that is
// already present is idempotent.
func (r *Room) join(player domain.Player) ([]domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if p.ID == player.ID {
			return r.playersLocked(), nil
		}
	}
	if r.status != domain.StatusWaiting {
		return nil, domain.ErrRoomNotJoinable
	}
	if len(r.players) >= maxPlayers {
		return nil, domain.ErrRoomFull
	}

	player.IsHost = false
	r.players = append(r.players, &player)
	roster := r.playersLocked()
	r.broadcastLocked(domain.Event{
		Type:    domain.EventPlayerJoined,
		Payload: domain.PlayerJoinedPayload{Players: roster, NewPlayer: player.Name},
	})
	return roster, nil
}

// removePlayer drops a player and reassigns the host flag to the
// earliest-joined remaining player when the host left. It reports the number
// of players left so the caller can delete an emptied room.
func (r *Room) removePlayer(playerID string) (name string, remaining int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return "", len(r.players), domain.ErrPlayerNotFound
	}

	removed := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if removed.IsHost && len(r.players) > 0 {
		r.players[0].IsHost = true
	}

	if len(r.players) > 0 {
		r.broadcastLocked(domain.Event{
			Type:    domain.EventPlayerLeft,
			Payload: domain.PlayerLeftPayload{Players: r.playersLocked(), LeftPlayer: removed.Name},
		})
	}
	return removed.Name, len(r.players), nil
}

func (r *Room) hasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// subscribe registers an event channel for this room. The caller must invoke
// the returned cancel function to avoid leaks; the channel is closed when the
// room shuts down.
func (r *Room) subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) broadcastLocked(ev domain.Event) {
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event rather than block the room on a slow
			// subscriber.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (r *Room) playersLocked() []domain.Player {
	out := make([]domain.Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

// shutdown cancels every outstanding timer and closes all subscriber
// channels. It is called on every deletion path; a live timer referencing a
// deleted room must be impossible.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.stopTimersLocked()
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}

func (r *Room) stopTimersLocked() {
	for _, t := range []*time.Timer{r.countdownTimer, r.clockTimer, r.advanceTimer, r.cleanupTimer} {
		if t != nil {
			t.Stop()
		}
	}
	r.countdownTimer = nil
	r.clockTimer = nil
	r.advanceTimer = nil
	r.cleanupTimer = nil
}
