package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"quiz-arena-service/internal/domain"
)

const (
	maxPlayers = 4
	minPlayers = 2

	roomIDLength   = 6
	roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RoomStore abstracts how live rooms are kept (in-memory, Redis-marked, etc).
type RoomStore interface {
	// Create inserts the room under id and reports false when the id is
	// already taken, so callers can retry on collision.
	Create(id string, room *Room) bool
	Get(id string) (*Room, bool)
	Delete(id string)
	All() []*Room
	Count() int
}

// LeaderboardRepository persists accumulated scores across games.
type LeaderboardRepository interface {
	Record(ctx context.Context, entries []domain.LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// Options tune the pacing of a game. Zero values fall back to the defaults
// used in production; tests shrink them to keep runs fast.
type Options struct {
	CountdownTicks int           // gameStarting ticks before play begins
	TickInterval   time.Duration // cadence of countdown and clock ticks
	GameDuration   int           // seconds on the game clock
	QuestionDelay  time.Duration // pause between an answer and the next question
	FastAnswer     time.Duration // answers under this earn a bonus point
	CleanupGrace   time.Duration // finished rooms linger this long for result viewing
	StaleAge       time.Duration // finished rooms older than this are reclaimed
}

// DefaultOptions returns the production pacing.
func DefaultOptions() Options {
	return Options{
		CountdownTicks: 5,
		TickInterval:   time.Second,
		GameDuration:   120,
		QuestionDelay:  2 * time.Second,
		FastAnswer:     10 * time.Second,
		CleanupGrace:   30 * time.Second,
		StaleAge:       time.Hour,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.CountdownTicks == 0 {
		o.CountdownTicks = def.CountdownTicks
	}
	if o.TickInterval == 0 {
		o.TickInterval = def.TickInterval
	}
	if o.GameDuration == 0 {
		o.GameDuration = def.GameDuration
	}
	if o.QuestionDelay == 0 {
		o.QuestionDelay = def.QuestionDelay
	}
	if o.FastAnswer == 0 {
		o.FastAnswer = def.FastAnswer
	}
	if o.CleanupGrace == 0 {
		o.CleanupGrace = def.CleanupGrace
	}
	if o.StaleAge == 0 {
		o.StaleAge = def.StaleAge
	}
	return o
}

// RoomService contains the room lifecycle use cases: registry operations,
// the waiting/countdown/playing/finished state machine, and settlement.
type RoomService struct {
	rooms       RoomStore
	leaderboard LeaderboardRepository
	gen         *QuestionGenerator
	opts        Options
	now         func() time.Time

	idMu  sync.Mutex
	idRnd *rand.Rand
}

func NewRoomService(store RoomStore, leaderboard LeaderboardRepository, opts Options) *RoomService {
	return NewRoomServiceWithClock(store, leaderboard, opts, time.Now)
}

// NewRoomServiceWithClock is test-only for deterministic timestamps.
func NewRoomServiceWithClock(store RoomStore, leaderboard LeaderboardRepository, opts Options, now func() time.Time) *RoomService {
	return &RoomService{
		rooms:       store,
		leaderboard: leaderboard,
		gen:         NewQuestionGenerator(),
		opts:        opts.withDefaults(),
		now:         now,
		idRnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom allocates a fresh room with the creator as host.
func (s *RoomService) CreateRoom(playerID, playerName string, betAmount int) (*Room, error) {
	host := domain.Player{ID: playerID, Name: playerName, BetAmount: betAmount}

	// Collisions are probabilistically negligible at 6 chars over 36
	// symbols, but uniqueness is still checked, never assumed.
	for attempt := 0; attempt < 100; attempt++ {
		id := s.newRoomID()
		room := newRoom(id, host, s.now())
		if s.rooms.Create(id, room) {
			return room, nil
		}
	}
	return nil, fmt.Errorf("allocate room id: too many collisions")
}

// JoinRoom adds a player to a waiting room and broadcasts the new roster.
func (s *RoomService) JoinRoom(roomID, playerID, playerName string, betAmount int) (*Room, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	player := domain.Player{ID: playerID, Name: playerName, BetAmount: betAmount}
	if _, err := room.join(player); err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom looks up a live room by id.
func (s *RoomService) GetRoom(roomID string) (*Room, bool) {
	return s.rooms.Get(roomID)
}

// Subscribe returns a channel receiving this room's broadcasts. The caller
// must invoke cancel; the channel also closes when the room is deleted.
func (s *RoomService) Subscribe(roomID string) (<-chan domain.Event, func(), error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.subscribe()
	return ch, cancel, nil
}

// StartGame moves a waiting room with enough players into the countdown.
func (s *RoomService) StartGame(roomID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.status != domain.StatusWaiting {
		return domain.ErrWrongRoomStatus
	}
	if len(room.players) < minPlayers {
		return domain.ErrNotEnoughPlayers
	}

	room.status = domain.StatusCountdown
	room.countdownLeft = s.opts.CountdownTicks
	room.broadcastLocked(domain.Event{
		Type:    domain.EventGameStarting,
		Payload: domain.GameStartingPayload{Countdown: room.countdownLeft},
	})
	room.countdownTimer = time.AfterFunc(s.opts.TickInterval, func() { s.countdownTick(roomID) })
	return nil
}

// countdownTick fires once per tick interval while the room counts down.
// Like every timer callback it re-resolves the room by id and verifies
// liveness before touching anything.
func (s *RoomService) countdownTick(roomID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.status != domain.StatusCountdown {
		return
	}

	room.countdownLeft--
	room.broadcastLocked(domain.Event{
		Type:    domain.EventGameStarting,
		Payload: domain.GameStartingPayload{Countdown: room.countdownLeft},
	})
	if room.countdownLeft > 0 {
		room.countdownTimer = time.AfterFunc(s.opts.TickInterval, func() { s.countdownTick(roomID) })
		return
	}
	room.countdownTimer = nil
	s.beginPlayLocked(room)
}

// beginPlayLocked transitions countdown -> playing: it arms the game clock
// and publishes the first question. Caller holds room.mu.
func (s *RoomService) beginPlayLocked(room *Room) {
	room.status = domain.StatusPlaying
	room.timeRemaining = s.opts.GameDuration
	room.questionNumber = 1
	room.awaitingNext = false
	q := s.gen.Generate(room.questionNumber)
	room.currentQuestion = &q

	room.broadcastLocked(domain.Event{
		Type: domain.EventGameStarted,
		Payload: domain.GameStartedPayload{
			Question:       q.Prompt,
			Options:        q.Options,
			Timer:          room.timeRemaining,
			QuestionNumber: room.questionNumber,
		},
	})
	roomID := room.id
	room.clockTimer = time.AfterFunc(s.opts.TickInterval, func() { s.clockTick(roomID) })
}

// clockTick decrements the game clock once per second and finishes the game
// when it reaches zero.
func (s *RoomService) clockTick(roomID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.status != domain.StatusPlaying {
		return
	}

	room.timeRemaining--
	room.broadcastLocked(domain.Event{
		Type: domain.EventTimerUpdate,
		Payload: domain.TimerUpdatePayload{
			TimeLeft: room.timeRemaining,
			Display:  domain.FormatClock(room.timeRemaining),
		},
	})
	if room.timeRemaining > 0 {
		room.clockTimer = time.AfterFunc(s.opts.TickInterval, func() { s.clockTick(roomID) })
		return
	}
	room.clockTimer = nil
	s.finishLocked(room)
}

// finishLocked runs settlement, publishes results and schedules the deferred
// room deletion. Caller holds room.mu.
func (s *RoomService) finishLocked(room *Room) {
	room.status = domain.StatusFinished
	room.currentQuestion = nil
	room.awaitingNext = false
	if room.advanceTimer != nil {
		room.advanceTimer.Stop()
		room.advanceTimer = nil
	}

	players := room.playersLocked()
	results := Settle(players)
	room.broadcastLocked(domain.Event{
		Type:    domain.EventGameEnded,
		Payload: domain.GameEndedPayload{Results: results, Players: players},
	})

	roomID := room.id
	room.cleanupTimer = time.AfterFunc(s.opts.CleanupGrace, func() { s.RemoveRoom(roomID) })
	go s.recordScores(players)
}

// SubmitAnswer grades an answer against the active question. Submissions out
// of phase (not playing, or a next question already pending) are silently
// ignored: a benign race between clients, not an error. The bool reports
// whether the submission was graded.
func (s *RoomService) SubmitAnswer(roomID, playerID string, answer, timeTakenMs int) (domain.AnswerResult, bool, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.AnswerResult{}, false, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.status != domain.StatusPlaying || room.awaitingNext || room.currentQuestion == nil {
		return domain.AnswerResult{}, false, nil
	}

	var player *domain.Player
	for _, p := range room.players {
		if p.ID == playerID {
			player = p
			break
		}
	}
	if player == nil {
		return domain.AnswerResult{}, false, domain.ErrPlayerNotFound
	}

	question := room.currentQuestion
	correct := answer == question.Correct
	if correct {
		points := 1
		if time.Duration(timeTakenMs)*time.Millisecond < s.opts.FastAnswer {
			points = 2
		}
		player.Score += points
	}

	room.broadcastLocked(domain.Event{
		Type:    domain.EventScoreboard,
		Payload: domain.ScoreboardPayload{Players: room.playersLocked()},
	})

	room.awaitingNext = true
	room.advanceTimer = time.AfterFunc(s.opts.QuestionDelay, func() { s.advanceQuestion(roomID) })

	return domain.AnswerResult{
		IsCorrect:     correct,
		CorrectAnswer: question.Correct,
		PlayerAnswer:  answer,
		NewScore:      player.Score,
	}, true, nil
}

// advanceQuestion publishes the next question after the post-answer delay,
// provided the room is still playing.
func (s *RoomService) advanceQuestion(roomID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || room.status != domain.StatusPlaying {
		return
	}

	room.advanceTimer = nil
	room.questionNumber++
	q := s.gen.Generate(room.questionNumber)
	room.currentQuestion = &q
	room.awaitingNext = false

	room.broadcastLocked(domain.Event{
		Type: domain.EventNewQuestion,
		Payload: domain.NewQuestionPayload{
			Question:       q.Prompt,
			Options:        q.Options,
			QuestionNumber: room.questionNumber,
		},
	})
}

// LeaveRoom removes a player, reassigning the host as needed, and deletes the
// room entirely when it empties.
func (s *RoomService) LeaveRoom(roomID, playerID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	_, remaining, err := room.removePlayer(playerID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		s.RemoveRoom(roomID)
	}
	return nil
}

// Disconnect removes the player from whatever room they occupy.
func (s *RoomService) Disconnect(playerID string) (string, bool) {
	for _, room := range s.rooms.All() {
		if room.hasPlayer(playerID) {
			roomID := room.ID()
			_ = s.LeaveRoom(roomID, playerID)
			return roomID, true
		}
	}
	return "", false
}

// RemoveRoom deletes a room, cancelling every outstanding timer and closing
// all subscriber channels before the registry entry disappears.
func (s *RoomService) RemoveRoom(roomID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	room.shutdown()
	s.rooms.Delete(roomID)
}

// ReclaimStale deletes finished rooms older than the configured age and
// returns how many were removed.
func (s *RoomService) ReclaimStale() int {
	now := s.now()
	reclaimed := 0
	for _, room := range s.rooms.All() {
		snap := room.Snapshot()
		if snap.Status == domain.StatusFinished && now.Sub(snap.CreatedAt) > s.opts.StaleAge {
			s.RemoveRoom(snap.ID)
			reclaimed++
			log.Printf("reclaimed stale room: %s", snap.ID)
		}
	}
	return reclaimed
}

// RunReclaimLoop sweeps for stale rooms until the context is cancelled.
func (s *RoomService) RunReclaimLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.ReclaimStale()
		case <-ctx.Done():
			return
		}
	}
}

// Stats returns a monitoring snapshot for one room.
func (s *RoomService) Stats(roomID string) (domain.RoomStats, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.RoomStats{}, domain.ErrRoomNotFound
	}
	snap := room.Snapshot()

	totalBet := 0
	for _, p := range snap.Players {
		totalBet += p.BetAmount
	}
	return domain.RoomStats{
		ID:             snap.ID,
		PlayerCount:    len(snap.Players),
		Status:         snap.Status,
		TimeRemaining:  snap.TimeRemaining,
		QuestionNumber: snap.QuestionNumber,
		TotalBet:       totalBet,
		CreatedAt:      snap.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// ActiveRooms reports the number of live rooms.
func (s *RoomService) ActiveRooms() int {
	return s.rooms.Count()
}

// TopLeaderboard returns the highest accumulated scores across games.
func (s *RoomService) TopLeaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if s.leaderboard == nil {
		return nil, nil
	}
	return s.leaderboard.Top(ctx, n)
}

// recordScores persists final scores best-effort; a leaderboard outage never
// affects gameplay.
func (s *RoomService) recordScores(players []domain.Player) {
	if s.leaderboard == nil {
		return
	}
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.LeaderboardEntry{Name: p.Name, Score: p.Score})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.leaderboard.Record(ctx, entries); err != nil {
		log.Printf("record leaderboard: %v", err)
	}
}

func (s *RoomService) newRoomID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id := make([]byte, roomIDLength)
	for i := range id {
		id[i] = roomIDAlphabet[s.idRnd.Intn(len(roomIDAlphabet))]
	}
	return string(id)
}
