package domain

import "fmt"

// RoomStatus tracks where a room is in its lifecycle. Transitions only move
// forward: waiting -> countdown -> playing -> finished.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusCountdown RoomStatus = "countdown"
	StatusPlaying   RoomStatus = "playing"
	StatusFinished  RoomStatus = "finished"
)

// OperationType identifies the arithmetic operation of a question.
type OperationType string

const (
	OpAddition       OperationType = "addition"
	OpSubtraction    OperationType = "subtraction"
	OpMultiplication OperationType = "multiplication"
)

// Difficulty widens operand ranges as a game progresses.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Player is owned by exactly one room. The ID is connection-scoped and opaque
// to the core.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	BetAmount int    `json:"betAmount"`
	IsHost    bool   `json:"isHost"`
}

// Question is immutable once generated. The correct answer never leaves the
// server; outbound payloads carry only the prompt and options.
type Question struct {
	Prompt     string        `json:"question"`
	Options    []int         `json:"options"`
	Correct    int           `json:"-"`
	Type       OperationType `json:"-"`
	Difficulty Difficulty    `json:"-"`
}

// GameResult captures the settlement computed once at game end.
type GameResult struct {
	Type           string   `json:"type"` // "winner" or "draw"
	Winner         *Player  `json:"winner,omitempty"`
	Winners        []Player `json:"winners"`
	Ranking        []Player `json:"ranking"`
	TotalBet       int      `json:"totalBet"`
	PrizePerWinner int      `json:"prizePerWinner"`
}

// AnswerResult summarizes one submission for the submitting player.
type AnswerResult struct {
	IsCorrect     bool `json:"isCorrect"`
	CorrectAnswer int  `json:"correctAnswer"`
	PlayerAnswer  int  `json:"playerAnswer"`
	NewScore      int  `json:"newScore"`
}

// RoomStats is a lightweight snapshot for monitoring endpoints.
type RoomStats struct {
	ID             string     `json:"id"`
	PlayerCount    int        `json:"playerCount"`
	Status         RoomStatus `json:"status"`
	TimeRemaining  int        `json:"timeRemaining"`
	QuestionNumber int        `json:"questionNumber"`
	TotalBet       int        `json:"totalBet"`
	CreatedAt      string     `json:"createdAt"`
}

// LeaderboardEntry is one row of the persistent leaderboard.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// FormatClock renders a second count as MM:SS for display payloads.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
