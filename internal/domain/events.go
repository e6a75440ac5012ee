package domain

// Event is a broadcast delivered to every subscriber of a room. The core
// emits events; the transport layer decides how to frame them on the wire.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types published by the room lifecycle.
const (
	EventPlayerJoined = "playerJoined"
	EventPlayerLeft   = "playerLeft"
	EventGameStarting = "gameStarting"
	EventGameStarted  = "gameStarted"
	EventTimerUpdate  = "timerUpdate"
	EventNewQuestion  = "newQuestion"
	EventScoreboard   = "scoreboard"
	EventGameEnded    = "gameEnded"
)

// PlayerJoinedPayload accompanies EventPlayerJoined.
type PlayerJoinedPayload struct {
	Players   []Player `json:"players"`
	NewPlayer string   `json:"newPlayer"`
}

// PlayerLeftPayload accompanies EventPlayerLeft.
type PlayerLeftPayload struct {
	Players    []Player `json:"players"`
	LeftPlayer string   `json:"leftPlayer"`
}

// GameStartingPayload carries one countdown tick, 5 down to 0.
type GameStartingPayload struct {
	Countdown int `json:"countdown"`
}

// GameStartedPayload carries the first question and the initial clock.
type GameStartedPayload struct {
	Question       string `json:"question"`
	Options        []int  `json:"options"`
	Timer          int    `json:"gameTimer"`
	QuestionNumber int    `json:"questionNumber"`
}

// TimerUpdatePayload is published once per second while playing.
type TimerUpdatePayload struct {
	TimeLeft int    `json:"timeLeft"`
	Display  string `json:"display"`
}

// NewQuestionPayload carries every question after the first.
type NewQuestionPayload struct {
	Question       string `json:"question"`
	Options        []int  `json:"options"`
	QuestionNumber int    `json:"questionNumber"`
}

// ScoreboardPayload is published after every graded submission.
type ScoreboardPayload struct {
	Players []Player `json:"players"`
}

// GameEndedPayload carries the settlement result.
type GameEndedPayload struct {
	Results GameResult `json:"results"`
	Players []Player   `json:"players"`
}
