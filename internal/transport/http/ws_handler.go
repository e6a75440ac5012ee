package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"quiz-arena-service/internal/app"
	"quiz-arena-service/internal/domain"
	"github.com/gorilla/websocket"
)

const leaderboardSize = 10

type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	PlayerName string `json:"playerName"`
	BetAmount  int    `json:"betAmount"`
}

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	BetAmount  int    `json:"betAmount"`
}

type startGamePayload struct {
	RoomID string `json:"roomId"`
}

type submitAnswerPayload struct {
	RoomID      string `json:"roomId"`
	Answer      int    `json:"answer"`
	TimeTakenMs int    `json:"timeTakenMs"`
}

type roomPayload struct {
	RoomID  string          `json:"roomId"`
	Players []domain.Player `json:"players"`
}

type leaderboardPayload struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the room
// use cases. Each connection is one player; the player id is connection
// scoped and opaque to the core.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	playerID := newPlayerID()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// subscribe pumps one room's broadcasts into the shared send channel.
	// The updates channel closes when the subscription is cancelled or the
	// room is deleted.
	subscribe := func(updates <-chan domain.Event) {
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			for {
				select {
				case ev, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
	}

	currentRoomID := ""
	var cancelSub func()

	// A finished room may have been reclaimed while this connection idled;
	// forget it so the player can create or join again.
	refreshRoomState := func() {
		if currentRoomID == "" {
			return
		}
		if _, ok := h.service.GetRoom(currentRoomID); !ok {
			currentRoomID = ""
			cancelSub = nil
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "createRoom":
			var payload createRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("INVALID_INPUT", "invalid createRoom payload")
				continue
			}
			refreshRoomState()
			if currentRoomID != "" {
				send <- errorMessage("INVALID_INPUT", "already in a room")
				continue
			}
			name, err := validatePlayerName(payload.PlayerName)
			if err != nil {
				send <- errorMessage("INVALID_INPUT", "player name must be 2-20 characters")
				continue
			}
			if err := validateBetAmount(payload.BetAmount); err != nil {
				send <- errorMessage("INVALID_INPUT", "bet amount must be between 0 and 10000")
				continue
			}
			room, err := h.service.CreateRoom(playerID, name, payload.BetAmount)
			if err != nil {
				send <- errorMessage("INVALID_INPUT", err.Error())
				continue
			}
			updates, cancel, err := h.service.Subscribe(room.ID())
			if err != nil {
				send <- errorMessage("INVALID_INPUT", err.Error())
				continue
			}
			currentRoomID = room.ID()
			cancelSub = cancel
			subscribe(updates)
			snap := room.Snapshot()
			send <- outboundMessage[any]{Type: "roomCreated", Payload: roomPayload{RoomID: snap.ID, Players: snap.Players}}
			log.Printf("room created: %s by %s", snap.ID, name)

		case "joinRoom":
			var payload joinRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("JOIN_FAILED", "invalid joinRoom payload")
				continue
			}
			refreshRoomState()
			if currentRoomID != "" {
				send <- errorMessage("JOIN_FAILED", "already in a room")
				continue
			}
			name, err := validatePlayerName(payload.PlayerName)
			if err != nil {
				send <- errorMessage("INVALID_INPUT", "player name must be 2-20 characters")
				continue
			}
			if err := validateBetAmount(payload.BetAmount); err != nil {
				send <- errorMessage("INVALID_INPUT", "bet amount must be between 0 and 10000")
				continue
			}
			if err := validateRoomID(payload.RoomID); err != nil {
				send <- errorMessage("INVALID_INPUT", "room id must be 6 uppercase alphanumerics")
				continue
			}
			room, err := h.service.JoinRoom(payload.RoomID, playerID, name, payload.BetAmount)
			if err != nil {
				send <- errorMessage("JOIN_FAILED", err.Error())
				continue
			}
			updates, cancel, err := h.service.Subscribe(room.ID())
			if err != nil {
				send <- errorMessage("JOIN_FAILED", err.Error())
				continue
			}
			currentRoomID = room.ID()
			cancelSub = cancel
			subscribe(updates)
			snap := room.Snapshot()
			send <- outboundMessage[any]{Type: "roomJoined", Payload: roomPayload{RoomID: snap.ID, Players: snap.Players}}
			log.Printf("%s joined room: %s", name, snap.ID)

		case "startGame":
			var payload startGamePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("START_FAILED", "invalid startGame payload")
				continue
			}
			if err := h.service.StartGame(payload.RoomID); err != nil {
				send <- errorMessage("START_FAILED", startFailureMessage(err))
				continue
			}
			send <- outboundMessage[any]{Type: "startAck", Payload: startGamePayload{RoomID: payload.RoomID}}

		case "submitAnswer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			result, graded, err := h.service.SubmitAnswer(payload.RoomID, playerID, payload.Answer, payload.TimeTakenMs)
			if err != nil || !graded {
				// Out-of-phase submissions are a benign race, not an error.
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}

		case "fetchLeaderboard":
			entries, err := h.service.TopLeaderboard(r.Context(), leaderboardSize)
			if err != nil {
				send <- errorMessage("LEADERBOARD_FAILED", err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "leaderboard", Payload: leaderboardPayload{Entries: entries}}

		default:
			send <- errorMessage("INVALID_INPUT", "unsupported message type")
		}
	}

	if cancelSub != nil {
		cancelSub()
	}
	if roomID, ok := h.service.Disconnect(playerID); ok {
		log.Printf("player %s disconnected from room %s", playerID, roomID)
	}

	close(closeSignals)
	forwarders.Wait()
	close(send)
	<-writerDone
}

func errorMessage(code, message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: message}}
}

func startFailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotEnoughPlayers):
		return "at least 2 players are required"
	case errors.Is(err, domain.ErrWrongRoomStatus):
		return "game already started"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room not found"
	default:
		return err.Error()
	}
}

func newPlayerID() string {
	return fmt.Sprintf("player_%d_%08x", time.Now().UnixNano(), rand.Uint32())
}
