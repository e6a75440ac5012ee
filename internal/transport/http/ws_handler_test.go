package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-arena-service/internal/app"
	"quiz-arena-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.RoomService) {
	t.Helper()
	service := app.NewRoomService(memory.NewRoomStore(), memory.NewLeaderboardStore(), app.Options{
		CountdownTicks: 1,
		TickInterval:   10 * time.Millisecond,
		GameDuration:   3600,
		QuestionDelay:  10 * time.Millisecond,
		FastAnswer:     10 * time.Second,
		CleanupGrace:   time.Minute,
		StaleAge:       time.Hour,
	})
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketGameFlow(t *testing.T) {
	server, _ := newTestServer(t)

	host := dial(t, server)
	writeMessage(t, host, "createRoom", map[string]any{"playerName": "Alice", "betAmount": 10})
	_, created := readUntil(t, host, "roomCreated")
	roomID, _ := created["roomId"].(string)
	if len(roomID) != 6 {
		t.Fatalf("expected 6-char room id, got %q", roomID)
	}

	guest := dial(t, server)
	writeMessage(t, guest, "joinRoom", map[string]any{"roomId": roomID, "playerName": "Bob", "betAmount": 10})
	_, joined := readUntil(t, guest, "roomJoined")
	if players, ok := joined["players"].([]any); !ok || len(players) != 2 {
		t.Fatalf("expected 2 players in roomJoined, got %v", joined["players"])
	}

	// The host sees the roster broadcast.
	readUntil(t, host, "playerJoined")

	writeMessage(t, host, "startGame", map[string]any{"roomId": roomID})
	readUntil(t, host, "startAck")
	_, started := readUntil(t, guest, "gameStarted")
	if started["questionNumber"].(float64) != 1 {
		t.Fatalf("expected question 1, got %v", started["questionNumber"])
	}

	// A wrong answer is graded for the sender and the scoreboard goes to
	// everyone. -1 can never be a generated answer.
	writeMessage(t, guest, "submitAnswer", map[string]any{"roomId": roomID, "answer": -1, "timeTakenMs": 500})
	_, result := readUntil(t, guest, "answerResult")
	if result["isCorrect"].(bool) {
		t.Fatalf("answer -1 cannot be correct")
	}
	readUntil(t, host, "scoreboard")
	readUntil(t, host, "newQuestion")
}

func TestWebSocketValidationErrors(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dial(t, server)
	writeMessage(t, conn, "createRoom", map[string]any{"playerName": "A", "betAmount": 0})
	_, payload := readUntil(t, conn, "error")
	if payload["code"] != "INVALID_INPUT" {
		t.Fatalf("expected INVALID_INPUT, got %v", payload["code"])
	}

	writeMessage(t, conn, "joinRoom", map[string]any{"roomId": "nope", "playerName": "Alice", "betAmount": 0})
	_, payload = readUntil(t, conn, "error")
	if payload["code"] != "INVALID_INPUT" {
		t.Fatalf("expected INVALID_INPUT for bad room id, got %v", payload["code"])
	}

	writeMessage(t, conn, "joinRoom", map[string]any{"roomId": "ZZZZZZ", "playerName": "Alice", "betAmount": 0})
	_, payload = readUntil(t, conn, "error")
	if payload["code"] != "JOIN_FAILED" {
		t.Fatalf("expected JOIN_FAILED for unknown room, got %v", payload["code"])
	}

	writeMessage(t, conn, "startGame", map[string]any{"roomId": "ZZZZZZ"})
	_, payload = readUntil(t, conn, "error")
	if payload["code"] != "START_FAILED" {
		t.Fatalf("expected START_FAILED, got %v", payload["code"])
	}
}

func TestWebSocketDisconnectRemovesPlayer(t *testing.T) {
	server, service := newTestServer(t)

	host := dial(t, server)
	writeMessage(t, host, "createRoom", map[string]any{"playerName": "Alice", "betAmount": 0})
	_, created := readUntil(t, host, "roomCreated")
	roomID := created["roomId"].(string)

	guest := dial(t, server)
	writeMessage(t, guest, "joinRoom", map[string]any{"roomId": roomID, "playerName": "Bob", "betAmount": 0})
	readUntil(t, guest, "roomJoined")

	guest.Close()

	// The guest's departure reaches the host and the registry.
	_, left := readUntil(t, host, "playerLeft")
	if left["leftPlayer"] != "Bob" {
		t.Fatalf("expected Bob to leave, got %v", left["leftPlayer"])
	}
	room, ok := service.GetRoom(roomID)
	if !ok {
		t.Fatalf("room should survive with the host in it")
	}
	if got := len(room.Snapshot().Players); got != 1 {
		t.Fatalf("expected 1 player left, got %d", got)
	}
}

func TestWebSocketFetchLeaderboard(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dial(t, server)
	writeMessage(t, conn, "fetchLeaderboard", map[string]any{})
	msgType, _ := readUntil(t, conn, "leaderboard")
	if msgType != "leaderboard" {
		t.Fatalf("expected leaderboard, got %s", msgType)
	}
}

func writeMessage(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil drains broadcasts until a message of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wanted string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json while waiting for %s: %v", wanted, err)
		}
		if msg.Type == wanted {
			return msg.Type, msg.Payload
		}
	}
	t.Fatalf("gave up waiting for %s", wanted)
	return "", nil
}
