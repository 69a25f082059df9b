package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizmatch-service/internal/app"
	"quizmatch-service/internal/domain"
	"quizmatch-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketTurnFlow(t *testing.T) {
	service := newTestService(t)
	match := pairPlayers(t, service)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := fmt.Sprintf("ws%s/ws?matchId=%s&userId=%s",
		server.URL[len("http"):], match.ID, match.CurrentTurnPlayer)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial state push.
	msgType, payload := readNext(conn, t, "state")
	if msgType != "state" || payload["id"] != match.ID {
		t.Fatalf("expected initial state for %s, got %s %v", match.ID, msgType, payload)
	}

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId":  "q1",
			"answerId":    "q1-a1",
			"isCorrect":   true,
			"roundNumber": 1,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// The receipt and the hub's state push both arrive; order is not fixed.
	answerSeen := false
	stateSeen := false
	for i := 0; i < 3; i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "answerResult":
			answerSeen = true
			if payload["alreadyAnswered"] != false {
				t.Fatalf("fresh answer flagged as replay: %v", payload)
			}
		case "state":
			stateSeen = true
		}
		if answerSeen && stateSeen {
			break
		}
	}
	if !answerSeen || !stateSeen {
		t.Fatalf("expected answerResult and state, got answerResult=%v state=%v", answerSeen, stateSeen)
	}

	endTurn := map[string]any{
		"type":    "endTurn",
		"payload": map[string]any{"roundScore": 10},
	}
	if err := conn.WriteJSON(endTurn); err != nil {
		t.Fatalf("write endTurn: %v", err)
	}

	turnEndedSeen := false
	for i := 0; i < 3; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "turnEnded" {
			turnEndedSeen = true
			if payload["currentTurnPlayer"] == match.CurrentTurnPlayer {
				t.Fatalf("turn did not flip: %v", payload)
			}
			break
		}
	}
	if !turnEndedSeen {
		t.Fatalf("never saw turnEnded")
	}

	// Out of turn now; the service error comes back over the socket.
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	for i := 0; i < 3; i++ {
		typ, _ := readNext(conn, t, "")
		if typ == "error" {
			return
		}
	}
	t.Fatalf("expected an error message for the out-of-turn answer")
}

func TestWebSocketRejectsNonParticipant(t *testing.T) {
	service := newTestService(t)
	match := pairPlayers(t, service)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := fmt.Sprintf("ws%s/ws?matchId=%s&userId=stranger", server.URL[len("http"):], match.ID)
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected the upgrade to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func newTestService(t *testing.T) *app.MatchService {
	t.Helper()
	store := memory.NewMatchStore()
	catalog := memory.NewCatalog(memory.NewStaticCatalogSource(sampleQuizzes()), time.Minute)
	return app.NewMatchService(store, catalog, memory.NewViewCache(), app.NewMatchHub(), domain.DefaultRules())
}

func pairPlayers(t *testing.T, service *app.MatchService) domain.Match {
	t.Helper()
	ctx := context.Background()
	if _, err := service.JoinMatchmaking(ctx, "u1", "Science"); err != nil {
		t.Fatalf("join: %v", err)
	}
	result, err := service.JoinMatchmaking(ctx, "u2", "Science")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !result.Matched {
		t.Fatalf("expected a match, got %+v", result)
	}
	match, err := service.Match(ctx, "u2", result.MatchID)
	if err != nil {
		t.Fatalf("match lookup: %v", err)
	}
	return match
}

func sampleQuizzes() map[string]domain.Quiz {
	quiz := domain.Quiz{ID: "quiz-1", Title: "Science Sampler", Category: "Science"}
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("q%d", i)
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:   id,
			Text: fmt.Sprintf("Question %d", i),
			Answers: []domain.Answer{
				{ID: id + "-a1", Text: "Right", IsCorrect: true},
				{ID: id + "-a2", Text: "Wrong"},
			},
		})
	}
	return map[string]domain.Quiz{"quiz-1": quiz}
}
