package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizmatch-service/internal/app"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.MatchService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MatchService) *WSHandler {
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

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	AnswerID    string `json:"answerId"`
	IsCorrect   bool   `json:"isCorrect"`
	RoundNumber int    `json:"roundNumber"`
}

type endTurnPayload struct {
	RoundScore int `json:"roundScore"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the match
// use cases. Participants submit answers and end turns over the socket and
// receive match state pushes, including the opponent's turn handoffs.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	userID := r.URL.Query().Get("userId")
	if matchID == "" || userID == "" {
		http.Error(w, "missing matchId or userId", http.StatusBadRequest)
		return
	}

	match, err := h.service.Match(r.Context(), userID, matchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe(app.MatchTopic(matchID))
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: update.Type, Payload: update.Match}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "state", Payload: match}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			receipt, err := h.service.SubmitAnswer(r.Context(), userID, matchID,
				payload.QuestionID, payload.AnswerID, payload.IsCorrect, payload.RoundNumber)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: receipt}
		case "endTurn":
			var payload endTurnPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid endTurn payload"}}
				continue
			}
			updated, err := h.service.EndPlayerTurn(r.Context(), userID, matchID, payload.RoundScore)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "turnEnded", Payload: updated}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
