package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quizmatch-service/internal/app"
	"quizmatch-service/internal/domain"
)

// MatchmakingHandler exposes the queue and summary operations as JSON
// endpoints. Identity arrives as an explicit userId in the request; session
// extraction is the surrounding infrastructure's job.
type MatchmakingHandler struct {
	service *app.MatchService
}

func NewMatchmakingHandler(service *app.MatchService) *MatchmakingHandler {
	return &MatchmakingHandler{service: service}
}

// Register mounts the handler's routes on the mux.
func (h *MatchmakingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /matchmaking/join", h.join)
	mux.HandleFunc("POST /matchmaking/cancel", h.cancel)
	mux.HandleFunc("GET /matchmaking/entries", h.entries)
	mux.HandleFunc("GET /matches", h.matches)
	mux.HandleFunc("GET /matches/{id}/summary", h.summary)
	mux.HandleFunc("GET /matches/{id}/answers", h.answers)
}

type queueRequest struct {
	UserID   string `json:"userId"`
	Category string `json:"category"`
}

func (h *MatchmakingHandler) join(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.service.JoinMatchmaking(r.Context(), req.UserID, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *MatchmakingHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.CancelMatchmaking(r.Context(), req.UserID, req.Category); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *MatchmakingHandler) entries(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	entries, err := h.service.ListWaitingEntries(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *MatchmakingHandler) matches(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	matches, err := h.service.ListOngoingMatches(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *MatchmakingHandler) summary(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	view, err := h.service.MatchSummary(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *MatchmakingHandler) answers(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	round, err := strconv.Atoi(r.URL.Query().Get("round"))
	if userID == "" || err != nil {
		http.Error(w, "missing userId or round", http.StatusBadRequest)
		return
	}
	result, err := h.service.PlayerAnswers(r.Context(), userID, r.PathValue("id"), round)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMatchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotYourTurn), errors.Is(err, domain.ErrAlreadyQueued), errors.Is(err, domain.ErrMatchFinished):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrNoQuizInCategory):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
