package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizmatch-service/internal/app"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.MatchService) {
	t.Helper()
	service := newTestService(t)
	mux := http.NewServeMux()
	NewMatchmakingHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestJoinEndpointPairsPlayers(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/matchmaking/join", map[string]string{"userId": "u1", "category": "Science"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	first := decodeBody[app.MatchmakingResult](t, resp)
	if !first.Queued {
		t.Fatalf("expected queued, got %+v", first)
	}

	resp = postJSON(t, server.URL+"/matchmaking/join", map[string]string{"userId": "u2", "category": "Science"})
	second := decodeBody[app.MatchmakingResult](t, resp)
	if !second.Matched || second.MatchID == "" {
		t.Fatalf("expected a match, got %+v", second)
	}
}

func TestJoinEndpointRejectsDuplicate(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/matchmaking/join", map[string]string{"userId": "u1", "category": "Science"})
	resp.Body.Close()
	resp = postJSON(t, server.URL+"/matchmaking/join", map[string]string{"userId": "u1", "category": "Science"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate entry, got %d", resp.StatusCode)
	}
}

func TestEntriesAndCancelEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/matchmaking/join", map[string]string{"userId": "u1", "category": "Science"})
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/matchmaking/entries?userId=u1")
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	entries := decodeBody[[]map[string]any](t, resp)
	if len(entries) != 1 {
		t.Fatalf("expected one waiting entry, got %+v", entries)
	}

	resp = postJSON(t, server.URL+"/matchmaking/cancel", map[string]string{"userId": "u1", "category": "Science"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/matchmaking/entries?userId=u1")
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	entries = decodeBody[[]map[string]any](t, resp)
	if len(entries) != 0 {
		t.Fatalf("expected no entries after cancel, got %+v", entries)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	server, service := newTestServer(t)
	match := pairPlayers(t, service)

	ctx := context.Background()
	if _, err := service.SubmitAnswer(ctx, match.CurrentTurnPlayer, match.ID, "q1", "q1-a1", true, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	url := fmt.Sprintf("%s/matches/%s/summary?userId=%s", server.URL, match.ID, match.Player1ID)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	view := decodeBody[app.SummaryView](t, resp)
	if view.You.UserID != match.Player1ID || view.You.Score != 10 {
		t.Fatalf("unexpected view %+v", view)
	}

	// Unknown match maps to 404.
	resp, err = http.Get(server.URL + "/matches/none/summary?userId=u1")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAnswersEndpoint(t *testing.T) {
	server, service := newTestServer(t)
	match := pairPlayers(t, service)

	ctx := context.Background()
	turnPlayer := match.CurrentTurnPlayer
	for _, q := range []string{"q1", "q2"} {
		if _, err := service.SubmitAnswer(ctx, turnPlayer, match.ID, q, q+"-a1", true, 1); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	url := fmt.Sprintf("%s/matches/%s/answers?userId=%s&round=1", server.URL, match.ID, turnPlayer)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get answers: %v", err)
	}
	result := decodeBody[app.RoundAnswers](t, resp)
	if len(result.Answers) != 2 || result.RoundScore != 20 {
		t.Fatalf("unexpected answers %+v", result)
	}

	// Non-participants cannot read the ledger.
	url = fmt.Sprintf("%s/matches/%s/answers?userId=stranger&round=1", server.URL, match.ID)
	resp, err = http.Get(url)
	if err != nil {
		t.Fatalf("get answers: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
