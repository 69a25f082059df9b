package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quizmatch-service/internal/app"
	"quizmatch-service/internal/domain"
)

// MatchStore is an in-memory implementation of app.MatchStore for tests and
// the no-database dev mode. A single mutex around InTx stands in for the
// row-level locking the Postgres store gets from the database.
type MatchStore struct {
	mu      sync.Mutex
	nextID  int
	entries map[string]*domain.QueueEntry
	matches map[string]*domain.Match
	answers []domain.PlayerAnswer
	xp      map[string]int
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		entries: make(map[string]*domain.QueueEntry),
		matches: make(map[string]*domain.Match),
		xp:      make(map[string]int),
	}
}

// XP reports a user's accumulated experience points.
func (s *MatchStore) XP(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.xp[userID]
}

func (s *MatchStore) InTx(ctx context.Context, fn func(tx app.MatchTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.clone()
	if err := fn(&memoryTx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *MatchStore) GetMatch(_ context.Context, matchID string) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *MatchStore) AnswersFor(_ context.Context, matchID, userID string, round int) ([]domain.PlayerAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PlayerAnswer
	for _, a := range s.answers {
		if a.MatchID == matchID && a.UserID == userID && a.RoundNumber == round {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MatchStore) AllAnswers(_ context.Context, matchID string) ([]domain.PlayerAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PlayerAnswer
	for _, a := range s.answers {
		if a.MatchID == matchID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MatchStore) ListWaitingEntries(_ context.Context, userID string) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.Status == domain.QueueWaiting {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *MatchStore) ListOngoingMatches(_ context.Context, userID string) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Match
	for _, m := range s.matches {
		if (m.Player1ID == userID || m.Player2ID == userID) && m.Status != domain.MatchWaiting {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MatchStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

type storeState struct {
	nextID  int
	entries map[string]*domain.QueueEntry
	matches map[string]*domain.Match
	answers []domain.PlayerAnswer
	xp      map[string]int
}

// clone and restore give InTx all-or-nothing semantics on rollback.
func (s *MatchStore) clone() storeState {
	state := storeState{
		nextID:  s.nextID,
		entries: make(map[string]*domain.QueueEntry, len(s.entries)),
		matches: make(map[string]*domain.Match, len(s.matches)),
		answers: append([]domain.PlayerAnswer(nil), s.answers...),
		xp:      make(map[string]int, len(s.xp)),
	}
	for id, e := range s.entries {
		copied := *e
		state.entries[id] = &copied
	}
	for id, m := range s.matches {
		copied := *m
		state.matches[id] = &copied
	}
	for id, points := range s.xp {
		state.xp[id] = points
	}
	return state
}

func (s *MatchStore) restore(state storeState) {
	s.nextID = state.nextID
	s.entries = state.entries
	s.matches = state.matches
	s.answers = state.answers
	s.xp = state.xp
}

// memoryTx operates on the store directly; the store mutex is already held
// for the whole transaction.
type memoryTx struct {
	store *MatchStore
}

func (t *memoryTx) WaitingEntry(_ context.Context, userID, category string) (*domain.QueueEntry, error) {
	for _, e := range t.store.entries {
		if e.UserID == userID && e.Category == category && e.Status == domain.QueueWaiting {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) LatestWaitingOpponent(_ context.Context, userID, category string) (*domain.QueueEntry, error) {
	var latest *domain.QueueEntry
	for _, e := range t.store.entries {
		if e.UserID == userID || e.Category != category || e.Status != domain.QueueWaiting {
			continue
		}
		if latest == nil || e.JoinedAt.After(latest.JoinedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (t *memoryTx) InsertQueueEntry(_ context.Context, entry *domain.QueueEntry) error {
	if entry.ID == "" {
		entry.ID = t.store.id("queue")
	}
	copied := *entry
	t.store.entries[entry.ID] = &copied
	return nil
}

func (t *memoryTx) SetQueueStatus(_ context.Context, entryID string, status domain.QueueStatus) error {
	if e, ok := t.store.entries[entryID]; ok {
		e.Status = status
	}
	return nil
}

func (t *memoryTx) InsertMatch(_ context.Context, match *domain.Match) error {
	if match.ID == "" {
		match.ID = t.store.id("match")
	}
	copied := *match
	t.store.matches[match.ID] = &copied
	return nil
}

func (t *memoryTx) MatchForUpdate(_ context.Context, matchID string) (*domain.Match, error) {
	m, ok := t.store.matches[matchID]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (t *memoryTx) UpdateMatch(_ context.Context, match *domain.Match) error {
	copied := *match
	t.store.matches[match.ID] = &copied
	return nil
}

func (t *memoryTx) FindAnswer(_ context.Context, matchID, userID, questionID string, round int) (*domain.PlayerAnswer, error) {
	for _, a := range t.store.answers {
		if a.MatchID == matchID && a.UserID == userID && a.QuestionID == questionID && a.RoundNumber == round {
			copied := a
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) InsertAnswer(_ context.Context, answer *domain.PlayerAnswer) error {
	if answer.ID == "" {
		answer.ID = t.store.id("answer")
	}
	t.store.answers = append(t.store.answers, *answer)
	return nil
}

func (t *memoryTx) CountAnsweredQuestions(_ context.Context, matchID, userID string) (int, error) {
	seen := make(map[string]struct{})
	for _, a := range t.store.answers {
		if a.MatchID == matchID && a.UserID == userID {
			seen[a.QuestionID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (t *memoryTx) AddXP(_ context.Context, userID string, delta int) error {
	t.store.xp[userID] += delta
	return nil
}
