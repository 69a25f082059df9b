package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"quizmatch-service/internal/domain"
)

// MatchStore persists queue entries, matches, and the answer ledger.
// InTx runs fn atomically; implementations must serialize concurrent
// transactions that touch the same match (row lock or equivalent) so that
// check-then-act sequences cannot interleave.
type MatchStore interface {
	InTx(ctx context.Context, fn func(tx MatchTx) error) error

	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	AnswersFor(ctx context.Context, matchID, userID string, round int) ([]domain.PlayerAnswer, error)
	AllAnswers(ctx context.Context, matchID string) ([]domain.PlayerAnswer, error)
	ListWaitingEntries(ctx context.Context, userID string) ([]domain.QueueEntry, error)
	ListOngoingMatches(ctx context.Context, userID string) ([]domain.Match, error)
}

// MatchTx is the mutation surface available inside a store transaction.
// Lookup methods return nil (not an error) when nothing matches.
type MatchTx interface {
	WaitingEntry(ctx context.Context, userID, category string) (*domain.QueueEntry, error)
	LatestWaitingOpponent(ctx context.Context, userID, category string) (*domain.QueueEntry, error)
	InsertQueueEntry(ctx context.Context, entry *domain.QueueEntry) error
	SetQueueStatus(ctx context.Context, entryID string, status domain.QueueStatus) error

	InsertMatch(ctx context.Context, match *domain.Match) error
	MatchForUpdate(ctx context.Context, matchID string) (*domain.Match, error)
	UpdateMatch(ctx context.Context, match *domain.Match) error

	FindAnswer(ctx context.Context, matchID, userID, questionID string, round int) (*domain.PlayerAnswer, error)
	InsertAnswer(ctx context.Context, answer *domain.PlayerAnswer) error
	CountAnsweredQuestions(ctx context.Context, matchID, userID string) (int, error)

	AddXP(ctx context.Context, userID string, delta int) error
}

// QuizCatalog loads quiz content (from cache/backing store). Read-only.
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error)
	CountQuestions(ctx context.Context, quizID string) (int, error)
}

// ViewCache holds rendered match summaries between mutations. All operations
// are best-effort; a cold or failing cache only costs a recompute.
type ViewCache interface {
	Summary(ctx context.Context, matchID string) (domain.MatchSummary, bool)
	StoreSummary(ctx context.Context, matchID string, summary domain.MatchSummary)
	Invalidate(ctx context.Context, matchID string)
}

// MatchmakingResult is the outcome of a join attempt. Exactly one of Queued
// or Matched is set; pairing failures that leave the entry waiting (no
// opponent, no quiz) are reported through Message, not as errors.
type MatchmakingResult struct {
	Queued  bool   `json:"queued"`
	Matched bool   `json:"matched"`
	MatchID string `json:"matchId,omitempty"`
	Message string `json:"message,omitempty"`
}

// AnswerReceipt reports a ledger append. AlreadyAnswered marks an idempotent
// replay: the returned Answer is the existing row and no score changed.
type AnswerReceipt struct {
	AlreadyAnswered bool                `json:"alreadyAnswered"`
	Answer          domain.PlayerAnswer `json:"answer"`
}

// RoundAnswers is the turn-resume read model: the requester's ledger rows for
// one round plus the derived block score.
type RoundAnswers struct {
	Answers    []domain.PlayerAnswer `json:"answers"`
	RoundScore int                   `json:"roundScore"`
}

// SummaryView is a MatchSummary folded to the requesting viewer's side.
type SummaryView struct {
	MatchID   string               `json:"matchId"`
	QuizTitle string               `json:"quizTitle"`
	Status    domain.MatchStatus   `json:"status"`
	You       domain.PlayerSummary `json:"you"`
	Opponent  domain.PlayerSummary `json:"opponent"`
}

// MatchService owns the matchmaking queue and the match/turn state machine.
// Identity is always an explicit parameter; the service never reaches into
// ambient session state.
type MatchService struct {
	store   MatchStore
	catalog QuizCatalog
	views   ViewCache
	hub     *MatchHub
	rules   domain.Rules
	now     func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewMatchService(store MatchStore, catalog QuizCatalog, views ViewCache, hub *MatchHub, rules domain.Rules) *MatchService {
	return &MatchService{
		store:   store,
		catalog: catalog,
		views:   views,
		hub:     hub,
		rules:   rules,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *MatchService) WithClock(now func() time.Time) *MatchService {
	s.now = now
	return s
}

// Rules exposes the active ruleset to the transport layer.
func (s *MatchService) Rules() domain.Rules {
	return s.rules
}

// Subscribe returns a channel receiving push events for a topic (see
// MatchTopic and UserTopic). The caller must invoke the returned cancel
// function to avoid leaks.
func (s *MatchService) Subscribe(topic string) (<-chan MatchEvent, func()) {
	return s.hub.Subscribe(topic)
}

// JoinMatchmaking inserts a waiting queue entry and attempts pairing exactly
// once, synchronously. The existence check, insert, and pairing all run in one
// transaction. A duplicate waiting entry fails with ErrAlreadyQueued; missing
// opponent or quiz leaves the entry waiting and reports through the result.
func (s *MatchService) JoinMatchmaking(ctx context.Context, userID, category string) (MatchmakingResult, error) {
	var result MatchmakingResult
	err := s.store.InTx(ctx, func(tx MatchTx) error {
		existing, err := tx.WaitingEntry(ctx, userID, category)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyQueued
		}

		entry := &domain.QueueEntry{
			UserID:   userID,
			Category: category,
			JoinedAt: s.now(),
			Status:   domain.QueueWaiting,
		}
		if err := tx.InsertQueueEntry(ctx, entry); err != nil {
			return err
		}

		// Freshest waiting opponent wins the tie-break, not FIFO.
		opponent, err := tx.LatestWaitingOpponent(ctx, userID, category)
		if err != nil {
			return err
		}
		if opponent == nil {
			result = MatchmakingResult{Queued: true, Message: "no opponent currently found"}
			return nil
		}

		quiz, err := s.pickQuiz(ctx, category)
		if errors.Is(err, domain.ErrNoQuizInCategory) {
			result = MatchmakingResult{Queued: true, Message: "no quiz found for this category"}
			return nil
		}
		if err != nil {
			return err
		}

		match := &domain.Match{
			QuizID:            quiz.ID,
			Player1ID:         userID,
			Player2ID:         opponent.UserID,
			CurrentTurnPlayer: userID,
			RoundNumber:       1,
			Status:            domain.MatchInProgress,
			CreatedAt:         s.now(),
		}
		if err := tx.InsertMatch(ctx, match); err != nil {
			return err
		}
		if err := tx.SetQueueStatus(ctx, entry.ID, domain.QueueMatched); err != nil {
			return err
		}
		if err := tx.SetQueueStatus(ctx, opponent.ID, domain.QueueMatched); err != nil {
			return err
		}

		result = MatchmakingResult{Matched: true, MatchID: match.ID}
		return nil
	})
	if err != nil {
		return MatchmakingResult{}, err
	}
	if result.Matched {
		s.notifyPaired(ctx, result.MatchID)
	}
	return result, nil
}

// CancelMatchmaking withdraws the user's waiting entry for a category.
// Idempotent: cancelling a missing or already-cancelled entry succeeds.
func (s *MatchService) CancelMatchmaking(ctx context.Context, userID, category string) error {
	return s.store.InTx(ctx, func(tx MatchTx) error {
		entry, err := tx.WaitingEntry(ctx, userID, category)
		if err != nil || entry == nil {
			return err
		}
		return tx.SetQueueStatus(ctx, entry.ID, domain.QueueCancelled)
	})
}

// ListWaitingEntries returns the user's open queue entries.
func (s *MatchService) ListWaitingEntries(ctx context.Context, userID string) ([]domain.QueueEntry, error) {
	return s.store.ListWaitingEntries(ctx, userID)
}

// ListOngoingMatches returns the user's matches that have left the waiting state.
func (s *MatchService) ListOngoingMatches(ctx context.Context, userID string) ([]domain.Match, error) {
	return s.store.ListOngoingMatches(ctx, userID)
}

// Match returns the match for a participant.
func (s *MatchService) Match(ctx context.Context, userID, matchID string) (domain.Match, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return domain.Match{}, err
	}
	if m == nil {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if !m.IsParticipant(userID) {
		return domain.Match{}, domain.ErrNotAuthorized
	}
	return *m, nil
}

// SubmitAnswer appends one ledger row and folds the reward into the
// submitter's score. Replays of the same (match, user, question, round) are
// benign: the existing row comes back with AlreadyAnswered set and nothing is
// scored twice. The turn check, duplicate check, insert, and score update are
// one transaction.
func (s *MatchService) SubmitAnswer(ctx context.Context, userID, matchID, questionID, answerID string, isCorrect bool, round int) (AnswerReceipt, error) {
	var receipt AnswerReceipt
	err := s.store.InTx(ctx, func(tx MatchTx) error {
		m, err := tx.MatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrMatchNotFound
		}
		if !m.IsParticipant(userID) {
			return domain.ErrNotAuthorized
		}
		if m.CurrentTurnPlayer != userID {
			return domain.ErrNotYourTurn
		}
		if m.Status != domain.MatchInProgress {
			return domain.ErrMatchFinished
		}

		existing, err := tx.FindAnswer(ctx, matchID, userID, questionID, round)
		if err != nil {
			return err
		}
		if existing != nil {
			receipt = AnswerReceipt{AlreadyAnswered: true, Answer: *existing}
			return nil
		}

		answer := &domain.PlayerAnswer{
			MatchID:     matchID,
			UserID:      userID,
			QuestionID:  questionID,
			AnswerID:    answerID,
			IsCorrect:   isCorrect,
			RoundNumber: round,
			CreatedAt:   s.now(),
		}
		if err := tx.InsertAnswer(ctx, answer); err != nil {
			return err
		}

		if isCorrect {
			if m.Player1ID == userID {
				m.Player1Score += s.rules.PointsPerCorrect
			} else {
				m.Player2Score += s.rules.PointsPerCorrect
			}
			if err := tx.UpdateMatch(ctx, m); err != nil {
				return err
			}
		}

		receipt = AnswerReceipt{Answer: *answer}
		return nil
	})
	if err != nil {
		return AnswerReceipt{}, err
	}
	if !receipt.AlreadyAnswered {
		s.views.Invalidate(ctx, matchID)
		s.publishState(ctx, matchID)
	}
	return receipt, nil
}

// PlayerAnswers returns the requester's ledger rows for one round plus the
// derived round score. Clients use it to resume an interrupted turn.
func (s *MatchService) PlayerAnswers(ctx context.Context, userID, matchID string, round int) (RoundAnswers, error) {
	if _, err := s.Match(ctx, userID, matchID); err != nil {
		return RoundAnswers{}, err
	}
	answers, err := s.store.AnswersFor(ctx, matchID, userID, round)
	if err != nil {
		return RoundAnswers{}, err
	}
	return RoundAnswers{
		Answers:    answers,
		RoundScore: domain.RoundScore(answers, s.rules.PointsPerCorrect),
	}, nil
}

// EndPlayerTurn hands the turn to the opponent and applies the round
// boundary and completion rules. The roundScore argument is advisory; scores
// accrued per answer are authoritative. Completion credits each player's
// final score to their xp inside the same transaction.
func (s *MatchService) EndPlayerTurn(ctx context.Context, userID, matchID string, roundScore int) (domain.Match, error) {
	_ = roundScore
	var updated domain.Match
	err := s.store.InTx(ctx, func(tx MatchTx) error {
		m, err := tx.MatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrMatchNotFound
		}
		if !m.IsParticipant(userID) {
			return domain.ErrNotAuthorized
		}
		if m.CurrentTurnPlayer != userID {
			return domain.ErrNotYourTurn
		}
		if m.Status != domain.MatchInProgress {
			return domain.ErrMatchFinished
		}

		next := m.Opponent(m.CurrentTurnPlayer)
		total, err := s.catalog.CountQuestions(ctx, m.QuizID)
		if err != nil {
			return err
		}
		answered, err := tx.CountAnsweredQuestions(ctx, matchID, next)
		if err != nil {
			return err
		}

		nextRound := domain.NextRound(m)
		if domain.MatchShouldEnd(nextRound, s.rules.MaxRounds, answered, total) {
			m.Status = domain.MatchCompleted
			completedAt := s.now()
			m.CompletedAt = &completedAt
			if err := tx.AddXP(ctx, m.Player1ID, m.Player1Score); err != nil {
				return err
			}
			if err := tx.AddXP(ctx, m.Player2ID, m.Player2Score); err != nil {
				return err
			}
		}
		// Turn still flips on completion; it is just no longer actionable.
		m.CurrentTurnPlayer = next
		m.RoundNumber = nextRound
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return err
		}
		updated = *m
		return nil
	})
	if err != nil {
		return domain.Match{}, err
	}
	s.views.Invalidate(ctx, matchID)
	s.publishState(ctx, matchID)
	return updated, nil
}

// CancelMatch aborts a waiting or in-progress match. Participant only.
func (s *MatchService) CancelMatch(ctx context.Context, userID, matchID string) (domain.Match, error) {
	var updated domain.Match
	err := s.store.InTx(ctx, func(tx MatchTx) error {
		m, err := tx.MatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrMatchNotFound
		}
		if !m.IsParticipant(userID) {
			return domain.ErrNotAuthorized
		}
		if m.Status != domain.MatchWaiting && m.Status != domain.MatchInProgress {
			return domain.ErrMatchFinished
		}
		m.Status = domain.MatchCancelled
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return err
		}
		updated = *m
		return nil
	})
	if err != nil {
		return domain.Match{}, err
	}
	s.views.Invalidate(ctx, matchID)
	s.publishState(ctx, matchID)
	return updated, nil
}

// MatchSummary projects the ledger and catalog into the per-player summary,
// folded to the viewer's perspective. Completed summaries are served from the
// view cache when possible.
func (s *MatchService) MatchSummary(ctx context.Context, viewerID, matchID string) (SummaryView, error) {
	summary, ok := s.views.Summary(ctx, matchID)
	if !ok {
		var err error
		summary, err = s.buildSummary(ctx, matchID)
		if err != nil {
			return SummaryView{}, err
		}
		if summary.Status == domain.MatchCompleted {
			s.views.StoreSummary(ctx, matchID, summary)
		}
	}
	you, opponent := summary.Perspective(viewerID)
	return SummaryView{
		MatchID:   summary.MatchID,
		QuizTitle: summary.QuizTitle,
		Status:    summary.Status,
		You:       you,
		Opponent:  opponent,
	}, nil
}

func (s *MatchService) buildSummary(ctx context.Context, matchID string) (domain.MatchSummary, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return domain.MatchSummary{}, err
	}
	if m == nil {
		return domain.MatchSummary{}, domain.ErrMatchNotFound
	}
	quiz, err := s.catalog.GetQuiz(ctx, m.QuizID)
	if err != nil {
		return domain.MatchSummary{}, err
	}
	answers, err := s.store.AllAnswers(ctx, matchID)
	if err != nil {
		return domain.MatchSummary{}, err
	}

	questionText := make(map[string]string, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questionText[q.ID] = q.Text
	}

	summary := domain.MatchSummary{
		MatchID:   m.ID,
		QuizID:    m.QuizID,
		QuizTitle: quiz.Title,
		Status:    m.Status,
		Player1:   domain.PlayerSummary{UserID: m.Player1ID, Score: m.Player1Score},
		Player2:   domain.PlayerSummary{UserID: m.Player2ID, Score: m.Player2Score},
	}
	for _, a := range answers {
		breakdown := domain.AnswerBreakdown{
			QuestionID:   a.QuestionID,
			QuestionText: questionText[a.QuestionID],
			IsCorrect:    a.IsCorrect,
		}
		if a.UserID == m.Player1ID {
			summary.Player1.Answers = append(summary.Player1.Answers, breakdown)
		} else {
			summary.Player2.Answers = append(summary.Player2.Answers, breakdown)
		}
	}
	return summary, nil
}

// pickQuiz selects a uniformly random quiz within the category.
func (s *MatchService) pickQuiz(ctx context.Context, category string) (domain.Quiz, error) {
	quizzes, err := s.catalog.ListByCategory(ctx, category)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(quizzes) == 0 {
		return domain.Quiz{}, domain.ErrNoQuizInCategory
	}
	s.rndMu.Lock()
	idx := s.rnd.Intn(len(quizzes))
	s.rndMu.Unlock()
	return quizzes[idx], nil
}

func (s *MatchService) publishState(ctx context.Context, matchID string) {
	if s.hub == nil {
		return
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil || m == nil {
		return
	}
	eventType := EventState
	if m.Status == domain.MatchCompleted {
		eventType = EventCompleted
	}
	s.hub.Publish(MatchTopic(matchID), MatchEvent{Type: eventType, Match: *m})
}

// notifyPaired pushes the paired event to both players' user topics so the
// earlier-waiting player learns about the match without polling.
func (s *MatchService) notifyPaired(ctx context.Context, matchID string) {
	if s.hub == nil {
		return
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil || m == nil {
		return
	}
	event := MatchEvent{Type: EventPaired, Match: *m}
	s.hub.Publish(UserTopic(m.Player1ID), event)
	s.hub.Publish(UserTopic(m.Player2ID), event)
	s.hub.Publish(MatchTopic(matchID), event)
}
