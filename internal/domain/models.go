package domain

import "time"

// QueueStatus tracks the lifecycle of a matchmaking queue entry.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "waiting"
	QueueMatched   QueueStatus = "matched"
	QueueCancelled QueueStatus = "cancelled"
)

// MatchStatus tracks the lifecycle of a two-player match.
type MatchStatus string

const (
	MatchWaiting    MatchStatus = "waiting"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCancelled  MatchStatus = "cancelled"
)

// QueueEntry is a user's pending request to be paired for a category.
// Entries are never deleted; matched and cancelled rows remain as history.
type QueueEntry struct {
	ID       string      `json:"id"`
	UserID   string      `json:"userId"`
	Category string      `json:"category"`
	JoinedAt time.Time   `json:"joinedAt"`
	Status   QueueStatus `json:"status"`
}

// Match is one two-player contest over a single quiz. The match row is the
// serialization point for all turn and score mutations.
type Match struct {
	ID                string      `json:"id"`
	QuizID            string      `json:"quizId"`
	Player1ID         string      `json:"player1Id"`
	Player2ID         string      `json:"player2Id"`
	Player1Score      int         `json:"player1Score"`
	Player2Score      int         `json:"player2Score"`
	CurrentTurnPlayer string      `json:"currentTurnPlayer"`
	RoundNumber       int         `json:"roundNumber"`
	Status            MatchStatus `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
}

// IsParticipant reports whether userID is one of the two players.
func (m *Match) IsParticipant(userID string) bool {
	return userID == m.Player1ID || userID == m.Player2ID
}

// Opponent returns the other player's id. The argument must be a participant.
func (m *Match) Opponent(userID string) string {
	if userID == m.Player1ID {
		return m.Player2ID
	}
	return m.Player1ID
}

// PlayerAnswer is one append-only ledger row. Correctness is captured at
// submission time, never re-derived. At most one row may exist per
// (match, user, question, round).
type PlayerAnswer struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"matchId"`
	UserID      string    `json:"userId"`
	QuestionID  string    `json:"questionId"`
	AnswerID    string    `json:"answerId"`
	IsCorrect   bool      `json:"isCorrect"`
	RoundNumber int       `json:"roundNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Answer is one of a question's options.
type Answer struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Description string `json:"description"`
	IsCorrect   bool   `json:"isCorrect"`
}

// Question belongs to exactly one quiz. Authoring creates four answers with
// exactly one marked correct; the schema does not hard-enforce that, so the
// correctness flags are a trust boundary here.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Answers []Answer `json:"answers"`
}

// Quiz is immutable quiz content owned by the catalog. Category is the
// matchmaking partition key.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Questions   []Question `json:"questions"`
}

// Rules are the fixed parameters of the turn/round state machine.
type Rules struct {
	QuestionsPerRound int
	MaxRounds         int
	PointsPerCorrect  int
}

// DefaultRules returns the stock ruleset: 5 questions per block, 3 rounds,
// 10 points per correct answer.
func DefaultRules() Rules {
	return Rules{QuestionsPerRound: 5, MaxRounds: 3, PointsPerCorrect: 10}
}

// AnswerBreakdown pairs one ledger row with its question's display text.
type AnswerBreakdown struct {
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
	IsCorrect    bool   `json:"isCorrect"`
}

// PlayerSummary is one player's side of a match.
type PlayerSummary struct {
	UserID  string            `json:"userId"`
	Score   int               `json:"score"`
	Answers []AnswerBreakdown `json:"answers"`
}

// MatchSummary is the viewer-neutral projection over the ledger and catalog.
type MatchSummary struct {
	MatchID   string        `json:"matchId"`
	QuizID    string        `json:"quizId"`
	QuizTitle string        `json:"quizTitle"`
	Status    MatchStatus   `json:"status"`
	Player1   PlayerSummary `json:"player1"`
	Player2   PlayerSummary `json:"player2"`
}

// Perspective splits the summary into "me" and "opponent" for a viewer.
// A viewer matching neither player sees the player2 side; at least one calling
// context relies on that fallback.
func (s MatchSummary) Perspective(viewerID string) (me, opponent PlayerSummary) {
	if viewerID == s.Player1.UserID {
		return s.Player1, s.Player2
	}
	return s.Player2, s.Player1
}
