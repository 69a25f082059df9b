package postgres

import (
	"time"

	"quizmatch-service/internal/domain"
	"github.com/uptrace/bun"
)

type queueEntryRow struct {
	bun.BaseModel `bun:"table:matchmaking_queue,alias:mq"`

	ID       string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID   string    `bun:"user_id,notnull,type:uuid"`
	Category string    `bun:"category,notnull"`
	JoinedAt time.Time `bun:"joined_at,notnull,default:now()"`
	Status   string    `bun:"status,notnull,default:'waiting'"`
}

func (r *queueEntryRow) toDomain() *domain.QueueEntry {
	return &domain.QueueEntry{
		ID:       r.ID,
		UserID:   r.UserID,
		Category: r.Category,
		JoinedAt: r.JoinedAt,
		Status:   domain.QueueStatus(r.Status),
	}
}

func queueEntryFromDomain(e *domain.QueueEntry) *queueEntryRow {
	return &queueEntryRow{
		ID:       e.ID,
		UserID:   e.UserID,
		Category: e.Category,
		JoinedAt: e.JoinedAt,
		Status:   string(e.Status),
	}
}

type matchRow struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID                string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	QuizID            string     `bun:"quiz_id,notnull,type:uuid"`
	Player1ID         string     `bun:"player1_id,notnull,type:uuid"`
	Player2ID         string     `bun:"player2_id,notnull,type:uuid"`
	Player1Score      int        `bun:"player1_score,default:0"`
	Player2Score      int        `bun:"player2_score,default:0"`
	CurrentTurnPlayer string     `bun:"current_turn_player,notnull,type:uuid"`
	RoundNumber       int        `bun:"round_number,default:1"`
	Status            string     `bun:"status,notnull,default:'waiting'"`
	CreatedAt         time.Time  `bun:"created_at,notnull,default:now()"`
	CompletedAt       *time.Time `bun:"completed_at"`
}

func (r *matchRow) toDomain() *domain.Match {
	return &domain.Match{
		ID:                r.ID,
		QuizID:            r.QuizID,
		Player1ID:         r.Player1ID,
		Player2ID:         r.Player2ID,
		Player1Score:      r.Player1Score,
		Player2Score:      r.Player2Score,
		CurrentTurnPlayer: r.CurrentTurnPlayer,
		RoundNumber:       r.RoundNumber,
		Status:            domain.MatchStatus(r.Status),
		CreatedAt:         r.CreatedAt,
		CompletedAt:       r.CompletedAt,
	}
}

func matchFromDomain(m *domain.Match) *matchRow {
	return &matchRow{
		ID:                m.ID,
		QuizID:            m.QuizID,
		Player1ID:         m.Player1ID,
		Player2ID:         m.Player2ID,
		Player1Score:      m.Player1Score,
		Player2Score:      m.Player2Score,
		CurrentTurnPlayer: m.CurrentTurnPlayer,
		RoundNumber:       m.RoundNumber,
		Status:            string(m.Status),
		CreatedAt:         m.CreatedAt,
		CompletedAt:       m.CompletedAt,
	}
}

type playerAnswerRow struct {
	bun.BaseModel `bun:"table:player_answers,alias:pa"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	MatchID     string    `bun:"match_id,notnull,type:uuid"`
	UserID      string    `bun:"user_id,notnull,type:uuid"`
	QuestionID  string    `bun:"question_id,notnull,type:uuid"`
	AnswerID    string    `bun:"answer_id,notnull,type:uuid"`
	IsCorrect   bool      `bun:"is_correct,notnull"`
	RoundNumber int       `bun:"round_number,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()"`
}

func (r *playerAnswerRow) toDomain() domain.PlayerAnswer {
	return domain.PlayerAnswer{
		ID:          r.ID,
		MatchID:     r.MatchID,
		UserID:      r.UserID,
		QuestionID:  r.QuestionID,
		AnswerID:    r.AnswerID,
		IsCorrect:   r.IsCorrect,
		RoundNumber: r.RoundNumber,
		CreatedAt:   r.CreatedAt,
	}
}

func playerAnswerFromDomain(a *domain.PlayerAnswer) *playerAnswerRow {
	return &playerAnswerRow{
		ID:          a.ID,
		MatchID:     a.MatchID,
		UserID:      a.UserID,
		QuestionID:  a.QuestionID,
		AnswerID:    a.AnswerID,
		IsCorrect:   a.IsCorrect,
		RoundNumber: a.RoundNumber,
		CreatedAt:   a.CreatedAt,
	}
}
