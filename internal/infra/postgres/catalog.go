package postgres

import (
	"context"
	"errors"
	"fmt"

	"quizmatch-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Catalog reads quiz content from Postgres. The catalog tables are owned by
// the authoring side of the application; everything here is read-only.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz := domain.Quiz{}
	err := c.pool.QueryRow(ctx,
		`SELECT id, title, description, category FROM quizzes WHERE id=$1`, quizID).
		Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := c.loadQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	return quiz, nil
}

func (c *Catalog) loadQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, question FROM questions WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	index := make(map[string]int)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Text); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	answerRows, err := c.pool.Query(ctx,
		`SELECT a.id, a.text, a.description, a.is_correct, a.question_id
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE q.quiz_id=$1
		 ORDER BY a.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var a domain.Answer
		var questionID string
		if err := answerRows.Scan(&a.ID, &a.Text, &a.Description, &a.IsCorrect, &questionID); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if i, ok := index[questionID]; ok {
			questions[i].Answers = append(questions[i].Answers, a)
		}
	}
	if err := answerRows.Err(); err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return questions, nil
}

func (c *Catalog) LoadByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, title, description, category FROM quizzes WHERE category=$1`, category)
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var q domain.Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Category); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	return quizzes, nil
}

// GetQuiz, ListByCategory, and CountQuestions let the catalog satisfy
// app.QuizCatalog directly when no cache tier is configured.
func (c *Catalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return c.LoadQuiz(ctx, quizID)
}

func (c *Catalog) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	return c.LoadByCategory(ctx, category)
}

func (c *Catalog) CountQuestions(ctx context.Context, quizID string) (int, error) {
	var count int
	err := c.pool.QueryRow(ctx,
		`SELECT count(*) FROM questions WHERE quiz_id=$1`, quizID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}
