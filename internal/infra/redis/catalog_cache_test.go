package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizmatch-service/internal/domain"
	"quizmatch-service/internal/infra/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingSource struct {
	inner         memory.CatalogSource
	quizLoads     int
	categoryLoads int
}

func (s *countingSource) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	s.quizLoads++
	return s.inner.LoadQuiz(ctx, quizID)
}

func (s *countingSource) LoadByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	s.categoryLoads++
	return s.inner.LoadByCategory(ctx, category)
}

func newTestCatalog(t *testing.T) (*Catalog, *countingSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	source := &countingSource{inner: memory.NewStaticCatalogSource(map[string]domain.Quiz{
		"quiz-1": {
			ID:       "quiz-1",
			Title:    "Space",
			Category: "Science",
			Questions: []domain.Question{
				{ID: "q1", Text: "First?", Answers: []domain.Answer{{ID: "a1", IsCorrect: true}}},
				{ID: "q2", Text: "Second?"},
			},
		},
	})}
	return NewCatalog(client, source, time.Minute), source, mr
}

func TestGetQuizCachesInRedis(t *testing.T) {
	ctx := context.Background()
	catalog, source, mr := newTestCatalog(t)

	for i := 0; i < 3; i++ {
		quiz, err := catalog.GetQuiz(ctx, "quiz-1")
		if err != nil {
			t.Fatalf("get quiz: %v", err)
		}
		if quiz.Title != "Space" || len(quiz.Questions) != 2 {
			t.Fatalf("unexpected quiz %+v", quiz)
		}
	}
	if source.quizLoads != 1 {
		t.Fatalf("expected one backing load, got %d", source.quizLoads)
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz cached under quiz:quiz-1")
	}

	// Expiry forces a reload.
	mr.FastForward(2 * time.Minute)
	if _, err := catalog.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if source.quizLoads != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", source.quizLoads)
	}
}

func TestListByCategoryCachesInRedis(t *testing.T) {
	ctx := context.Background()
	catalog, source, mr := newTestCatalog(t)

	for i := 0; i < 2; i++ {
		quizzes, err := catalog.ListByCategory(ctx, "Science")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(quizzes) != 1 || quizzes[0].ID != "quiz-1" {
			t.Fatalf("unexpected listing %+v", quizzes)
		}
	}
	if source.categoryLoads != 1 {
		t.Fatalf("expected one backing load, got %d", source.categoryLoads)
	}
	if !mr.Exists("quizzes:category:Science") {
		t.Fatalf("expected listing cached under quizzes:category:Science")
	}
}

func TestGetQuizSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	catalog, source, mr := newTestCatalog(t)

	mr.Close()
	quiz, err := catalog.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("expected fallback to the source, got %v", err)
	}
	if quiz.ID != "quiz-1" || source.quizLoads != 1 {
		t.Fatalf("unexpected fallback result %+v (loads=%d)", quiz, source.quizLoads)
	}
}

func TestGetQuizPropagatesSourceError(t *testing.T) {
	ctx := context.Background()
	catalog, _, _ := newTestCatalog(t)

	if _, err := catalog.GetQuiz(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestCountQuestions(t *testing.T) {
	ctx := context.Background()
	catalog, _, _ := newTestCatalog(t)

	count, err := catalog.CountQuestions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
}
