package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizmatch-service/internal/domain"
)

// countingSource wraps a StaticCatalogSource and counts backing-store hits.
type countingSource struct {
	inner         *StaticCatalogSource
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

func TestCatalogCachesUntilTTL(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{inner: NewStaticCatalogSource(map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Title: "Space", Category: "Science", Questions: []domain.Question{{ID: "q1"}}},
	})}
	catalog := NewCatalog(source, time.Minute)

	now := time.Now()
	catalog.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		quiz, err := catalog.GetQuiz(ctx, "quiz-1")
		if err != nil {
			t.Fatalf("get quiz: %v", err)
		}
		if quiz.Title != "Space" {
			t.Fatalf("unexpected quiz %+v", quiz)
		}
	}
	if source.quizLoads != 1 {
		t.Fatalf("expected one backing load, got %d", source.quizLoads)
	}

	// Past the TTL (plus jitter headroom) the next read reloads.
	now = now.Add(2 * time.Minute)
	if _, err := catalog.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if source.quizLoads != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", source.quizLoads)
	}
}

func TestCatalogCachesCategoriesSeparately(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{inner: NewStaticCatalogSource(map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Category: "Science"},
		"quiz-2": {ID: "quiz-2", Category: "History"},
	})}
	catalog := NewCatalog(source, time.Minute)

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
		t.Fatalf("expected one category load, got %d", source.categoryLoads)
	}
	if source.quizLoads != 0 {
		t.Fatalf("category listing must not load individual quizzes, got %d", source.quizLoads)
	}
}

func TestCatalogCountQuestions(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(NewStaticCatalogSource(map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Questions: []domain.Question{{ID: "q1"}, {ID: "q2"}}},
	}), time.Minute)

	count, err := catalog.CountQuestions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if _, err := catalog.CountQuestions(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}
