package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizmatch-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogSource fetches quiz content from a backing store (e.g., Postgres).
type CatalogSource interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	LoadByCategory(ctx context.Context, category string) ([]domain.Quiz, error)
}

// Catalog caches quizzes with TTL to avoid repeated backing-store hits.
// Categories are cached separately from individual quizzes: pairing lists a
// category once per join, while quiz content is read on every turn.
type Catalog struct {
	source CatalogSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu         sync.RWMutex
	quizzes    map[string]cachedQuiz
	categories map[string]cachedCategory
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

type cachedCategory struct {
	quizzes   []domain.Quiz
	expiresAt time.Time
}

func NewCatalog(source CatalogSource, ttl time.Duration) *Catalog {
	return &Catalog{
		source:     source,
		ttl:        ttl,
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		quizzes:    make(map[string]cachedQuiz),
		categories: make(map[string]cachedCategory),
	}
}

func (c *Catalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.quizzes[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("quiz:"+quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.quizzes[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.source.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.quizzes[quizID] = cachedQuiz{quiz: quiz, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *Catalog) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.categories[category]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quizzes, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("category:"+category, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.categories[category]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quizzes, nil
		}
		c.mu.RUnlock()

		quizzes, err := c.source.LoadByCategory(ctx, category)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.categories[category] = cachedCategory{quizzes: quizzes, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

func (c *Catalog) CountQuestions(ctx context.Context, quizID string) (int, error) {
	quiz, err := c.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	return len(quiz.Questions), nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticCatalogSource is a simple source backed by an in-memory map (useful
// for tests and the database-less dev mode).
type StaticCatalogSource struct {
	quizzes map[string]domain.Quiz
}

func NewStaticCatalogSource(quizzes map[string]domain.Quiz) *StaticCatalogSource {
	return &StaticCatalogSource{quizzes: quizzes}
}

func (s *StaticCatalogSource) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *StaticCatalogSource) LoadByCategory(_ context.Context, category string) ([]domain.Quiz, error) {
	var out []domain.Quiz
	for _, quiz := range s.quizzes {
		if quiz.Category == category {
			out = append(out, quiz)
		}
	}
	return out, nil
}
