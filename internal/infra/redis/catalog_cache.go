package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quizmatch-service/internal/domain"
	"quizmatch-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Catalog caches quiz content in Redis (JSON per key) and falls back to a
// source on cache miss. Quizzes and category listings are cached under:
//
//	quiz:{quizID}           full quiz JSON
//	quizzes:category:{cat}  quiz list JSON (without questions)
type Catalog struct {
	client *redis.Client
	source memory.CatalogSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalog(client *redis.Client, source memory.CatalogSource, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := c.quizKey(quizID)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err == nil {
			return quiz, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var quiz domain.Quiz
			if err := json.Unmarshal(raw, &quiz); err == nil {
				return quiz, nil
			}
		}

		quiz, err := c.source.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.set(ctx, key, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *Catalog) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	key := c.categoryKey(category)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quizzes []domain.Quiz
		if err := json.Unmarshal(raw, &quizzes); err == nil {
			return quizzes, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var quizzes []domain.Quiz
			if err := json.Unmarshal(raw, &quizzes); err == nil {
				return quizzes, nil
			}
		}

		quizzes, err := c.source.LoadByCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, quizzes)
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

// set is best-effort; a failed cache write only costs a reload.
func (c *Catalog) set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
}

func (c *Catalog) quizKey(quizID string) string {
	return "quiz:" + quizID
}

func (c *Catalog) categoryKey(category string) string {
	return "quizzes:category:" + category
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
