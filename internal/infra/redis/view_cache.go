package redis

import (
	"context"
	"encoding/json"
	"time"

	"quizmatch-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ViewCache holds rendered match summaries in Redis, invalidated on every
// match mutation. All operations are best-effort: a failing cache degrades to
// recomputing the projection from the ledger.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{client: client, ttl: ttl}
}

func (c *ViewCache) Summary(ctx context.Context, matchID string) (domain.MatchSummary, bool) {
	raw, err := c.client.Get(ctx, c.key(matchID)).Bytes()
	if err != nil {
		return domain.MatchSummary{}, false
	}
	var summary domain.MatchSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.MatchSummary{}, false
	}
	return summary, true
}

func (c *ViewCache) StoreSummary(ctx context.Context, matchID string, summary domain.MatchSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(matchID), raw, c.ttl).Err()
}

func (c *ViewCache) Invalidate(ctx context.Context, matchID string) {
	_ = c.client.Del(ctx, c.key(matchID)).Err()
}

func (c *ViewCache) key(matchID string) string {
	return "match:" + matchID + ":summary"
}
