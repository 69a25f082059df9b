package memory

import (
	"context"
	"sync"

	"quizmatch-service/internal/domain"
)

// ViewCache is an in-memory implementation of app.ViewCache.
type ViewCache struct {
	mu        sync.RWMutex
	summaries map[string]domain.MatchSummary
}

func NewViewCache() *ViewCache {
	return &ViewCache{summaries: make(map[string]domain.MatchSummary)}
}

func (c *ViewCache) Summary(_ context.Context, matchID string) (domain.MatchSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	summary, ok := c.summaries[matchID]
	return summary, ok
}

func (c *ViewCache) StoreSummary(_ context.Context, matchID string, summary domain.MatchSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[matchID] = summary
}

func (c *ViewCache) Invalidate(_ context.Context, matchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.summaries, matchID)
}
