package location

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/pkg/geo"
)

const cacheKey = "position"

// Cached remembers the position returned by another provider for a fixed TTL.
// Errors are never cached.
type Cached struct {
	provider Provider
	cache    *expirable.LRU[string, geo.Position]
	logger   zerolog.Logger
}

// NewCached wraps provider with a cache entry that expires after ttl.
func NewCached(provider Provider, ttl time.Duration, logger zerolog.Logger) *Cached {
	return &Cached{
		provider: provider,
		cache:    expirable.NewLRU[string, geo.Position](1, nil, ttl),
		logger:   logger,
	}
}

// Locate returns the cached position, refreshing it from the wrapped provider
// once it has expired.
func (c *Cached) Locate(ctx context.Context) (geo.Position, error) {
	if pos, ok := c.cache.Get(cacheKey); ok {
		return pos, nil
	}

	pos, err := c.provider.Locate(ctx)
	if err != nil {
		return geo.Position{}, err
	}

	c.cache.Add(cacheKey, pos)
	c.logger.Debug().Stringer("position", pos).Msg("Cached observer position")
	return pos, nil
}

// Invalidate drops the cached position.
func (c *Cached) Invalidate() {
	c.cache.Purge()
}
