package adjudication

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// DecisionCache stores external-service verdicts between runs.
// A miss is reported as (nil, nil).
type DecisionCache interface {
	Get(ctx context.Context, pair models.CandidatePair) (*CachedVerdict, error)
	Put(ctx context.Context, pair models.CandidatePair, verdict CachedVerdict) error
}

// CachedVerdict is what gets stored for a pair
type CachedVerdict struct {
	Confidence int       `json:"confidence"`
	Rationale  string    `json:"rationale"`
	Provider   string    `json:"provider"`
	DecidedAt  time.Time `json:"decided_at"`
}

// RedisDecisionCache keys verdicts by the fingerprint of the pair
type RedisDecisionCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisDecisionCache creates a cache that expires entries after ttl
func NewRedisDecisionCache(client *redis.Client, ttl time.Duration) *RedisDecisionCache {
	return &RedisDecisionCache{
		client:    client,
		keyPrefix: "clover:verdict:",
		ttl:       ttl,
	}
}

func (c *RedisDecisionCache) key(pair models.CandidatePair) string {
	return c.keyPrefix + fingerprint.Pair(pair)
}

func (c *RedisDecisionCache) Get(ctx context.Context, pair models.CandidatePair) (*CachedVerdict, error) {
	raw, err := c.client.Get(ctx, c.key(pair))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var verdict CachedVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (c *RedisDecisionCache) Put(ctx context.Context, pair models.CandidatePair, verdict CachedVerdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(pair), data, c.ttl)
}
