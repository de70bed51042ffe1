// Package sequence issues document numbers from Redis.
package sequence

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "ledger:seq:"

// RedisGenerator issues numbers with INCR. Numbers are handed out even when
// the caller's transaction later rolls back, which leaves gaps but never
// repeats a value.
type RedisGenerator struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisGenerator creates a generator on an existing client
func NewRedisGenerator(client redis.UniversalClient) *RedisGenerator {
	return &RedisGenerator{client: client, keyPrefix: defaultKeyPrefix}
}

// Next returns the next number for tenant and prefix
func (g *RedisGenerator) Next(ctx context.Context, tenantID uuid.UUID, prefix string) (int64, error) {
	n, err := g.client.Incr(ctx, g.key(tenantID, prefix)).Result()
	if err != nil {
		return 0, ledger.ErrPersistenceFailure.WithDetail("cause", fmt.Sprintf("sequence %s: %v", prefix, err))
	}
	return n, nil
}

// Seed raises the counter to at least floor, e.g. after migrating from the
// table-backed sequences. It never lowers an existing counter.
func (g *RedisGenerator) Seed(ctx context.Context, tenantID uuid.UUID, prefix string, floor int64) error {
	key := g.key(tenantID, prefix)
	return g.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current >= floor {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, floor, 0)
			return nil
		})
		return err
	}, key)
}

func (g *RedisGenerator) key(tenantID uuid.UUID, prefix string) string {
	return g.keyPrefix + tenantID.String() + ":" + prefix
}

// Ensure RedisGenerator implements SequenceGenerator
var _ ledger.SequenceGenerator = (*RedisGenerator)(nil)
