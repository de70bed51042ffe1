//go:build integration

package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisGenerator_ConcurrentNextNeverRepeats(t *testing.T) {
	gen := NewRedisGenerator(startRedis(t))
	ctx := context.Background()
	tenantID := uuid.New()

	const workers = 50
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := gen.Next(ctx, tenantID, "JE")
			require.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "missing %d", i)
	}
}

func TestRedisGenerator_SeedNeverLowers(t *testing.T) {
	gen := NewRedisGenerator(startRedis(t))
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, gen.Seed(ctx, tenantID, "JE", 100))
	n, err := gen.Next(ctx, tenantID, "JE")
	require.NoError(t, err)
	assert.Equal(t, int64(101), n)

	require.NoError(t, gen.Seed(ctx, tenantID, "JE", 10))
	n, err = gen.Next(ctx, tenantID, "JE")
	require.NoError(t, err)
	assert.Equal(t, int64(102), n)

	other, err := gen.Next(ctx, uuid.New(), "JE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "counters are per tenant")
}
