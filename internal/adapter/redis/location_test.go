package redis

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
)

type memStore struct {
	mu      sync.Mutex
	latest  map[int64]*models.Fix
	lookups int
}

func (m *memStore) Save(_ context.Context, fix *models.Fix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[fix.VehicleID] = fix
	return nil
}

func (m *memStore) LatestFix(_ context.Context, vehicleID int64) (*models.Fix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	f, ok := m.latest[vehicleID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return f, nil
}

func (m *memStore) LatestSince(context.Context, time.Time) ([]*models.Fix, error) {
	return nil, nil
}

func (m *memStore) History(context.Context, int64, time.Time, int) ([]*models.Fix, error) {
	return nil, nil
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}

	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	return client
}

func TestLocationCache(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := &memStore{latest: make(map[int64]*models.Fix)}
	cache := NewLocationCache(store, client, time.Minute, logger.New(io.Discard, "test", logger.LevelError))

	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("save then read hits the cache", func(t *testing.T) {
		require.NoError(t, cache.Save(ctx, &models.Fix{ID: 1, VehicleID: 7, Lat: 1, Lng: 2, Timestamp: now}))

		fix, err := cache.LatestFix(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), fix.ID)
		assert.Zero(t, store.lookups)

		ttl, err := client.TTL(ctx, key(7)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("older fix does not replace newer", func(t *testing.T) {
		require.NoError(t, cache.Save(ctx, &models.Fix{ID: 2, VehicleID: 7, Timestamp: now.Add(-time.Second)}))

		fix, err := cache.LatestFix(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), fix.ID)
	})

	t.Run("miss falls back and fills the cache", func(t *testing.T) {
		store.latest[8] = &models.Fix{ID: 3, VehicleID: 8, Timestamp: now}

		fix, err := cache.LatestFix(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(3), fix.ID)
		assert.Equal(t, 1, store.lookups)

		_, err = cache.LatestFix(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, 1, store.lookups)
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		_, err := cache.LatestFix(ctx, 99)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestLocationCacheRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	store := &memStore{latest: make(map[int64]*models.Fix)}
	cache := NewLocationCache(store, client, time.Minute, logger.New(io.Discard, "test", logger.LevelError))
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, &models.Fix{ID: 1, VehicleID: 7, Timestamp: time.Now()}))

	fix, err := cache.LatestFix(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fix.ID)
	assert.Equal(t, 1, store.lookups)
}
