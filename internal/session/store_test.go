package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTripAndIsolation(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	s, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, DefaultWordLimit, s.WordLimit)

	s.Description = "saved"
	require.NoError(t, store.Save(ctx, s))

	s.Description = "mutated after save"
	loaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "saved", loaded.Description)
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s := New("old")
	s.Description = "stale"
	require.NoError(t, store.Save(ctx, s))

	now = now.Add(2 * time.Minute)
	loaded, err := store.Load(ctx, "old")
	require.NoError(t, err)
	require.Empty(t, loaded.Description)

	require.NoError(t, store.Save(ctx, New("fresh")))
	require.Equal(t, 1, store.Len())
}

type stubCache struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newStubCache() *stubCache {
	return &stubCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.values[key] = value.(string)
	s.ttls[key] = expiration
	return nil
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func TestRedisStoreRoundTrip(t *testing.T) {
	cache := newStubCache()
	store := NewRedisStore(cache, 30*time.Minute)
	ctx := context.Background()

	s, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", s.ID)

	s.Upload(staged())
	s.Description = "text"
	s.AdjustLength(12)
	s.Warn("careful")
	require.NoError(t, store.Save(ctx, s))
	require.Equal(t, 30*time.Minute, cache.ttls[redisKeyPrefix+"abc"])

	loaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, s, loaded)
}

func TestRedisStoreSurfacesBackendErrors(t *testing.T) {
	cache := newStubCache()
	cache.getErr = errors.New("connection refused")
	store := NewRedisStore(cache, time.Minute)

	_, err := store.Load(context.Background(), "abc")
	require.Error(t, err)

	cache.getErr = nil
	cache.values[redisKeyPrefix+"abc"] = "{not json"
	_, err = store.Load(context.Background(), "abc")
	require.Error(t, err)
}
