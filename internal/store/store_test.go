package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"memberhub/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisKV(client)
}

// kvBackends runs the same assertions against Redis and the in-memory fallback.
func kvBackends(t *testing.T) map[string]KV {
	_, rkv := setupTestRedis(t)
	return map[string]KV{"redis": rkv, "memory": NewMemoryKV()}
}

func TestKV_GetSetDeleteScan(t *testing.T) {
	ctx := context.Background()
	for name, kv := range kvBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrMiss)

			require.NoError(t, kv.Set(ctx, "route:spaces:all", "1", 0))
			require.NoError(t, kv.Set(ctx, "route:spaces:page/2", "2", 0))
			require.NoError(t, kv.Set(ctx, "route:partners:all", "3", 0))

			v, err := kv.Get(ctx, "route:spaces:all")
			require.NoError(t, err)
			assert.Equal(t, "1", v)

			keys, err := kv.ScanKeys(ctx, "route:spaces:*")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"route:spaces:all", "route:spaces:page/2"}, keys)

			require.NoError(t, kv.Delete(ctx, keys...))
			require.NoError(t, kv.Delete(ctx))
			_, err = kv.Get(ctx, "route:spaces:all")
			assert.ErrorIs(t, err, ErrMiss)
			_, err = kv.Get(ctx, "route:partners:all")
			assert.NoError(t, err)
		})
	}
}

func TestRedisKV_TTL(t *testing.T) {
	mr, kv := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "session:abc", "p1", time.Minute))
	mr.FastForward(2 * time.Minute)
	_, err := kv.Get(ctx, "session:abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_TTL(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	now := time.Now()
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	_, err := kv.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestPreferences_DefaultsAndPersistence(t *testing.T) {
	ctx := context.Background()
	_, kv := setupTestRedis(t)
	prefs := NewPreferences(kv)

	got, err := prefs.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(), got)

	require.NoError(t, prefs.Save(ctx, "p1", domain.Preferences{SidebarCollapsed: true, Theme: domain.ThemeDark}))
	got, err = prefs.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.SidebarCollapsed)
	assert.Equal(t, domain.ThemeDark, got.Theme)

	err = prefs.Save(ctx, "p1", domain.Preferences{Theme: "neon"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPreferences_CorruptValueFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "prefs:p1", "{not json", 0))

	got, err := NewPreferences(kv).Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(), got)
}

func TestRouteCache_RememberAndRevalidate(t *testing.T) {
	ctx := context.Background()
	_, kv := setupTestRedis(t)
	cache := NewRouteCache(kv, time.Minute, zap.NewNop())

	calls := 0
	load := func(context.Context) (any, error) {
		calls++
		return map[string]int{"members": calls}, nil
	}

	var out map[string]int
	require.NoError(t, cache.Remember(ctx, "overview", "public", 0, &out, load))
	assert.Equal(t, 1, out["members"])

	out = nil
	require.NoError(t, cache.Remember(ctx, "overview", "public", 0, &out, load))
	assert.Equal(t, 1, out["members"])
	assert.Equal(t, 1, calls)

	cache.Revalidate(ctx, "spaces", "overview")
	require.NoError(t, cache.Remember(ctx, "overview", "public", 0, &out, load))
	assert.Equal(t, 2, out["members"])
}

func TestRouteCache_LoadErrorIsReturned(t *testing.T) {
	cache := NewRouteCache(NewMemoryKV(), time.Minute, nil)
	boom := errors.New("boom")
	var out []string
	err := cache.Remember(context.Background(), "spaces", "all", 0, &out, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRouteCache_RedisDownStillLoads(t *testing.T) {
	mr, kv := setupTestRedis(t)
	cache := NewRouteCache(kv, time.Minute, zap.NewNop())
	mr.Close()

	var out []string
	err := cache.Remember(context.Background(), "spaces", "all", 0, &out, func(context.Context) (any, error) {
		return []string{"founders"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"founders"}, out)
}

func TestSessions_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(NewMemoryKV(), time.Hour)

	token, err := sessions.Create(ctx, "p1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	id, err := sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	require.NoError(t, sessions.Revoke(ctx, token))
	_, err = sessions.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = sessions.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}
