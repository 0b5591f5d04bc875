package geo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/launchwatch/internal/model"
	"github.com/redis/go-redis/v9"
)

// mockLocator はテスト用のLocator。
type mockLocator struct {
	mu       sync.Mutex
	calls    int
	lookupFn func(ip string) model.Location
}

func (m *mockLocator) Lookup(_ context.Context, ip string) model.Location {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.lookupFn(ip)
}

// mapCache はテスト用のインメモリCache。
type mapCache struct {
	entries map[string]model.Location
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]model.Location)}
}

func (c *mapCache) Get(_ context.Context, ip string) (model.Location, bool, error) {
	if c.getErr != nil {
		return model.Location{}, false, c.getErr
	}
	loc, ok := c.entries[ip]
	return loc, ok, nil
}

func (c *mapCache) Set(_ context.Context, ip string, loc model.Location, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[ip] = loc
	c.lastTTL = ttl
	return nil
}

func kenya(string) model.Location {
	return model.Location{Country: model.StringPtr("Kenya"), City: model.StringPtr("Nairobi")}
}

func TestCachedLocator_MissThenHit(t *testing.T) {
	next := &mockLocator{lookupFn: kenya}
	cache := newMapCache()
	var buf bytes.Buffer
	l := NewCachedLocator(next, cache, time.Hour, newTestLogger(&buf), nil)

	first := l.Lookup(context.Background(), "203.0.113.7")
	second := l.Lookup(context.Background(), "203.0.113.7")

	if next.calls != 1 {
		t.Errorf("provider calls = %d, want 1", next.calls)
	}
	if cache.lastTTL != time.Hour {
		t.Errorf("ttl = %v, want %v", cache.lastTTL, time.Hour)
	}
	if *first.Country != "Kenya" || *second.Country != "Kenya" {
		t.Errorf("unexpected locations: %v %v", first, second)
	}
}

func TestCachedLocator_DoesNotCacheEmptyResult(t *testing.T) {
	next := &mockLocator{lookupFn: func(string) model.Location { return model.Location{} }}
	cache := newMapCache()
	var buf bytes.Buffer
	l := NewCachedLocator(next, cache, time.Hour, newTestLogger(&buf), nil)

	l.Lookup(context.Background(), "203.0.113.7")
	l.Lookup(context.Background(), "203.0.113.7")

	if next.calls != 2 {
		t.Errorf("provider calls = %d, want 2", next.calls)
	}
	if len(cache.entries) != 0 {
		t.Errorf("cache entries = %d, want 0", len(cache.entries))
	}
}

func TestCachedLocator_CacheFailureDegrades(t *testing.T) {
	next := &mockLocator{lookupFn: kenya}
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	var buf bytes.Buffer
	l := NewCachedLocator(next, cache, time.Hour, newTestLogger(&buf), nil)

	loc := l.Lookup(context.Background(), "203.0.113.7")
	if loc.Country == nil || *loc.Country != "Kenya" {
		t.Errorf("Country = %v, want Kenya", loc.Country)
	}
	if next.calls != 1 {
		t.Errorf("provider calls = %d, want 1", next.calls)
	}
	if buf.Len() == 0 {
		t.Error("cache failures should be logged")
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("203.0.113.7"); got != "launchwatch:geo:203.0.113.7" {
		t.Errorf("cacheKey = %q", got)
	}
}

// setupTestRedis はテスト用Redisクライアントを返す。接続できない場合はスキップする。
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/15"
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("invalid TEST_REDIS_URL: %v", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("テスト用Redisに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisCache_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewRedisCache(client)
	ctx := context.Background()
	ip := "203.0.113.250"
	client.Del(ctx, cacheKey(ip))

	if _, found, err := cache.Get(ctx, ip); err != nil || found {
		t.Fatalf("Get before Set = found %v, err %v", found, err)
	}

	want := model.Location{Country: model.StringPtr("Kenya")}
	if err := cache.Set(ctx, ip, want, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found, err := cache.Get(ctx, ip)
	if err != nil || !found {
		t.Fatalf("Get after Set = found %v, err %v", found, err)
	}
	if got.Country == nil || *got.Country != "Kenya" || got.City != nil {
		t.Errorf("Get = %+v, want country Kenya and nil city", got)
	}

	ttl, err := client.TTL(ctx, cacheKey(ip)).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}
}
