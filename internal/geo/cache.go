package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/launchwatch/internal/metrics"
	"github.com/hitoshi/launchwatch/internal/model"
	"github.com/redis/go-redis/v9"
)

// cacheKeyPrefix はRedisキーの接頭辞。
const cacheKeyPrefix = "launchwatch:geo:"

// Cache は解決済み位置情報のキャッシュ。
type Cache interface {
	// Get はキャッシュ済みの位置情報を返す。未登録の場合はfound=false。
	Get(ctx context.Context, ip string) (loc model.Location, found bool, err error)
	// Set は位置情報をttlの間保存する。
	Set(ctx context.Context, ip string, loc model.Location, ttl time.Duration) error
}

// RedisCache はRedisを使用したCache実装。
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache はRedisCacheを生成する。
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get はキャッシュ済みの位置情報を返す。
func (c *RedisCache) Get(ctx context.Context, ip string) (model.Location, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(ip)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Location{}, false, nil
	}
	if err != nil {
		return model.Location{}, false, fmt.Errorf("failed to get cached location: %w", err)
	}

	var loc model.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return model.Location{}, false, fmt.Errorf("failed to decode cached location: %w", err)
	}
	return loc, true, nil
}

// Set は位置情報をttlの間保存する。
func (c *RedisCache) Set(ctx context.Context, ip string, loc model.Location, ttl time.Duration) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(ip), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache location: %w", err)
	}
	return nil
}

func cacheKey(ip string) string {
	return cacheKeyPrefix + ip
}

// CachedLocator はCacheを前段に置いたLocator。
// キャッシュの障害時は直接検索に縮退する。空の結果はキャッシュしない。
type CachedLocator struct {
	next    Locator
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewCachedLocator はCachedLocatorを生成する。
func NewCachedLocator(next Locator, cache Cache, ttl time.Duration, logger *slog.Logger, m metrics.MetricsCollector) *CachedLocator {
	if m == nil {
		m = metrics.Nop{}
	}
	return &CachedLocator{
		next:    next,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Lookup はキャッシュを参照し、なければ下位のLocatorで解決する。
func (l *CachedLocator) Lookup(ctx context.Context, ip string) model.Location {
	loc, found, err := l.cache.Get(ctx, ip)
	if err != nil {
		l.logger.Warn("位置情報キャッシュの参照に失敗しました",
			slog.String("ip", ip),
			slog.String("error", err.Error()),
		)
	}
	if found {
		l.metrics.RecordGeoLookup(metrics.GeoCacheHit)
		return loc
	}

	loc = l.next.Lookup(ctx, ip)
	if loc.IsEmpty() {
		return loc
	}

	if err := l.cache.Set(ctx, ip, loc, l.ttl); err != nil {
		l.logger.Warn("位置情報のキャッシュ保存に失敗しました",
			slog.String("ip", ip),
			slog.String("error", err.Error()),
		)
	}
	return loc
}

// compile-time interface check
var (
	_ Cache   = (*RedisCache)(nil)
	_ Locator = (*CachedLocator)(nil)
)
