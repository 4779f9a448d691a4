// Package cache holds the caches used while rendering stickers.
//
// Three layers are provided:
//
//   - LRUCache, a generic, thread-safe LRU with optional TTL and hit/miss counters.
//     It satisfies the Cache interface, which is what callers may replace.
//   - Group, which fronts a Cache and collapses concurrent misses for the same key
//     into a single load (golang.org/x/sync/singleflight). Concurrent renders of the
//     same sticker with the same options therefore hit the network once.
//   - BlobStore, for encoded payloads. MemoryBlobStore keeps them in-process;
//     RedisBlobStore shares them between processes through github.com/redis/go-redis/v9.
//
// # Usage
//
//	lru := cache.NewLRUCache[string, image.Image](256, cache.WithTTL(time.Hour))
//	group := cache.NewGroup[image.Image](lru)
//
//	img, _, err := group.Get(ctx, key, func(ctx context.Context) (image.Image, error) {
//		return render(ctx)
//	})
//
// # Eviction
//
// Entries are evicted by recency once capacity is exceeded, and lazily on access once
// their TTL has passed. Eviction callbacks run under the cache lock and must not call
// back into the cache.
//
// # Redis
//
//	client, err := cache.DialRedis(ctx, cache.RedisConfig{ConnectionURL: "redis://localhost:6379/0"})
//	store := cache.NewRedisBlobStore(client, "imoji:render:")
package cache
