package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/JosKno/CapaIntermedia/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const TTLUserList = 30 * time.Second

// Cache keys
const (
	KeyUserList      = "users:list"
	KeyRateLimitBase = "ratelimit:"
)

// GetJSON loads key and unmarshals it into dest.
func GetJSON(key string, dest any) error {
	val, err := Get(key)
	if err != nil {
		return err
	}
	if val == "" {
		return fmt.Errorf("empty value for key: %s", key)
	}
	return json.Unmarshal([]byte(val), dest)
}

// SetJSON stores value as JSON under key.
func SetJSON(key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return Set(key, string(data), expiration)
}

// GetOrSet fills dest from the cache, or from fn on a miss. The cache is
// best effort: when Redis is unavailable fn is used directly. A value loaded
// while Invalidate ran for key is returned but not stored.
func GetOrSet[T any](key string, dest *T, expiration time.Duration, fn func() (T, error)) error {
	err := GetJSON(key, dest)
	if err == nil {
		logger.Debugf("Cache hit for key: %s", key)
		return nil
	}
	if !errors.Is(err, ErrMiss) && !errors.Is(err, ErrNotInitialized) {
		logger.Warningf("Cache read failed for key %s: %v", key, err)
	}

	gen, genErr := generation(key)

	value, err := fn()
	if err != nil {
		return err
	}
	*dest = value

	if genErr != nil {
		return nil
	}
	err = setIfGeneration(key, gen, value, expiration)
	switch {
	case errors.Is(err, errStale):
		logger.Debugf("Skipped cache write for invalidated key: %s", key)
	case err != nil:
		logger.Warningf("Failed to set cache for key %s: %v", key, err)
	}
	return nil
}

var errStale = errors.New("cache key invalidated during load")

func generationKey(key string) string {
	return key + ":gen"
}

// generation returns the invalidation counter of key, "" when it was never
// invalidated.
func generation(key string) (string, error) {
	gen, err := Get(generationKey(key))
	if errors.Is(err, ErrMiss) {
		return "", nil
	}
	return gen, err
}

// setIfGeneration stores value under key only while its invalidation counter
// still equals gen.
func setIfGeneration(key, gen string, value any, expiration time.Duration) error {
	if client == nil {
		return ErrNotInitialized
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	gk := generationKey(key)
	err = client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, expiration)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		return errStale
	}
	return err
}

// Invalidate drops key and bumps its invalidation counter so loads that
// started earlier do not store their result.
func Invalidate(key string) error {
	if client == nil {
		return ErrNotInitialized
	}
	_, err := client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, generationKey(key))
		p.Del(ctx, key)
		return nil
	})
	return err
}

// InvalidateUserList drops the cached admin listing.
func InvalidateUserList() {
	if err := Invalidate(KeyUserList); err != nil && !errors.Is(err, ErrNotInitialized) {
		logger.Warning("Failed to invalidate user list cache:", err)
	}
}
