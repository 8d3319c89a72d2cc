// Package cache is a small keyed read cache over redis. Entries are never
// updated in place: writers Invalidate the keys they affect and the next
// reader refetches from storage.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New returns a cache storing keys under prefix. A nil client yields a cache
// that always misses, so callers fall through to storage.
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if c == nil || c.client == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

// Invalidate marks keys stale by removing them and bumping their
// generation, so a load that started before the call cannot store its result.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Del(ctx, c.key(k))
			p.Incr(ctx, c.genKey(k))
		}
		return nil
	})
	return err
}

func (c *Cache) genKey(k string) string {
	return c.prefix + "gen:" + k
}

// generation is zero for keys never invalidated.
func (c *Cache) generation(ctx context.Context, key string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}

	gen, err := c.client.Get(ctx, c.genKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

// setAt stores val only if key is still at generation gen. It reports
// whether the value was stored.
func (c *Cache) setAt(ctx context.Context, key string, val any, gen int64) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	data, err := json.Marshal(val)
	if err != nil {
		return false, fmt.Errorf("cache marshal: %w", err)
	}

	gk := c.genKey(key)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key(key), data, c.ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		return false, nil
	}
	return false, fmt.Errorf("cache set: %w", err)
}

var errStale = errors.New("cache generation moved")

// Fetch reads key, calling load on a miss and storing its result unless key
// was invalidated while load ran. Cache failures are reported through onErr
// and never fail the read.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error), onErr func(error)) (T, error) {
	report := func(err error) {
		if onErr != nil {
			onErr(err)
		}
	}

	gen, genErr := c.generation(ctx, key)
	if genErr != nil {
		report(genErr)
	}

	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrMiss) {
		report(err)
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}

	if genErr == nil {
		if _, err := c.setAt(ctx, key, v, gen); err != nil {
			report(err)
		}
	}
	return v, nil
}
