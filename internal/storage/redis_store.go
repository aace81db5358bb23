package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "photojournalism:response:"

// redisStore implements a Store on a shared Redis instance. Expiry is left
// to Redis key TTLs, so there is no cleanup pass.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func openRedis(opts Options) (Store, error) {
	client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.RedisAddr, err)
	}
	return &redisStore{client: client, ttl: opts.TTL}, nil
}

func redisKey(url string) string {
	return redisKeyPrefix + url
}

func (r *redisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *redisStore) Lookup(ctx context.Context, url string) (Entry, bool, error) {
	data, err := r.client.Get(ctx, redisKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (r *redisStore) Save(ctx context.Context, url string, entry Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKey(url), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
