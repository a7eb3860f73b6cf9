package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

const redisKeyPrefix = "shortener:dest:"

// Redis shares cached destinations between instances. Values are JSON and
// carry the link's expiry; the key TTL mirrors it.
type Redis struct {
	client *redis.Client
	maxTTL time.Duration
	now    func() time.Time
}

// NewRedis parses a redis:// URL and checks the server is reachable.
func NewRedis(ctx context.Context, redisURL string, maxTTL time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewRedisWithClient(client, maxTTL), nil
}

func NewRedisWithClient(client *redis.Client, maxTTL time.Duration) *Redis {
	return &Redis{client: client, maxTTL: maxTTL, now: time.Now}
}

func (r *Redis) Get(ctx context.Context, slug string) (domain.Destination, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+slug).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Destination{}, false, nil
	}
	if err != nil {
		return domain.Destination{}, false, errors.Wrap(err, "redis get")
	}

	var dest domain.Destination
	if err := json.Unmarshal(raw, &dest); err != nil {
		return domain.Destination{}, false, errors.Wrap(err, "decode cached destination")
	}
	return dest, true, nil
}

func (r *Redis) Set(ctx context.Context, slug string, dest domain.Destination) error {
	ttl, ok := entryTTL(dest, r.now(), r.maxTTL)
	if !ok {
		return nil
	}
	raw, err := json.Marshal(dest)
	if err != nil {
		return errors.Wrap(err, "encode destination")
	}
	return errors.Wrap(r.client.Set(ctx, redisKeyPrefix+slug, raw, ttl).Err(), "redis set")
}

func (r *Redis) Delete(ctx context.Context, slug string) error {
	return errors.Wrap(r.client.Del(ctx, redisKeyPrefix+slug).Err(), "redis del")
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ ports.RedirectCache = (*Redis)(nil)
