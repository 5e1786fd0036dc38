package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"incident-insights-go/internal/logger"
	"incident-insights-go/internal/types"
)

const redisKeyPrefix = "incident-insights:cls:"

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis shares classifications across API replicas. Cache errors are logged
// and treated as misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedis(opts RedisOptions, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Discard()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Redis{client: client, ttl: opts.TTL, log: log.WithComponent("cache-redis")}
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Discard()
	}
	return &Redis{client: client, ttl: ttl, log: log.WithComponent("cache-redis")}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (types.Classification, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WithError(err).Warn("cache get failed")
		}
		return types.Classification{}, false
	}
	var c types.Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		r.log.WithError(err).Warn("cache entry corrupt")
		return types.Classification{}, false
	}
	return c, true
}

func (r *Redis) Set(ctx context.Context, key string, c types.Classification) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		r.log.WithError(err).Warn("cache set failed")
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
