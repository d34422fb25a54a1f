package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

const (
	entryPrefix = "schoolhub:q:"
	tablePrefix = "schoolhub:t:" // set of the entry keys of a table
)

// Redis shares the cache between app instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ core.Cache = (*Redis)(nil)

func NewRedis(conf *core.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.Redis.Addr)
	}
	return NewRedisWithClient(client, conf.Cache.TTL), nil
}

func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func entryKey(key string) string   { return entryPrefix + key }
func tableKey(table string) string { return tablePrefix + table }

func (r *Redis) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrap(err, "getting cache entry")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrap(err, "decoding cache entry")
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, table, key string, val interface{}) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding cache entry")
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, entryKey(key), data, r.ttl)
	pipe.SAdd(ctx, tableKey(table), entryKey(key))
	if r.ttl > 0 {
		pipe.Expire(ctx, tableKey(table), r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "setting cache entry")
}

func (r *Redis) InvalidateTable(ctx context.Context, table string) error {
	keys, err := r.client.SMembers(ctx, tableKey(table)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "listing table entries")
	}
	keys = append(keys, tableKey(table))
	return errors.Wrap(r.client.Del(ctx, keys...).Err(), "deleting table entries")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
