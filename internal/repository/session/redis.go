package session

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"ordercloud-storefront/internal/domain"
)

const (
	fieldValue   = "value"
	fieldVersion = "version"
	casAttempts  = 3
)

// RedisRepo keeps each key as a hash of value and version.
type RedisRepo struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

func NewRedis(rdb *redis.Client, logger *log.Logger, ttl time.Duration) *RedisRepo {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RedisRepo{rdb: rdb, prefix: "storefront:", ttl: ttl, logger: logger}
}

func (r *RedisRepo) Get(ctx context.Context, key string) (Entry, error) {
	vals, err := r.rdb.HGetAll(ctx, r.prefix+key).Result()
	if err != nil {
		r.logger.Printf("session redis: get key=%s error=%v", key, err)
		return Entry{}, err
	}
	if len(vals) == 0 {
		return Entry{}, domain.ErrNotFound
	}
	version, err := strconv.ParseInt(vals[fieldVersion], 10, 64)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Value: vals[fieldValue], Version: version}, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string) (int64, error) {
	k := r.prefix + key
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldValue, value)
		incr = pipe.HIncrBy(ctx, k, fieldVersion, 1)
		r.expire(ctx, pipe, k)
		return nil
	})
	if err != nil {
		r.logger.Printf("session redis: set key=%s error=%v", key, err)
		return 0, err
	}
	return incr.Val(), nil
}

func (r *RedisRepo) CompareAndSet(ctx context.Context, key, value string, expectVersion int64) (int64, bool, error) {
	k := r.prefix + key
	swapped := false
	var version int64
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, fieldVersion).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != expectVersion {
			swapped = false
			version = current
			return nil
		}
		var incr *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldValue, value)
			incr = pipe.HIncrBy(ctx, k, fieldVersion, 1)
			r.expire(ctx, pipe, k)
			return nil
		})
		if err == nil {
			swapped = true
			version = incr.Val()
		}
		return err
	}

	for i := 0; i < casAttempts; i++ {
		err := r.rdb.Watch(ctx, txf, k)
		if err == nil {
			return version, swapped, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			// Someone touched the key between WATCH and EXEC; re-check the version.
			continue
		}
		r.logger.Printf("session redis: cas key=%s version=%d error=%v", key, expectVersion, err)
		return 0, false, err
	}
	return 0, false, nil
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	n, err := r.rdb.Del(ctx, r.prefix+key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RedisRepo) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
}

// Ping reports whether Redis is reachable.
func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
