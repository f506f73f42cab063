package presence

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

// OnlineCounterKey ключ общего счетчика в Redis
const OnlineCounterKey = "presence:online"

// Counter хранилище числа подключенных посетителей
type Counter interface {
	Incr(ctx context.Context) (int64, error)
	Decr(ctx context.Context) (int64, error)
	Value(ctx context.Context) (int64, error)
}

// LocalCounter счетчик в памяти процесса (один экземпляр приложения)
type LocalCounter struct {
	n atomic.Int64
}

// NewLocalCounter создает счетчик в памяти
func NewLocalCounter() *LocalCounter {
	return &LocalCounter{}
}

func (c *LocalCounter) Incr(context.Context) (int64, error) {
	return c.n.Add(1), nil
}

func (c *LocalCounter) Decr(context.Context) (int64, error) {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			return 0, nil
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			return cur - 1, nil
		}
	}
}

func (c *LocalCounter) Value(context.Context) (int64, error) {
	return c.n.Load(), nil
}

// RedisCounter общий для всех экземпляров счетчик (INCR/DECR)
type RedisCounter struct {
	cache repository.CacheRepository
	key   string
}

// NewRedisCounter создает счетчик поверх кеша
func NewRedisCounter(cache repository.CacheRepository) *RedisCounter {
	return &RedisCounter{cache: cache, key: OnlineCounterKey}
}

func (c *RedisCounter) Incr(ctx context.Context) (int64, error) {
	return c.cache.Increment(ctx, c.key)
}

// Decr не опускает видимое значение ниже нуля
// (после рестарта Redis ключ мог обнулиться раньше, чем отключились клиенты)
func (c *RedisCounter) Decr(ctx context.Context) (int64, error) {
	n, err := c.cache.Decrement(ctx, c.key)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		if _, err := c.cache.Increment(ctx, c.key); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return n, nil
}

func (c *RedisCounter) Value(ctx context.Context) (int64, error) {
	raw, err := c.cache.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
