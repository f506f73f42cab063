package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

// MockCacheRepository реализует repository.CacheRepository (нужны только счетчики)
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockCacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) Decrement(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func TestRegistry_JoinLeaveNotifies(t *testing.T) {
	reg := NewRegistry(NewLocalCounter(), nil)
	ctx := context.Background()

	var mu sync.Mutex
	var events []Event
	unsubscribe := reg.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	n, err := reg.Join(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = reg.Join(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = reg.Leave(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unsubscribe()
	unsubscribe()
	_, _ = reg.Join(ctx)

	require.Len(t, events, 3)
	assert.Equal(t, Event{Type: OnlineUsersChanged, OnlineUsers: 1}, events[0])
	assert.Equal(t, Event{Type: OnlineUsersChanged, OnlineUsers: 2}, events[1])
	assert.Equal(t, Event{Type: OnlineUsersChanged, OnlineUsers: 1}, events[2])

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRegistry_ListenerPanicDoesNotBreakOthers(t *testing.T) {
	reg := NewRegistry(nil, nil)
	got := 0
	reg.Subscribe(func(Event) { panic("boom") })
	reg.Subscribe(func(ev Event) { got = int(ev.OnlineUsers) })

	_, err := reg.Join(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestRegistry_ConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry(NewLocalCounter(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Join(ctx)
			_, _ = reg.Leave(ctx)
		}()
	}
	wg.Wait()

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestLocalCounter_NeverNegative(t *testing.T) {
	c := NewLocalCounter()
	n, err := c.Decr(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRedisCounter(t *testing.T) {
	ctx := context.Background()

	t.Run("incr and value", func(t *testing.T) {
		cache := new(MockCacheRepository)
		cache.On("Increment", ctx, OnlineCounterKey).Return(int64(3), nil)
		cache.On("Get", ctx, OnlineCounterKey).Return("3", nil)

		c := NewRedisCounter(cache)
		n, err := c.Incr(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		v, err := c.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), v)
	})

	t.Run("missing key is zero", func(t *testing.T) {
		cache := new(MockCacheRepository)
		cache.On("Get", ctx, OnlineCounterKey).Return("", apperrors.ErrNotFound)

		v, err := NewRedisCounter(cache).Value(ctx)
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("decr below zero is corrected", func(t *testing.T) {
		cache := new(MockCacheRepository)
		cache.On("Decrement", ctx, OnlineCounterKey).Return(int64(-1), nil).Once()
		cache.On("Increment", ctx, OnlineCounterKey).Return(int64(0), nil).Once()

		n, err := NewRedisCounter(cache).Decr(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		cache.AssertExpectations(t)
	})

	t.Run("redis failure propagates and nobody is notified", func(t *testing.T) {
		cache := new(MockCacheRepository)
		cache.On("Increment", ctx, OnlineCounterKey).Return(int64(0), errors.New("connection refused"))

		reg := NewRegistry(NewRedisCounter(cache), nil)
		notified := false
		reg.Subscribe(func(Event) { notified = true })

		_, err := reg.Join(ctx)
		assert.Error(t, err)
		assert.False(t, notified)
	})
}
