package distributed_lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLock 内存实现，用于测试执行器
type memoryLock struct {
	mu       sync.Mutex
	held     map[string]bool
	unlocked []string
	err      error
}

func (m *memoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memoryLock) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	m.unlocked = append(m.unlocked, key)
	return nil
}

func TestLockExecutor_RunsAndReleases(t *testing.T) {
	lock := &memoryLock{held: map[string]bool{}}
	exec := NewLockExecutor(lock)

	calls := 0
	ran, err := exec.ExecuteWithLock(context.Background(), "trigger", time.Minute, func() error {
		calls++
		return errors.New("install failed")
	})
	assert.True(t, ran)
	assert.EqualError(t, err, "install failed")
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"trigger"}, lock.unlocked)
}

func TestLockExecutor_SkipsWhenHeld(t *testing.T) {
	lock := &memoryLock{held: map[string]bool{"trigger": true}}
	exec := NewLockExecutor(lock)

	ran, err := exec.ExecuteWithLock(context.Background(), "trigger", time.Minute, func() error {
		t.Fatal("不应执行")
		return nil
	})
	assert.False(t, ran)
	assert.NoError(t, err)
	assert.Empty(t, lock.unlocked)
}

func TestLockExecutor_LockError(t *testing.T) {
	exec := NewLockExecutor(&memoryLock{held: map[string]bool{}, err: errors.New("redis down")})
	ran, err := exec.ExecuteWithLock(context.Background(), "trigger", time.Minute, func() error { return nil })
	assert.False(t, ran)
	assert.Error(t, err)
}

func TestRedisLock(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis不可用，跳过集成测试")
	}

	key := "test_" + time.Now().Format("150405.000000000")
	a := NewRedisLock(client)
	b := &RedisLock{client: client, instanceID: "other"}

	ok, err := a.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// 非持有者释放无效
	require.NoError(t, b.Unlock(ctx, key))
	ok, _ = b.TryLock(ctx, key, time.Minute)
	assert.False(t, ok)

	require.NoError(t, a.Unlock(ctx, key))
	ok, err = b.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock(ctx, key))
}
