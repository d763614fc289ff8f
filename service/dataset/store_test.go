package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"techintel-service/service/loader"
	"techintel-service/service/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleRecords() []models.CompanyRecord {
	return []models.CompanyRecord{
		{ID: "A", Sector: "fintech", TotalEmployees: 20, EngineerCount: 15, EngineeringPercentage: 75},
		{ID: "B", Sector: "health", TotalEmployees: 200, EngineerCount: 40, EngineeringPercentage: 20},
	}
}

// gatedLoader 在放行前阻塞加载，用于验证并发合并
type gatedLoader struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (l *gatedLoader) Load(ctx context.Context) (*models.Dataset, error) {
	if l.calls.Add(1) == 1 {
		close(l.entered)
	}
	<-l.release
	return (&loader.StaticLoader{Records: sampleRecords()}).Load(ctx)
}

func (l *gatedLoader) Source() string { return "gated" }

func TestStore_ReloadPublishesSnapshot(t *testing.T) {
	store := NewStore(&loader.StaticLoader{Name: "static", Records: sampleRecords()})
	assert.Nil(t, store.Current())
	assert.False(t, store.Ready())
	assert.False(t, store.Status().Ready)

	var events []ReloadEvent
	store.OnReload(func(e ReloadEvent) { events = append(events, e) })

	first, err := store.Reload(context.Background(), TriggerStartup)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Version)
	assert.Same(t, first, store.Current())

	second, err := store.Reload(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.NotEqual(t, first.Version, second.Version, "每次加载生成新版本")
	assert.Len(t, first.Records, 2, "旧快照保持不变")

	require.Len(t, events, 2)
	assert.Equal(t, TriggerStartup, events[0].Trigger)
	assert.Empty(t, events[0].OldVersion)
	assert.Equal(t, first.Version, events[1].OldVersion)
	assert.Equal(t, second.Version, events[1].NewVersion)
	assert.True(t, events[1].Succeeded())

	status := store.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, second.Version, status.Version)
	assert.Equal(t, 2, status.Records)
	assert.Equal(t, int64(2), status.Reloads)
	assert.Equal(t, TriggerManual, status.LastTrigger)
	assert.Equal(t, "static", status.Source)
}

func TestStore_FailedReloadKeepsSnapshot(t *testing.T) {
	l := &loader.StaticLoader{Records: sampleRecords()}
	store := NewStore(l)

	good, err := store.Reload(context.Background(), TriggerStartup)
	require.NoError(t, err)

	var failed ReloadEvent
	store.OnReload(func(e ReloadEvent) { failed = e })

	l.Err = loader.ErrDataUnavailable
	_, err = store.Reload(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, loader.ErrDataUnavailable)

	assert.Same(t, good, store.Current())
	assert.False(t, failed.Succeeded())
	assert.Equal(t, good.Version, failed.OldVersion)

	status := store.Status()
	assert.True(t, status.Ready)
	assert.Contains(t, status.LastError, "unavailable")
	assert.Equal(t, int64(1), status.Reloads)
}

func TestStore_InitialFailure(t *testing.T) {
	store := NewStore(&loader.StaticLoader{Err: errors.New("boom")})
	_, err := store.Reload(context.Background(), TriggerStartup)
	require.Error(t, err)
	assert.Nil(t, store.Current())

	status := store.Status()
	assert.False(t, status.Ready)
	assert.Equal(t, "boom", status.LastError)
	assert.Empty(t, status.Columns)
}

func TestStore_ConcurrentReloadsCoalesce(t *testing.T) {
	l := &gatedLoader{entered: make(chan struct{}), release: make(chan struct{})}
	store := NewStore(l)

	const callers = 8
	versions := make([]string, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ds, err := store.Reload(context.Background(), TriggerManual)
		if err == nil {
			versions[0] = ds.Version
		}
	}()
	<-l.entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := store.Reload(context.Background(), TriggerManual)
			if err == nil {
				versions[i] = ds.Version
			}
		}(i)
	}
	assert.Eventually(t, func() bool { return store.requested.Load() == callers }, time.Second, 5*time.Millisecond)
	close(l.release)
	wg.Wait()

	// 加载中到达的请求不会复用已开始的加载，但仍合并执行
	calls := l.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(2))
	assert.NotEmpty(t, versions[0])
	for _, v := range versions[1:] {
		assert.NotEmpty(t, v)
		assert.NotEqual(t, versions[0], v, "加载开始后的请求必须得到新的加载结果")
	}
}

// versionedLoader 读取来源版本后阻塞，模拟加载期间来源被修改
type versionedLoader struct {
	revision atomic.Int32
	calls    atomic.Int32
	entered  chan struct{}
	release  chan struct{}
}

func (l *versionedLoader) Load(ctx context.Context) (*models.Dataset, error) {
	id := fmt.Sprintf("rev-%d", l.revision.Load())
	if l.calls.Add(1) == 1 {
		close(l.entered)
		<-l.release
	}
	return (&loader.StaticLoader{Records: []models.CompanyRecord{
		{ID: id, Sector: "ai", TotalEmployees: 10, EngineerCount: 5, EngineeringPercentage: 50},
	}}).Load(ctx)
}

func (l *versionedLoader) Source() string { return "versioned" }

func TestStore_ChangeDuringLoadIsNotLost(t *testing.T) {
	l := &versionedLoader{entered: make(chan struct{}), release: make(chan struct{})}
	l.revision.Store(1)
	store := NewStore(l)

	startup := make(chan *models.Dataset, 1)
	go func() {
		ds, _ := store.Reload(context.Background(), TriggerStartup)
		startup <- ds
	}()
	<-l.entered

	// 来源在首次加载读取之后发生变化
	l.revision.Store(2)
	watched := make(chan *models.Dataset, 1)
	go func() {
		ds, _ := store.Reload(context.Background(), TriggerFileWatch)
		watched <- ds
	}()
	assert.Eventually(t, func() bool { return store.requested.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(l.release)

	first := <-startup
	require.NotNil(t, first)
	assert.Equal(t, "rev-1", first.Records[0].ID)

	latest := <-watched
	require.NotNil(t, latest)
	assert.Equal(t, "rev-2", latest.Records[0].ID, "文件变化后的重载应读取新内容")
	assert.Equal(t, "rev-2", store.Current().Records[0].ID)
	assert.Equal(t, int32(2), l.calls.Load())
}

// ctxLoader 上下文取消时返回错误
type ctxLoader struct{}

func (ctxLoader) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return (&loader.StaticLoader{Records: sampleRecords()}).Load(ctx)
}

func (ctxLoader) Source() string { return "ctx" }

func TestStore_ReloadIgnoresCallerCancellation(t *testing.T) {
	store := NewStore(ctxLoader{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds, err := store.Reload(ctx, TriggerManual)
	require.NoError(t, err, "调用方断开不应取消共享加载")
	assert.Len(t, ds.Records, 2)
}
