/*
 * @module service/dataset/store
 * @description 数据集快照存储，负责加载、原子替换和重载通知
 * @architecture 快照模式 - 查询持有开始时的快照，重载只替换指针
 * @documentReference DESIGN.md
 * @stateFlow 触发重载 -> 合并并发请求 -> 加载来源 -> 生成版本 -> 原子替换 -> 通知监听者
 * @rules 同一时刻只运行一次加载；加载失败保留旧快照；快照发布后只读
 * @dependencies sync/atomic, golang.org/x/sync/singleflight, github.com/google/uuid
 * @refs service/loader, service/company
 */

package dataset

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"techintel-service/service/loader"
	"techintel-service/service/models"
)

// Trigger 重载触发来源
type Trigger string

const (
	TriggerStartup   Trigger = "startup"
	TriggerManual    Trigger = "manual"
	TriggerFileWatch Trigger = "file_watch"
	TriggerSchedule  Trigger = "schedule"
	TriggerDBNotify  Trigger = "db_notify"
)

// ReloadEvent 一次重载的结果
type ReloadEvent struct {
	Trigger    Trigger   `json:"trigger"`
	Source     string    `json:"source"`
	OldVersion string    `json:"old_version,omitempty"`
	NewVersion string    `json:"new_version,omitempty"`
	Records    int       `json:"records"`
	Rejected   int       `json:"rejected"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Succeeded 重载是否成功
func (e ReloadEvent) Succeeded() bool {
	return e.Error == ""
}

// ReloadListener 重载监听函数，同步调用，耗时操作应自行异步
type ReloadListener func(ReloadEvent)

// Status 数据集状态
type Status struct {
	Ready         bool      `json:"ready"`
	Version       string    `json:"version,omitempty"`
	Source        string    `json:"source"`
	LoadedAt      time.Time `json:"loaded_at,omitempty"`
	SourceModTime time.Time `json:"source_mod_time,omitempty"`
	Records       int       `json:"records"`
	Rejected      int       `json:"rejected"`
	Columns       []string  `json:"columns"`
	Reloads       int64     `json:"reloads"`
	LastTrigger   Trigger   `json:"last_trigger,omitempty"`
	LastAttempt   time.Time `json:"last_attempt,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Store 数据集快照存储
type Store struct {
	loader  loader.Loader
	current atomic.Pointer[models.Dataset]
	group   singleflight.Group
	reloads atomic.Int64
	// requested 已收到的重载请求数
	requested atomic.Uint64

	mu          sync.RWMutex
	listeners   []ReloadListener
	lastTrigger Trigger
	lastAttempt time.Time
	lastErr     string
}

// NewStore 创建快照存储，此时尚未加载数据
func NewStore(l loader.Loader) *Store {
	return &Store{loader: l}
}

// Loader 返回数据来源
func (s *Store) Loader() loader.Loader {
	return s.loader
}

// Current 返回当前快照，未加载时为nil
func (s *Store) Current() *models.Dataset {
	return s.current.Load()
}

// Ready 是否已有可用快照
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

// OnReload 注册重载监听
func (s *Store) OnReload(fn ReloadListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload 重新加载数据集，并发调用合并为一次加载并共享结果
//
// 加载开始之后到达的请求不会复用这次结果，而是在其结束后合并为下一次加载，
// 保证返回的快照读取于请求之后。加载与调用方的取消信号分离。
func (s *Store) Reload(ctx context.Context, trigger Trigger) (*models.Dataset, error) {
	want := s.requested.Add(1)
	ctx = context.WithoutCancel(ctx)

	for {
		v, err, shared := s.group.Do("reload", func() (interface{}, error) {
			gen := s.requested.Load()
			ds, err := s.reload(ctx, trigger)
			return loadResult{ds: ds, gen: gen}, err
		})
		res := v.(loadResult)
		if res.gen < want {
			slog.Debug("加载开始后收到重载请求，重新加载", "trigger", trigger)
			continue
		}
		if shared {
			slog.Debug("重载请求已合并", "trigger", trigger)
		}
		if err != nil {
			return nil, err
		}
		return res.ds, nil
	}
}

// loadResult 一次加载的结果及其覆盖的请求代数
type loadResult struct {
	ds  *models.Dataset
	gen uint64
}

func (s *Store) reload(ctx context.Context, trigger Trigger) (*models.Dataset, error) {
	started := time.Now()
	previous := s.current.Load()
	event := ReloadEvent{
		Trigger: trigger,
		Source:  s.loader.Source(),
		At:      started,
	}
	if previous != nil {
		event.OldVersion = previous.Version
	}

	ds, err := s.loader.Load(ctx)

	s.mu.Lock()
	s.lastTrigger = trigger
	s.lastAttempt = started
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("数据集加载失败，保留当前快照",
			"trigger", trigger, "source", event.Source, "error", err)
		event.Error = err.Error()
		s.notify(event)
		return nil, err
	}

	ds.Version = uuid.NewString()
	s.current.Store(ds)
	s.reloads.Add(1)

	event.NewVersion = ds.Version
	event.Records = ds.Len()
	event.Rejected = len(ds.Rejected)
	slog.Info("数据集已加载",
		"trigger", trigger,
		"source", event.Source,
		"version", ds.Version,
		"records", event.Records,
		"rejected", event.Rejected,
		"duration", time.Since(started))

	s.notify(event)
	return ds, nil
}

func (s *Store) notify(event ReloadEvent) {
	s.mu.RLock()
	listeners := make([]ReloadListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

// Status 返回数据集状态
func (s *Store) Status() Status {
	s.mu.RLock()
	status := Status{
		Source:      s.loader.Source(),
		Reloads:     s.reloads.Load(),
		LastTrigger: s.lastTrigger,
		LastAttempt: s.lastAttempt,
		LastError:   s.lastErr,
		Columns:     []string{},
	}
	s.mu.RUnlock()

	if ds := s.current.Load(); ds != nil {
		status.Ready = true
		status.Version = ds.Version
		status.LoadedAt = ds.LoadedAt
		status.SourceModTime = ds.SourceModTime
		status.Records = ds.Len()
		status.Rejected = len(ds.Rejected)
		status.Columns = ds.Columns.List()
	}
	return status
}
