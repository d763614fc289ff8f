/*
 * @module service/dataset/scheduler
 * @description 定时检查数据来源修改时间，有变化时触发重载
 * @architecture 分层架构 - 后台任务
 * @documentReference DESIGN.md
 * @stateFlow 定时触发 -> 探测修改时间 -> 比较快照 -> 触发重载
 * @rules 来源不支持修改时间探测时每次都重载；探测失败只记录日志
 * @dependencies github.com/robfig/cron/v3
 * @refs service/dataset/store.go, service/loader/loader.go
 */

package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"techintel-service/service/loader"
)

// DefaultReloadSpec 默认检查周期，带秒字段
const DefaultReloadSpec = "0 */5 * * * *"

// ReloadScheduler 定时重载调度器
type ReloadScheduler struct {
	store  *Store
	spec   string
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewReloadScheduler 创建调度器，spec为空时使用默认周期
func NewReloadScheduler(store *Store, spec string) *ReloadScheduler {
	if spec == "" {
		spec = DefaultReloadSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReloadScheduler{
		store:  store,
		spec:   spec,
		cron:   cron.New(cron.WithSeconds()),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动定时检查
func (s *ReloadScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.CheckAndReload(s.ctx); err != nil {
			slog.Warn("定时重载失败", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true
	slog.Info("定时重载已启动", "spec", s.spec)
	return nil
}

// Stop 停止定时检查并等待正在执行的任务结束
func (s *ReloadScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.started = false
	slog.Info("定时重载已停止")
}

// CheckAndReload 检查来源是否变化，变化时重载，返回是否执行了重载
func (s *ReloadScheduler) CheckAndReload(ctx context.Context) (bool, error) {
	if !s.changed() {
		return false, nil
	}
	if _, err := s.store.Reload(ctx, TriggerSchedule); err != nil {
		return true, err
	}
	return true, nil
}

func (s *ReloadScheduler) changed() bool {
	current := s.store.Current()
	if current == nil {
		return true
	}

	source, ok := s.store.Loader().(loader.ModTimeSource)
	if !ok {
		return true
	}
	modTime, err := source.ModTime()
	if errors.Is(err, loader.ErrModTimeUnsupported) {
		return true
	}
	if err != nil {
		slog.Warn("探测数据来源修改时间失败", "source", s.store.Loader().Source(), "error", err)
		return false
	}
	return modTime.After(current.SourceModTime)
}
