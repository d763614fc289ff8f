/*
 * @module service/dataset/watcher
 * @description 数据文件监听器，文件变更后防抖触发重载
 * @architecture 观察者模式 - 文件系统事件驱动
 * @documentReference DESIGN.md
 * @stateFlow 监听目录 -> 过滤目标文件 -> 防抖合并 -> 触发重载
 * @rules 监听文件所在目录以兼容编辑器的重命名保存；连续写入在防抖窗口内只触发一次
 * @dependencies github.com/fsnotify/fsnotify
 * @refs service/dataset/store.go
 */

package dataset

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时长
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher 数据文件监听器
type FileWatcher struct {
	store    *Store
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu        sync.Mutex
	running   bool
	pending   bool
	lastEvent time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewFileWatcher 创建文件监听器
func NewFileWatcher(store *Store, path string, debounce time.Duration) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &FileWatcher{
		store:    store,
		path:     abs,
		debounce: debounce,
		watcher:  watcher,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start 开始监听，非阻塞
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	slog.Info("数据文件监听已启动", "path", w.path, "debounce", w.debounce)

	go w.run(ctx)
	return nil
}

// Stop 停止监听并等待退出
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		slog.Error("关闭文件监听失败", "error", err)
	}
	slog.Info("数据文件监听已停止", "path", w.path)
}

func (w *FileWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("文件监听错误", "error", err)
		case <-ticker.C:
			if w.due() {
				if _, err := w.store.Reload(ctx, TriggerFileWatch); err != nil {
					slog.Warn("文件变更后重载失败", "path", w.path, "error", err)
				}
			}
		}
	}
}

func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	slog.Debug("数据文件变更", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

// due 防抖窗口结束后返回true并清除待处理标记
func (w *FileWatcher) due() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending || time.Since(w.lastEvent) < w.debounce {
		return false
	}
	w.pending = false
	return true
}
