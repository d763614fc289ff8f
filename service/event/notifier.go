/*
 * @module service/event/notifier
 * @description 数据集重载通知，将重载结果转为事件并分发给SSE和消息中间件
 * @architecture 发布订阅模式 - 扇出分发
 * @documentReference DESIGN.md
 * @stateFlow 重载完成 -> 构建事件 -> SSE广播 -> 外部发布者异步发送
 * @rules 外部发布失败只记录日志，不影响重载流程
 * @dependencies techintel-service/service/dataset, techintel-service/service/models
 * @refs client/connectors
 */

package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"techintel-service/service/dataset"
	"techintel-service/service/models"
)

// DefaultPublishTimeout 外部发布超时
const DefaultPublishTimeout = 5 * time.Second

// Publisher 外部事件发布者
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *models.SSEEvent) error
}

// ReloadNotifier 重载通知分发器
type ReloadNotifier struct {
	events     *EventService
	publishers []Publisher
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NewReloadNotifier 创建通知分发器，events可以为nil
func NewReloadNotifier(events *EventService, publishers ...Publisher) *ReloadNotifier {
	return &ReloadNotifier{
		events:     events,
		publishers: publishers,
		timeout:    DefaultPublishTimeout,
	}
}

// ReloadEventToSSE 将重载结果转换为推送事件
func ReloadEventToSSE(e dataset.ReloadEvent) *models.SSEEvent {
	eventType := models.EventTypeDatasetReloaded
	data := map[string]interface{}{
		"trigger":     string(e.Trigger),
		"source":      e.Source,
		"old_version": e.OldVersion,
		"at":          e.At.Format(time.RFC3339),
	}
	if e.Succeeded() {
		data["new_version"] = e.NewVersion
		data["records"] = e.Records
		data["rejected"] = e.Rejected
	} else {
		eventType = models.EventTypeDatasetReloadFailed
		data["error"] = e.Error
	}
	return models.NewSSEEvent(eventType, data)
}

// HandleReload 实现dataset.ReloadListener
func (n *ReloadNotifier) HandleReload(e dataset.ReloadEvent) {
	event := ReloadEventToSSE(e)

	if n.events != nil {
		delivered := n.events.BroadcastEvent(event)
		slog.Debug("重载事件已广播", "event_type", event.EventType, "connections", delivered)
	}

	for _, p := range n.publishers {
		n.wg.Add(1)
		go func(p Publisher) {
			defer n.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			defer cancel()
			if err := p.Publish(ctx, event); err != nil {
				slog.Warn("发布重载事件失败", "publisher", p.Name(), "error", err)
			}
		}(p)
	}
}

// Wait 等待进行中的外部发布完成
func (n *ReloadNotifier) Wait() {
	n.wg.Wait()
}
