/*
 * @module service/dataset/pg_listener
 * @description PostgreSQL变更通知监听，company_records表变更后触发重载
 * @architecture 事件驱动架构 - LISTEN/NOTIFY
 * @documentReference DESIGN.md
 * @stateFlow 安装语句级触发器 -> LISTEN通道 -> 收到通知 -> 触发重载
 * @rules 触发器为语句级，批量导入只产生一次通知；连接断开由pq自动重连，重连后补一次重载
 * @dependencies github.com/lib/pq, gorm.io/gorm
 * @refs service/dataset/store.go, service/loader/db_loader.go
 */

package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// NotifyChannel 数据集变更通知通道
const NotifyChannel = "company_dataset_changes"

const installTriggerSQL = `
CREATE OR REPLACE FUNCTION notify_company_dataset_changes()
RETURNS TRIGGER AS $$
BEGIN
    PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'timestamp', extract(epoch from now())
    )::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS company_records_notify ON company_records;
CREATE TRIGGER company_records_notify
AFTER INSERT OR UPDATE OR DELETE OR TRUNCATE ON company_records
FOR EACH STATEMENT EXECUTE FUNCTION notify_company_dataset_changes();`

// InstallNotifyTrigger 安装变更通知函数和触发器
func InstallNotifyTrigger(db *gorm.DB) error {
	if err := db.Exec(installTriggerSQL).Error; err != nil {
		return fmt.Errorf("安装变更通知触发器失败: %w", err)
	}
	slog.Info("变更通知触发器已安装", "channel", NotifyChannel)
	return nil
}

// PGListener PostgreSQL通知监听器
type PGListener struct {
	store    *Store
	listener *pq.Listener
	started  bool
	doneCh   chan struct{}
}

// NewPGListener 创建监听器，connStr为lib/pq格式的连接串
func NewPGListener(store *Store, connStr string) *PGListener {
	l := &PGListener{store: store, doneCh: make(chan struct{})}
	l.listener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("PostgreSQL监听器事件", "event", ev, "error", err)
		}
	})
	return l
}

// Start 开始监听，非阻塞
func (l *PGListener) Start(ctx context.Context) error {
	if err := l.listener.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("监听数据库通知失败: %w", err)
	}
	slog.Info("数据库通知监听已启动", "channel", NotifyChannel)
	l.started = true
	go l.run(ctx)
	return nil
}

func (l *PGListener) run(ctx context.Context) {
	defer close(l.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-l.listener.Notify:
			if !ok {
				return
			}
			// 重连后pq会发送nil，期间可能丢失通知
			if n == nil {
				slog.Info("数据库通知连接已恢复，执行补偿重载")
			} else {
				slog.Debug("收到数据集变更通知", "payload", n.Extra)
			}
			if _, err := l.store.Reload(ctx, TriggerDBNotify); err != nil {
				slog.Warn("数据库变更后重载失败", "error", err)
			}
		}
	}
}

// Stop 关闭监听连接
func (l *PGListener) Stop() {
	if err := l.listener.Close(); err != nil {
		slog.Error("关闭数据库通知监听失败", "error", err)
	}
	if l.started {
		<-l.doneCh
	}
}
