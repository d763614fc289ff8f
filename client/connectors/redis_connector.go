/*
 * @module RedisConnector
 * @description Redis连接器，将数据集事件发布到Redis频道
 * @architecture 适配器模式 - 封装go-redis客户端，实现事件发布者接口
 * @documentReference DESIGN.md
 * @stateFlow 事件序列化 -> PUBLISH -> 统计订阅者数
 * @rules 与限流器共用同一个Redis客户端
 * @dependencies github.com/go-redis/redis/v8, encoding/json
 * @refs service/event/notifier.go, service/rate_limiter
 */
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"

	"techintel-service/service/models"
)

// DefaultRedisChannel 默认发布频道
const DefaultRedisChannel = "techintel:dataset_events"

// redisPublisher redis客户端的发布接口
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisConnector Redis连接器结构体
type RedisConnector struct {
	client  redisPublisher
	channel string
	mutex   sync.Mutex
	stats   PublishStats
}

// NewRedisConnector 创建Redis连接器，channel为空时使用默认频道
func NewRedisConnector(client redis.UniversalClient, channel string) *RedisConnector {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisConnector{client: client, channel: channel}
}

// Name 实现event.Publisher接口
func (rc *RedisConnector) Name() string {
	return "redis"
}

// Publish 实现event.Publisher接口
func (rc *RedisConnector) Publish(ctx context.Context, event *models.SSEEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	receivers, err := rc.client.Publish(ctx, rc.channel, payload).Result()
	if err != nil {
		rc.mutex.Lock()
		rc.stats.LastError = err.Error()
		rc.mutex.Unlock()
		return fmt.Errorf("发布消息失败: %w", err)
	}

	rc.mutex.Lock()
	rc.stats.MessagesSent++
	rc.stats.BytesSent += int64(len(payload))
	rc.mutex.Unlock()

	slog.Debug("事件已发布到Redis频道", "channel", rc.channel, "receivers", receivers)
	return nil
}

// GetStatistics 获取连接器统计信息
func (rc *RedisConnector) GetStatistics() PublishStats {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.stats
}
