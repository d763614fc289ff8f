/*
 * @module KafkaConnector
 * @description Kafka连接器，将数据集事件写入Kafka主题
 * @architecture 适配器模式 - 封装第三方Kafka客户端，实现事件发布者接口
 * @documentReference DESIGN.md
 * @stateFlow 创建生产者 -> 事件发送 -> 关闭生产者
 * @rules 消息键为事件类型，保证同类事件分区内有序；附加自定义消息头
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/event/notifier.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"techintel-service/service/models"
)

// messageWriter kafka.Writer的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConnector Kafka连接器结构体
type KafkaConnector struct {
	config *models.KafkaConfig
	writer messageWriter
	mutex  sync.Mutex
	stats  PublishStats
}

// NewKafkaConnector 创建新的Kafka连接器
func NewKafkaConnector(config *models.KafkaConfig) *KafkaConnector {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}
	if config.WriteTimeout > 0 {
		writer.WriteTimeout = config.WriteTimeout
	}
	return &KafkaConnector{config: config, writer: writer}
}

// Name 实现event.Publisher接口
func (kc *KafkaConnector) Name() string {
	return "kafka"
}

// Publish 实现event.Publisher接口
func (kc *KafkaConnector) Publish(ctx context.Context, event *models.SSEEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化消息值失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventType),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	for key, v := range kc.config.CustomHeaders {
		msg.Headers = append(msg.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := kc.writer.WriteMessages(ctx, msg); err != nil {
		kc.mutex.Lock()
		kc.stats.LastError = err.Error()
		kc.mutex.Unlock()
		return fmt.Errorf("发送消息失败: %w", err)
	}

	kc.mutex.Lock()
	kc.stats.MessagesSent++
	kc.stats.BytesSent += int64(len(value))
	if kc.stats.ConnectedAt.IsZero() {
		kc.stats.ConnectedAt = time.Now()
	}
	kc.mutex.Unlock()

	slog.Debug("事件已发送到Kafka", "topic", kc.config.Topic, "event_type", event.EventType)
	return nil
}

// Close 关闭生产者
func (kc *KafkaConnector) Close() error {
	return kc.writer.Close()
}

// GetStatistics 获取连接器统计信息
func (kc *KafkaConnector) GetStatistics() PublishStats {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	return kc.stats
}
