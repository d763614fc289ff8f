/*
 * @module service/models/event
 * @description 事件相关模型定义，包括SSE事件、连接信息和消息中间件配置
 * @architecture 事件驱动架构 - 数据模型层
 * @documentReference DESIGN.md
 * @stateFlow 事件生产 -> 事件分发 -> 事件消费
 * @rules 事件只在内存中分发，不落库
 * @dependencies github.com/google/uuid
 * @refs service/event, client/connectors
 */

package models

import (
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	EventTypeConnected           = "connected"
	EventTypeDatasetReloaded     = "dataset_reloaded"
	EventTypeDatasetReloadFailed = "dataset_reload_failed"
)

// SSEEvent 推送事件
type SSEEvent struct {
	ID         string                 `json:"id"`
	EventType  string                 `json:"event_type"`
	ClientName string                 `json:"client_name,omitempty"`
	Data       map[string]interface{} `json:"data"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewSSEEvent 创建事件并分配ID
func NewSSEEvent(eventType string, data map[string]interface{}) *SSEEvent {
	return &SSEEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Data:      data,
		CreatedAt: time.Now(),
	}
}

// SSEConnection SSE连接信息
type SSEConnection struct {
	ConnectionID string    `json:"connection_id"`
	ClientName   string    `json:"client_name"`
	ClientIP     string    `json:"client_ip"`
	ConnectedAt  time.Time `json:"connected_at"`
	Dropped      int64     `json:"dropped"`
}

// MQTTConfig MQTT发布配置
type MQTTConfig struct {
	Broker       string        `json:"broker" yaml:"broker"`
	ClientID     string        `json:"client_id" yaml:"client_id"`
	Username     string        `json:"username" yaml:"username"`
	Password     string        `json:"-" yaml:"password"`
	Topic        string        `json:"topic" yaml:"topic"`
	QoS          byte          `json:"qos" yaml:"qos"`
	Retained     bool          `json:"retained" yaml:"retained"`
	KeepAlive    time.Duration `json:"keep_alive" yaml:"keep_alive"`
	CleanSession bool          `json:"clean_session" yaml:"clean_session"`
}

// KafkaConfig Kafka发布配置
type KafkaConfig struct {
	Brokers       []string          `json:"brokers" yaml:"brokers"`
	Topic         string            `json:"topic" yaml:"topic"`
	RequiredAcks  int               `json:"required_acks" yaml:"required_acks"`
	WriteTimeout  time.Duration     `json:"write_timeout" yaml:"write_timeout"`
	CustomHeaders map[string]string `json:"custom_headers" yaml:"custom_headers"`
}
