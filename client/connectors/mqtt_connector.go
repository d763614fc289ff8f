/*
 * @module MQTTConnector
 * @description MQTT连接器，将数据集事件发布到MQTT主题
 * @architecture 适配器模式 - 封装第三方MQTT客户端，实现事件发布者接口
 * @documentReference DESIGN.md
 * @stateFlow 连接建立 -> 事件发布 -> 连接断开
 * @rules 支持自动重连、QoS控制、保留消息；未连接时发布直接返回错误
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/event/notifier.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"techintel-service/service/models"
)

// ErrNotConnected 连接器尚未连接
var ErrNotConnected = errors.New("connector not connected")

// MQTTConnector MQTT连接器结构体
type MQTTConnector struct {
	config      *models.MQTTConfig
	client      mqtt.Client
	mutex       sync.RWMutex
	isConnected bool
	stats       PublishStats
}

// PublishStats 发布统计信息
type PublishStats struct {
	ConnectedAt    time.Time `json:"connected_at"`
	MessagesSent   int64     `json:"messages_sent"`
	BytesSent      int64     `json:"bytes_sent"`
	ReconnectCount int       `json:"reconnect_count"`
	LastError      string    `json:"last_error"`
}

// NewMQTTConnector 创建新的MQTT连接器
func NewMQTTConnector(config *models.MQTTConfig) *MQTTConnector {
	connector := &MQTTConnector{config: config}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetCleanSession(config.CleanSession)
	if config.KeepAlive > 0 {
		opts.SetKeepAlive(config.KeepAlive)
	}
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(connector.onConnected)
	opts.SetConnectionLostHandler(connector.onConnectionLost)

	connector.client = mqtt.NewClient(opts)
	return connector
}

// Name 实现event.Publisher接口
func (mc *MQTTConnector) Name() string {
	return "mqtt"
}

// Connect 建立MQTT连接
func (mc *MQTTConnector) Connect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.isConnected {
		return nil
	}

	slog.Info("正在连接MQTT broker", "broker", mc.config.Broker)
	if token := mc.client.Connect(); token.Wait() && token.Error() != nil {
		mc.stats.LastError = token.Error().Error()
		return fmt.Errorf("MQTT连接失败: %w", token.Error())
	}

	mc.isConnected = true
	mc.stats.ConnectedAt = time.Now()
	return nil
}

// Disconnect 断开MQTT连接
func (mc *MQTTConnector) Disconnect() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if !mc.isConnected {
		return
	}
	mc.client.Disconnect(250) // 等待250ms让消息发送完成
	mc.isConnected = false
	slog.Info("MQTT连接器已断开连接")
}

// Publish 实现event.Publisher接口
func (mc *MQTTConnector) Publish(ctx context.Context, event *models.SSEEvent) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化消息载荷失败: %w", err)
	}

	token := mc.client.Publish(mc.config.Topic, mc.config.QoS, mc.config.Retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		mc.mutex.Lock()
		mc.stats.LastError = err.Error()
		mc.mutex.Unlock()
		return fmt.Errorf("发布消息失败: %w", err)
	}

	mc.mutex.Lock()
	mc.stats.MessagesSent++
	mc.stats.BytesSent += int64(len(payload))
	mc.mutex.Unlock()

	slog.Debug("事件已发布到MQTT主题", "topic", mc.config.Topic, "event_type", event.EventType)
	return nil
}

func (mc *MQTTConnector) onConnected(client mqtt.Client) {
	mc.mutex.Lock()
	mc.isConnected = true
	mc.stats.ConnectedAt = time.Now()
	mc.mutex.Unlock()
	slog.Info("MQTT连接已建立", "broker", mc.config.Broker)
}

func (mc *MQTTConnector) onConnectionLost(client mqtt.Client, err error) {
	mc.mutex.Lock()
	mc.isConnected = false
	mc.stats.ReconnectCount++
	mc.stats.LastError = err.Error()
	mc.mutex.Unlock()
	slog.Warn("MQTT连接丢失", "error", err)
}

// IsConnected 检查连接状态
func (mc *MQTTConnector) IsConnected() bool {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return mc.isConnected
}

// GetStatistics 获取连接器统计信息
func (mc *MQTTConnector) GetStatistics() PublishStats {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return mc.stats
}
