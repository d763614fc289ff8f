/*
 * @module service/event_service
 * @description 事件管理服务，维护SSE连接并向客户端推送数据集重载事件
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 事件产生 -> 事件分发 -> 客户端推送
 * @rules 推送不阻塞生产者，客户端队列满时丢弃并计数
 * @dependencies techintel-service/service/models
 * @refs api/controllers/event_controller.go
 */

package event

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"techintel-service/service/models"
)

// ErrNoConnection 客户端没有活跃连接
var ErrNoConnection = errors.New("no active sse connection")

// clientQueueSize 每个连接缓冲的事件数
const clientQueueSize = 100

// EventService 事件管理服务
type EventService struct {
	connections map[string]map[string]*SSEClient // clientName -> connectionID -> client
	mu          sync.RWMutex
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID          string
	ClientName  string
	ClientIP    string
	ConnectedAt time.Time
	Channel     chan *models.SSEEvent
	Done        chan struct{}
	dropped     atomic.Int64
}

// NewEventService 创建事件服务实例
func NewEventService() *EventService {
	return &EventService{
		connections: make(map[string]map[string]*SSEClient),
	}
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (s *EventService) AddSSEConnection(clientName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[clientName] == nil {
		s.connections[clientName] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:          connectionID,
		ClientName:  clientName,
		ClientIP:    clientIP,
		ConnectedAt: time.Now(),
		Channel:     make(chan *models.SSEEvent, clientQueueSize),
		Done:        make(chan struct{}),
	}
	s.connections[clientName][connectionID] = client

	slog.Info("SSE连接已建立", "client", clientName, "connection_id", connectionID, "ip", clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *EventService) RemoveSSEConnection(clientName, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clientConnections, exists := s.connections[clientName]
	if !exists {
		return
	}
	client, exists := clientConnections[connectionID]
	if !exists {
		return
	}

	close(client.Done)
	delete(clientConnections, connectionID)
	if len(clientConnections) == 0 {
		delete(s.connections, clientName)
	}
	slog.Info("SSE连接已断开", "client", clientName, "connection_id", connectionID)
}

// SendEventToClient 向指定客户端的所有连接发送事件
func (s *EventService) SendEventToClient(clientName string, event *models.SSEEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clientConnections, exists := s.connections[clientName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNoConnection, clientName)
	}
	for _, client := range clientConnections {
		eventCopy := *event
		eventCopy.ClientName = clientName
		s.deliver(client, &eventCopy)
	}
	return nil
}

// BroadcastEvent 广播事件给所有连接，返回投递的连接数
func (s *EventService) BroadcastEvent(event *models.SSEEvent) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for clientName, clientConnections := range s.connections {
		for _, client := range clientConnections {
			eventCopy := *event
			eventCopy.ClientName = clientName
			if s.deliver(client, &eventCopy) {
				delivered++
			}
		}
	}
	return delivered
}

func (s *EventService) deliver(client *SSEClient, event *models.SSEEvent) bool {
	select {
	case client.Channel <- event:
		return true
	default:
		client.dropped.Add(1)
		slog.Warn("SSE连接事件队列已满，跳过发送", "client", client.ClientName, "connection_id", client.ID)
		return false
	}
}

// ConnectionCount 当前活跃连接数
func (s *EventService) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, clientConnections := range s.connections {
		n += len(clientConnections)
	}
	return n
}

// GetSSEConnectionList 返回活跃连接，按建立时间排序
func (s *EventService) GetSSEConnectionList() []models.SSEConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.SSEConnection, 0)
	for _, clientConnections := range s.connections {
		for _, client := range clientConnections {
			list = append(list, models.SSEConnection{
				ConnectionID: client.ID,
				ClientName:   client.ClientName,
				ClientIP:     client.ClientIP,
				ConnectedAt:  client.ConnectedAt,
				Dropped:      client.dropped.Load(),
			})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].ConnectedAt.Equal(list[j].ConnectedAt) {
			return list[i].ConnectedAt.Before(list[j].ConnectedAt)
		}
		return list[i].ConnectionID < list[j].ConnectionID
	})
	return list
}

// Stop 关闭全部连接
func (s *EventService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for clientName, clientConnections := range s.connections {
		for _, client := range clientConnections {
			close(client.Done)
		}
		delete(s.connections, clientName)
	}
	slog.Info("事件服务已停止")
}
