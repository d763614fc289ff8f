/*
 * @module api/controllers/event_controller
 * @description 事件控制器，提供数据集重载事件的SSE订阅、连接列表和定向推送
 * @architecture RESTful API架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 建立连接 -> 发送connected事件 -> 循环推送 -> 断开清理
 * @rules 每个连接拥有独立队列，客户端断开或服务停止时结束推送
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/google/uuid
 * @refs service/event/event_service.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"techintel-service/service/event"
	"techintel-service/service/metrics"
	"techintel-service/service/models"
)

// EventController 事件控制器
type EventController struct {
	eventService *event.EventService
}

// NewEventController 创建事件控制器实例
func NewEventController(eventService *event.EventService) *EventController {
	return &EventController{eventService: eventService}
}

// HandleSSE 处理SSE连接
// @Summary 订阅数据集事件
// @Description 建立SSE连接，接收数据集重载成功或失败事件
// @Tags 事件
// @Param client_name path string true "客户端名称"
// @Success 200 {string} string "SSE事件流"
// @Router /sse/{client_name} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	clientName := chi.URLParam(r, "client_name")
	if clientName == "" {
		http.Error(w, "客户端名称不能为空", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	connectionID := uuid.New().String()
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	client := c.eventService.AddSSEConnection(clientName, connectionID, clientIP)
	metrics.SSEConnections.Inc()
	defer func() {
		c.eventService.RemoveSSEConnection(clientName, connectionID)
		metrics.SSEConnections.Dec()
	}()

	connected := models.NewSSEEvent(models.EventTypeConnected, map[string]interface{}{
		"connection_id": connectionID,
	})
	connected.ClientName = clientName
	if err := writeSSE(w, connected); err != nil {
		return
	}

	for {
		select {
		case ev := <-client.Channel:
			if err := writeSSE(w, ev); err != nil {
				slog.Warn("SSE写入失败", "client", clientName, "connection_id", connectionID, "error", err)
				return
			}
		case <-client.Done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writeSSE 按SSE格式写出事件并立即刷新
func writeSSE(w http.ResponseWriter, ev *models.SSEEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.EventType, data); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// GetSSEConnectionList 获取SSE连接列表
// @Summary 获取SSE连接列表
// @Description 返回当前所有SSE连接，按建立时间排序
// @Tags 事件
// @Produce json
// @Param client_name query string false "客户端名称过滤"
// @Success 200 {object} APIResponse{data=[]models.SSEConnection}
// @Router /events/connections [get]
func (c *EventController) GetSSEConnectionList(w http.ResponseWriter, r *http.Request) {
	clientName := r.URL.Query().Get("client_name")

	connections := c.eventService.GetSSEConnectionList()
	if clientName != "" {
		filtered := make([]models.SSEConnection, 0, len(connections))
		for _, conn := range connections {
			if conn.ClientName == clientName {
				filtered = append(filtered, conn)
			}
		}
		connections = filtered
	}

	render.Render(w, r, SuccessResponse("获取SSE连接列表成功", connections))
}

// SendEventRequest 定向推送请求
type SendEventRequest struct {
	EventType string                 `json:"event_type" example:"notice"`
	Data      map[string]interface{} `json:"data"`
}

// SendEvent 向指定客户端的所有连接推送事件
// @Summary 推送事件到客户端
// @Description 将事件推送给指定客户端名称下的全部SSE连接
// @Tags 事件
// @Accept json
// @Produce json
// @Param client_name path string true "客户端名称"
// @Param request body SendEventRequest true "事件内容"
// @Success 200 {object} APIResponse{data=models.SSEEvent}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /events/send/{client_name} [post]
func (c *EventController) SendEvent(w http.ResponseWriter, r *http.Request) {
	clientName := chi.URLParam(r, "client_name")

	var req SendEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.EventType) == "" {
		render.Render(w, r, BadRequestResponse("事件类型不能为空", nil))
		return
	}

	ev := models.NewSSEEvent(req.EventType, req.Data)
	if err := c.eventService.SendEventToClient(clientName, ev); err != nil {
		if errors.Is(err, event.ErrNoConnection) {
			render.Render(w, r, NotFoundResponse("客户端没有活跃连接", err))
			return
		}
		render.Render(w, r, InternalErrorResponse("推送事件失败", err))
		return
	}

	ev.ClientName = clientName
	render.Render(w, r, SuccessResponse("推送事件成功", ev))
}
