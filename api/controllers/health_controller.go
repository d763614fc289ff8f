/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供存活与就绪检查
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求处理流程
 * @rules 数据集快照未加载时就绪检查返回503，存活检查始终返回200
 * @dependencies net/http, github.com/go-chi/render
 * @refs service/dataset/store.go
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// ServiceName 服务名称
const ServiceName = "techintel-service"

// ServiceVersion 服务版本
const ServiceVersion = "1.0.0"

// ReadinessChecker 判断数据集是否已加载
type ReadinessChecker interface {
	Ready() bool
}

// HealthController 健康检查控制器
type HealthController struct {
	readiness ReadinessChecker
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(readiness ReadinessChecker) *HealthController {
	return &HealthController{readiness: readiness}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
	Service   string    `json:"service" example:"techintel-service"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   ServiceVersion,
		Service:   ServiceName,
	})
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 数据集快照加载完成后服务才算就绪
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   ServiceVersion,
		Service:   ServiceName,
	}
	if c.readiness == nil || !c.readiness.Ready() {
		response.Status = "not_ready"
		render.Status(r, http.StatusServiceUnavailable)
	}

	render.JSON(w, r, response)
}
