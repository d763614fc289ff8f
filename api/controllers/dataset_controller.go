/*
 * @module api/controllers/dataset_controller
 * @description 数据集管理控制器，提供状态查询和手动重载
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求 -> 快照存储 -> 统一响应
 * @rules 重载失败时保留旧快照并返回503
 * @dependencies github.com/go-chi/render
 * @refs service/dataset/store.go
 */

package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"techintel-service/service/dataset"
	"techintel-service/service/models"
)

// DatasetManager 数据集快照管理
type DatasetManager interface {
	Status() dataset.Status
	Reload(ctx context.Context, trigger dataset.Trigger) (*models.Dataset, error)
}

// DatasetController 数据集管理控制器
type DatasetController struct {
	manager DatasetManager
}

// NewDatasetController 创建数据集管理控制器实例
func NewDatasetController(manager DatasetManager) *DatasetController {
	return &DatasetController{manager: manager}
}

// ReloadResult 手动重载结果
type ReloadResult struct {
	Version  string `json:"version" example:"5f0c..."`
	Records  int    `json:"records" example:"120"`
	Rejected int    `json:"rejected" example:"2"`
}

// Status 数据集状态
// @Summary 数据集状态
// @Description 返回当前快照版本、来源、记录数、拒绝行数和最近一次重载结果
// @Tags 数据集
// @Produce json
// @Success 200 {object} APIResponse{data=dataset.Status}
// @Router /dataset/status [get]
func (c *DatasetController) Status(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取数据集状态成功", c.manager.Status()))
}

// Reload 手动重载
// @Summary 手动重载数据集
// @Description 立即从数据源重新加载，并发请求合并为一次加载
// @Tags 数据集
// @Produce json
// @Success 200 {object} APIResponse{data=ReloadResult}
// @Failure 503 {object} APIResponse
// @Router /dataset/reload [post]
func (c *DatasetController) Reload(w http.ResponseWriter, r *http.Request) {
	ds, err := c.manager.Reload(r.Context(), dataset.TriggerManual)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusServiceUnavailable, "数据集重载失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("数据集重载成功", ReloadResult{
		Version:  ds.Version,
		Records:  len(ds.Records),
		Rejected: len(ds.Rejected),
	}))
}
