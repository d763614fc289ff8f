/*
 * @module api/controllers/company_controller
 * @description 企业查询控制器，提供条件查询、企业列表、深度分析和筛选项接口
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow HTTP请求 -> 参数解析 -> 企业查询服务 -> 统一响应
 * @rules 条件非法返回400，企业不存在返回404，数据集未加载时深度分析返回503
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/company/company_service.go
 */

package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"techintel-service/service/company"
	"techintel-service/service/loader"
	"techintel-service/service/metrics"
	"techintel-service/service/query"
)

// CompanyController 企业查询控制器
type CompanyController struct {
	companyService *company.CompanyService
}

// NewCompanyController 创建企业查询控制器实例
func NewCompanyController(companyService *company.CompanyService) *CompanyController {
	return &CompanyController{companyService: companyService}
}

// Query 条件查询
// @Summary 企业条件查询
// @Description 按行业、融资阶段、地区、规模、工程师占比、专利和IP评分过滤，按评分字段排序并分页
// @Tags 企业查询
// @Accept json
// @Produce json
// @Param request body company.QueryRequest true "查询条件"
// @Success 200 {object} APIResponse{data=company.QueryResponse}
// @Failure 400 {object} APIResponse
// @Router /companies/query [post]
func (c *CompanyController) Query(w http.ResponseWriter, r *http.Request) {
	var req company.QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := c.companyService.Query(req)
	if err != nil {
		renderQueryError(w, r, "查询失败", err)
		return
	}
	metrics.QueryMatches.Observe(float64(resp.Total))

	render.Render(w, r, SuccessResponse("查询成功", resp))
}

// Names 匹配企业列表
// @Summary 匹配企业列表
// @Description 返回满足条件的企业ID和名称，用于选择深度分析对象
// @Tags 企业查询
// @Accept json
// @Produce json
// @Param request body query.FilterCriteria false "过滤条件"
// @Success 200 {object} APIResponse{data=[]company.NameOption}
// @Failure 400 {object} APIResponse
// @Router /companies/names [post]
func (c *CompanyController) Names(w http.ResponseWriter, r *http.Request) {
	var criteria query.FilterCriteria
	if !decodeBody(w, r, &criteria) {
		return
	}

	names, err := c.companyService.Names(criteria)
	if err != nil {
		renderQueryError(w, r, "获取企业列表失败", err)
		return
	}

	render.Render(w, r, SuccessResponse("获取企业列表成功", names))
}

// DeepDive 企业深度分析
// @Summary 企业深度分析
// @Description 返回企业记录、综合评估以及与全量和同行业基线的对比
// @Tags 企业查询
// @Produce json
// @Param id path string true "企业ID"
// @Success 200 {object} APIResponse{data=company.DeepDive}
// @Failure 404 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /companies/{id} [get]
func (c *CompanyController) DeepDive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.Render(w, r, BadRequestResponse("企业ID不能为空", nil))
		return
	}

	result, err := c.companyService.DeepDive(id)
	if err != nil {
		renderQueryError(w, r, "深度分析失败", err)
		return
	}

	render.Render(w, r, SuccessResponse("获取深度分析成功", result))
}

// Facets 筛选项与全量统计
// @Summary 筛选项与全量统计
// @Description 返回各分类字段的取值、数值范围、可排序字段和全量汇总统计
// @Tags 企业查询
// @Produce json
// @Success 200 {object} APIResponse{data=company.Overview}
// @Router /companies/facets [get]
func (c *CompanyController) Facets(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取筛选项成功", c.companyService.Overview()))
}

// decodeBody 解析JSON请求体，空请求体视为零值
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := render.DecodeJSON(r.Body, v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	render.Render(w, r, BadRequestResponse("请求参数格式错误", err))
	return false
}

// renderQueryError 将查询错误映射为HTTP状态码
func renderQueryError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidCriteria), errors.Is(err, query.ErrFieldNotFound):
		render.Render(w, r, BadRequestResponse(msg, err))
	case errors.Is(err, query.ErrNotFound):
		render.Render(w, r, NotFoundResponse(msg, err))
	case errors.Is(err, loader.ErrDataUnavailable):
		render.Render(w, r, ErrorResponse(http.StatusServiceUnavailable, msg, err))
	default:
		slog.Error(msg, "error", err)
		render.Render(w, r, InternalErrorResponse(msg, err))
	}
}
