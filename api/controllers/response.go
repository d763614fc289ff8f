/*
 * @module api/controllers/response
 * @description 统一响应封装，status为0表示成功，否则为HTTP状态码
 * @architecture MVC架构 - 控制器层
 * @documentReference DESIGN.md
 * @stateFlow 业务结果 -> APIResponse -> render.Render
 * @rules 所有JSON接口使用同一响应结构
 * @dependencies github.com/go-chi/render
 * @refs api/controllers
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status     int         `json:"status" example:"0"`
	Msg        string      `json:"msg" example:"操作成功"`
	Data       interface{} `json:"data,omitempty"`
	HTTPStatus int         `json:"-"`
}

// Render 实现render.Renderer，设置HTTP状态码
func (resp *APIResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if resp.HTTPStatus != 0 {
		render.Status(r, resp.HTTPStatus)
	}
	return nil
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: msg, Data: data, HTTPStatus: http.StatusOK}
}

// ErrorResponse 错误响应，err不为空时附加到消息中
func ErrorResponse(code int, msg string, err error) *APIResponse {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &APIResponse{Status: code, Msg: msg, HTTPStatus: code}
}

// BadRequestResponse 参数错误
func BadRequestResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusBadRequest, msg, err)
}

// NotFoundResponse 资源不存在
func NotFoundResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusNotFound, msg, err)
}

// InternalErrorResponse 服务器内部错误
func InternalErrorResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusInternalServerError, msg, err)
}
