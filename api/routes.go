/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference DESIGN.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, api/middleware
 */

package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"techintel-service/api/controllers"
	"techintel-service/api/middleware"
	"techintel-service/service"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux, app *service.App) {
	// 基础中间件
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.Metrics)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.ClientHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if app.RateLimiter != nil {
		rl := app.Config.RateLimit
		r.Use(middleware.NewRateLimitMiddleware(app.RateLimiter, rl.WindowSeconds, rl.GlobalMax, rl.ClientMax).Handler)
	}

	// 健康检查
	healthController := controllers.NewHealthController(app.Store)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 数据集重载事件订阅
	eventController := controllers.NewEventController(app.EventService)
	r.Get("/sse/{client_name}", eventController.HandleSSE)
	r.Get("/events/connections", eventController.GetSSEConnectionList)
	r.Post("/events/send/{client_name}", eventController.SendEvent)

	// 企业查询
	r.Route("/companies", func(r chi.Router) {
		companyController := controllers.NewCompanyController(app.CompanyService)
		r.Post("/query", companyController.Query)
		r.Post("/names", companyController.Names)
		r.Get("/facets", companyController.Facets)
		r.Get("/{id}", companyController.DeepDive)
	})

	// 数据集管理
	r.Route("/dataset", func(r chi.Router) {
		datasetController := controllers.NewDatasetController(app.Store)
		r.Get("/status", datasetController.Status)
		r.Post("/reload", datasetController.Reload)
	})
}
