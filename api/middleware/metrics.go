/*
 * @module api/middleware/metrics
 * @description HTTP请求指标中间件，按路由模板统计请求数和耗时
 * @architecture 中间件模式 - HTTP请求拦截
 * @documentReference DESIGN.md
 * @stateFlow 包装响应 -> 执行处理器 -> 读取路由模板 -> 记录指标
 * @rules 使用路由模板而非原始路径，避免企业ID导致标签基数膨胀
 * @dependencies github.com/go-chi/chi/v5, github.com/prometheus/client_golang
 * @refs service/metrics
 */

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"techintel-service/service/metrics"
)

// Metrics 记录HTTP请求指标
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
