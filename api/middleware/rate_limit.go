/*
 * @module api/middleware/rate_limit
 * @description 限流中间件，按全局和客户端两层限制查询接口调用频率
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference DESIGN.md
 * @stateFlow 识别客户端 -> 检查限流 -> 设置响应头 -> 放行或拒绝
 * @rules Redis异常时放行请求并记录日志；白名单路径不限流
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, techintel-service/api/controllers, techintel-service/service/rate_limiter
 * @refs api/routes.go
 */

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"techintel-service/api/controllers"
	"techintel-service/service/metrics"
	"techintel-service/service/rate_limiter"
)

// ClientHeader 客户端标识请求头
const ClientHeader = "X-Client-Name"

// RateLimitChecker 限流检查接口
type RateLimitChecker interface {
	CheckRateLimit(ctx context.Context, rules []rate_limiter.RateLimitRule) (*rate_limiter.RateLimitResult, error)
}

// RateLimitMiddleware 限流中间件
type RateLimitMiddleware struct {
	checker        RateLimitChecker
	window         int
	globalMax      int
	clientMax      int
	whitelistPaths []string
}

// NewRateLimitMiddleware 创建限流中间件，max小于等于0的层不限制
// 白名单按挂载点之后的路由路径完整匹配，以*结尾的条目按前缀匹配
func NewRateLimitMiddleware(checker RateLimitChecker, window, globalMax, clientMax int) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		checker:   checker,
		window:    window,
		globalMax: globalMax,
		clientMax: clientMax,
		whitelistPaths: []string{
			"/health",
			"/ready",
			"/metrics",
			"/swagger*",
			"/sse/*",
		},
	}
}

// Handler 返回中间件处理函数
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isWhitelisted(routePath(r)) {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.checker.CheckRateLimit(r.Context(), m.rules(clientID(r)))
		if err != nil {
			slog.Warn("限流检查失败，放行请求", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if result.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))
		}
		if !result.Allowed {
			metrics.RateLimited.WithLabelValues(result.RateLimitType).Inc()
			render.Render(w, r, controllers.ErrorResponse(http.StatusTooManyRequests, result.Message, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) rules(client string) []rate_limiter.RateLimitRule {
	var rules []rate_limiter.RateLimitRule
	if m.globalMax > 0 {
		rules = append(rules, rate_limiter.RateLimitRule{
			Type:        rate_limiter.LimitGlobal,
			TimeWindow:  m.window,
			MaxRequests: m.globalMax,
		})
	}
	if m.clientMax > 0 {
		rules = append(rules, rate_limiter.RateLimitRule{
			Type:        rate_limiter.LimitClient,
			TargetID:    client,
			TimeWindow:  m.window,
			MaxRequests: m.clientMax,
		})
	}
	return rules
}

func (m *RateLimitMiddleware) isWhitelisted(path string) bool {
	for _, p := range m.whitelistPaths {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if path == p {
			return true
		}
	}
	return false
}

// routePath 返回挂载点之后的路由路径，BASE_CONTEXT子路由中由chi写入
func routePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	return r.URL.Path
}

// clientID 优先使用客户端标识头，否则使用来源IP
func clientID(r *http.Request) string {
	if name := strings.TrimSpace(r.Header.Get(ClientHeader)); name != "" {
		return name
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
