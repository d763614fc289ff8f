/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的分布式限流服务，支持全局和客户端两层限流
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference DESIGN.md
 * @stateFlow 检查限流规则 -> Redis计数 -> 判断是否超限
 * @rules 使用Lua脚本保证INCR与EXPIRE的原子性，固定窗口计数
 * @dependencies github.com/go-redis/redis/v8
 * @refs api/middleware/rate_limit.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

// 限流类型
const (
	LimitGlobal = "global"
	LimitClient = "client"
)

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed       bool   `json:"allowed"`    // 是否允许请求
	Limit         int    `json:"limit"`      // 限制数量
	Remaining     int    `json:"remaining"`  // 剩余数量
	ResetAt       int64  `json:"reset_at"`   // 重置时间（Unix时间戳）
	RateLimitType string `json:"limit_type"` // 限流类型：global/client
	Message       string `json:"message"`    // 提示信息
}

// RateLimitRule 限流规则
type RateLimitRule struct {
	Type        string // global/client
	TargetID    string // 客户端标识，全局时为空
	TimeWindow  int    // 时间窗口（秒）
	MaxRequests int    // 最大请求数
}

// counterScript 返回 {是否允许, 当前计数, 上限, 剩余秒数}
var counterScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	if current >= max_requests then
		local ttl = redis.call('TTL', key)
		if ttl < 0 then
			ttl = window
		end
		return {0, current, max_requests, ttl}
	end

	local new_count = redis.call('INCR', key)
	if new_count == 1 then
		redis.call('EXPIRE', key, window)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end
	return {1, new_count, max_requests, ttl}
`)

// RedisRateLimiter Redis限流器
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient 创建并检测Redis客户端
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("Redis连接成功", "addr", addr, "db", db)
	return client, nil
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(client redis.UniversalClient) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: "rate_limit"}
}

// CheckRateLimit 检查是否超过限流（先客户端后全局），任一层超限即拒绝
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, rules []RateLimitRule) (*RateLimitResult, error) {
	if len(rules) == 0 {
		return &RateLimitResult{
			Allowed:       true,
			Limit:         -1,
			Remaining:     -1,
			RateLimitType: "none",
			Message:       "无限流规则",
		}, nil
	}

	var tightest *RateLimitResult
	for _, rule := range sortRulesByPriority(rules) {
		result, err := r.checkSingleRule(ctx, rule)
		if err != nil {
			return nil, err
		}
		if !result.Allowed {
			return result, nil
		}
		if tightest == nil || result.Remaining < tightest.Remaining {
			tightest = result
		}
	}
	return tightest, nil
}

// checkSingleRule 检查单个限流规则
func (r *RedisRateLimiter) checkSingleRule(ctx context.Context, rule RateLimitRule) (*RateLimitResult, error) {
	if rule.TimeWindow <= 0 || rule.MaxRequests <= 0 {
		return nil, fmt.Errorf("限流规则不合法: window=%d max=%d", rule.TimeWindow, rule.MaxRequests)
	}

	key := r.buildRateLimitKey(rule.Type, rule.TargetID, rule.TimeWindow, time.Now())
	raw, err := counterScript.Run(ctx, r.client, []string{key}, rule.MaxRequests, rule.TimeWindow).Slice()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}
	values := make([]int64, 0, len(raw))
	for _, v := range raw {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("限流脚本返回值异常: %v", raw)
		}
		values = append(values, n)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("限流脚本返回值异常: %v", raw)
	}

	allowed := values[0] == 1
	currentCount := int(values[1])
	maxRequests := int(values[2])
	ttl := time.Duration(values[3]) * time.Second

	remaining := maxRequests - currentCount
	if remaining < 0 {
		remaining = 0
	}

	message := "允许请求"
	if !allowed {
		message = fmt.Sprintf("超过%s限流限制", rateLimitTypeName(rule.Type))
	}

	return &RateLimitResult{
		Allowed:       allowed,
		Limit:         maxRequests,
		Remaining:     remaining,
		ResetAt:       time.Now().Add(ttl).Unix(),
		RateLimitType: rule.Type,
		Message:       message,
	}, nil
}

// buildRateLimitKey 构造限流Key，按窗口编号分桶
func (r *RedisRateLimiter) buildRateLimitKey(limitType, targetID string, window int, now time.Time) string {
	currentWindow := now.Unix() / int64(window)
	if limitType == LimitGlobal {
		return fmt.Sprintf("%s:%s:%d", r.prefix, limitType, currentWindow)
	}
	return fmt.Sprintf("%s:%s:%s:%d", r.prefix, limitType, targetID, currentWindow)
}

// sortRulesByPriority 按优先级排序规则：client > global
func sortRulesByPriority(rules []RateLimitRule) []RateLimitRule {
	priority := map[string]int{
		LimitClient: 2,
		LimitGlobal: 1,
	}
	sorted := make([]RateLimitRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priority[sorted[i].Type] > priority[sorted[j].Type]
	})
	return sorted
}

func rateLimitTypeName(limitType string) string {
	switch limitType {
	case LimitGlobal:
		return "全局"
	case LimitClient:
		return "客户端"
	default:
		return "未知"
	}
}

// ResetRateLimit 重置当前窗口的限流计数（仅用于测试或管理）
func (r *RedisRateLimiter) ResetRateLimit(ctx context.Context, rule RateLimitRule) error {
	key := r.buildRateLimitKey(rule.Type, rule.TargetID, rule.TimeWindow, time.Now())
	return r.client.Del(ctx, key).Err()
}

// GetStats 获取当前窗口的限流统计信息
func (r *RedisRateLimiter) GetStats(ctx context.Context, rule RateLimitRule) (map[string]interface{}, error) {
	key := r.buildRateLimitKey(rule.Type, rule.TargetID, rule.TimeWindow, time.Now())

	current, err := r.client.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	remaining := rule.MaxRequests - current
	if remaining < 0 {
		remaining = 0
	}
	return map[string]interface{}{
		"type":        rule.Type,
		"target_id":   rule.TargetID,
		"current":     current,
		"limit":       rule.MaxRequests,
		"remaining":   remaining,
		"window":      rule.TimeWindow,
		"ttl_seconds": int(ttl.Seconds()),
	}, nil
}
