package api

import (
	"net/http"
	"strconv"
	"time"

	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 速率限制中间件
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	name    string
	logger  *logx.Logger
}

// NewRateLimitMiddleware 创建速率限制中间件
func NewRateLimitMiddleware(limiter ratelimit.Limiter, name string, logger *logx.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, name: name, logger: logger}
}

// RateLimit 超限时返回 429；限流器出错时放行
func (rlm *RateLimitMiddleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rateLimitKey(c)

		d, err := rlm.limiter.Allow(ctx, key)
		if err != nil {
			rlm.logger.Error(ctx, "速率限制检查失败",
				logx.KV("error", err),
				logx.KV("limiter_name", rlm.name),
				logx.KV("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := int(time.Until(d.ResetAt).Seconds() + 0.5)
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			rlm.logger.Warn(ctx, "请求被速率限制",
				logx.KV("limiter_name", rlm.name),
				logx.KV("key", key),
				logx.KV("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": d.ResetAt.Unix(),
				"limit":       d.Limit,
				"remaining":   d.Remaining,
			})
			return
		}
		c.Next()
	}
}

// rateLimitKey 优先按用户，其次按 IP
func rateLimitKey(c *gin.Context) string {
	if userID := c.GetHeader("X-User-ID"); userID != "" {
		return "user:" + userID
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "default"
}
