package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/config"
	"github.com/blueplan/linviz-go/internal/linviz/contextx"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// CORSMiddleware CORS中间件
type CORSMiddleware struct {
	origins []string
	logger  *logx.Logger
}

// NewCORSMiddleware 创建CORS中间件
func NewCORSMiddleware(cfg *config.APIConfig, logger *logx.Logger) *CORSMiddleware {
	return &CORSMiddleware{
		origins: cfg.CORSOrigins,
		logger:  logger,
	}
}

// CORS CORS中间件
func (cm *CORSMiddleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if cm.isOriginAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		} else if cm.allowsAny() {
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-User-ID, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		// 预检请求
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (cm *CORSMiddleware) allowsAny() bool {
	for _, o := range cm.origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// isOriginAllowed 支持精确匹配和首尾通配符
func (cm *CORSMiddleware) isOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range cm.origins {
		switch {
		case allowed == "*" || allowed == origin:
			return true
		case strings.HasPrefix(allowed, "*") && strings.HasSuffix(origin, allowed[1:]):
			return true
		case strings.HasSuffix(allowed, "*") && strings.HasPrefix(origin, allowed[:len(allowed)-1]):
			return true
		}
	}
	return false
}

// RequestID 读取或生成请求 ID，写入 context 和响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(contextx.WithRequestID(c.Request.Context(), id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// LoggingMiddleware 日志中间件
type LoggingMiddleware struct {
	logger *logx.Logger
}

// NewLoggingMiddleware 创建日志中间件
func NewLoggingMiddleware(logger *logx.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// LogRequest 请求结束后记录一条结构化日志
func (lm *LoggingMiddleware) LogRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logx.Field{
			logx.KV("method", c.Request.Method),
			logx.KV("path", c.Request.URL.Path),
			logx.KV("status", c.Writer.Status()),
			logx.KV("latency", time.Since(start).String()),
			logx.KV("client_ip", c.ClientIP()),
		}
		ctx := c.Request.Context()
		if len(c.Errors) > 0 {
			lm.logger.Error(ctx, "HTTP请求", append(fields, logx.KV("error", c.Errors.String()))...)
			return
		}
		lm.logger.Info(ctx, "HTTP请求", fields...)
	}
}

// RequestSizeLimit 请求大小限制中间件
type RequestSizeLimit struct {
	maxSize int64
	logger  *logx.Logger
}

// NewRequestSizeLimit 创建请求大小限制中间件
func NewRequestSizeLimit(maxSize int64, logger *logx.Logger) *RequestSizeLimit {
	return &RequestSizeLimit{maxSize: maxSize, logger: logger}
}

// LimitRequestSize 限制请求大小
func (rsl *RequestSizeLimit) LimitRequestSize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rsl.maxSize <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > rsl.maxSize {
			rsl.logger.Warn(c.Request.Context(), "请求大小超出限制",
				logx.KV("content_length", c.Request.ContentLength),
				logx.KV("max_size", rsl.maxSize),
				logx.KV("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, rsl.maxSize)
		c.Next()
	}
}

// Recovery 记录 panic 并返回 500
func Recovery(logger *logx.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "请求处理panic",
			logx.KV("error", recovered),
			logx.KV("method", c.Request.Method),
			logx.KV("path", c.Request.URL.Path),
			logx.KV("client_ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
