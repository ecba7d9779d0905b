// Package api is the HTTP surface of the linviz backend.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/config"
	"github.com/blueplan/linviz-go/internal/linviz/formal"
	"github.com/blueplan/linviz-go/internal/linviz/hub"
	"github.com/blueplan/linviz-go/internal/linviz/llm"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/ratelimit"
	"github.com/blueplan/linviz-go/internal/linviz/router"
	"github.com/gin-gonic/gin"
)

// Banner 是 GET / 的响应
const Banner = "Neuro-Symbolic Linear Algebra Backend is Running!"

// Tutor 生成 agent 消息
type Tutor interface {
	Reply(ctx context.Context, message string, history ...llm.Message) (map[string]any, error)
}

// HealthChecker 报告依赖状态
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[string]any
}

// Deps 服务依赖；Hub、Limiter、Health、Submitter 可为空
type Deps struct {
	Router     *router.Router
	Submitter  hub.Submitter
	Hub        *hub.Hub
	Tutor      Tutor
	Formalizer formal.Formalizer
	Verifier   formal.Verifier
	Thresholds probe.Thresholds
	Limiter    ratelimit.Limiter
	Health     HealthChecker
}

// Server API服务器
type Server struct {
	engine *gin.Engine
	http   *http.Server
	cfg    *config.Config
	deps   Deps
	logger *logx.Logger
}

// NewServer 创建服务器并注册路由
func NewServer(cfg *config.Config, deps Deps, logger *logx.Logger) *Server {
	if cfg.App.Environment == "production" || !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Thresholds == (probe.Thresholds{}) {
		deps.Thresholds = probe.DefaultThresholds()
	}

	engine := gin.New()
	engine.Use(RequestID())
	engine.Use(NewLoggingMiddleware(logger).LogRequest())
	engine.Use(Recovery(logger))
	engine.Use(NewCORSMiddleware(&cfg.API, logger).CORS())
	engine.Use(NewRequestSizeLimit(cfg.API.MaxRequestSize, logger).LimitRequestSize())

	s := &Server{
		engine: engine,
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              cfg.API.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleHome)
	s.engine.GET("/health", s.handleHealth)
	if s.deps.Hub != nil {
		s.engine.GET("/ws", gin.WrapH(s.deps.Hub))
	}

	limited := s.engine.Group("/")
	if s.deps.Limiter != nil && s.cfg.RateLimit.Enabled {
		limited.Use(NewRateLimitMiddleware(s.deps.Limiter, "api", s.logger).RateLimit())
	}

	apiGroup := limited.Group("/api")
	{
		apiGroup.POST("/eigen", s.handleEigen)
		apiGroup.POST("/formalize", s.handleFormalize)
		apiGroup.POST("/verify", s.handleVerify)
		apiGroup.POST("/route", s.handleRoute)
		apiGroup.POST("/probe", s.handleProbe)
	}
	limited.POST("/chat", s.handleChat)
}

// Handler 返回 http.Handler，测试使用
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动服务器，Shutdown 后返回 nil
func (s *Server) Run() error {
	s.logger.Info(context.Background(), "HTTP server listening", logx.KV("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
