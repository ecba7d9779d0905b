package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/api"
	"github.com/blueplan/linviz-go/internal/linviz/config"
	"github.com/blueplan/linviz-go/internal/linviz/formal"
	"github.com/blueplan/linviz-go/internal/linviz/hub"
	"github.com/blueplan/linviz-go/internal/linviz/llm"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/ratelimit"
	"github.com/blueplan/linviz-go/internal/linviz/redisx"
	"github.com/blueplan/linviz-go/internal/linviz/router"
	"github.com/blueplan/linviz-go/internal/linviz/services"
	"github.com/blueplan/linviz-go/internal/linviz/session"
	"github.com/blueplan/linviz-go/internal/linviz/tutor"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger, err := newLogger(cfg.App)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logx.SetGlobalLogger(logger)

	ctx := context.Background()
	logger.Info(ctx, "Starting LinViz service",
		logx.KV("version", cfg.App.Version),
		logx.KV("environment", cfg.App.Environment))

	var pools *redisx.PoolManager
	if cfg.Memory.StoreType == "redis" || cfg.RateLimit.Backend == "redis" {
		pools = redisx.NewPoolManager(cfg.Memory, logger)
	}

	// Sessions
	thresholds := probe.Thresholds{Parallel: cfg.Probe.ParallelEpsilon, Zero: cfg.Probe.ZeroEpsilon}
	sessions := session.NewManager(newStore(ctx, cfg, pools, logger), thresholds, logger)

	// LLM client; without a key the tutor answers with canned replies
	llmClient, err := llm.NewClient(cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Warn(ctx, "GEMINI_API_KEY is not set, using mock LLM client")
		llmClient = llm.NewMock()
	case err != nil:
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// External services
	timeout := time.Duration(cfg.Services.Timeout) * time.Second
	var eigen services.EigenService = services.LocalEigen{}
	if cfg.Services.EigenURL != "" {
		remote := services.NewRemoteEigen(cfg.Services.EigenURL, timeout)
		if cfg.Services.AuthToken != "" {
			remote.WithAuthToken(cfg.Services.AuthToken)
		}
		eigen = remote
	}
	var formalizer formal.Formalizer = formal.Template{}
	if cfg.Services.FormalizeURL != "" {
		remote := services.NewRemoteFormalizer(cfg.Services.FormalizeURL, timeout)
		if cfg.Services.AuthToken != "" {
			remote.WithAuthToken(cfg.Services.AuthToken)
		}
		formalizer = remote
	}

	// WebSocket hub, async requests and the ordered agent queue
	wsHub := hub.New(sessions, logger)
	requester := services.NewRequester(sessions, eigen, formalizer, timeout, logger, wsHub.OnServiceEvent)
	wsHub.UseRequester(requester)
	rt := router.New(logger)
	sequencer := router.NewSequencer(rt, 64, wsHub.DeliverOutcome)
	wsHub.UseSubmitter(sequencer)

	deps := api.Deps{
		Router:     rt,
		Submitter:  sequencer,
		Hub:        wsHub,
		Tutor:      tutor.New(llmClient, logger),
		Formalizer: formal.Template{},
		Verifier:   formal.Simulated{},
		Thresholds: thresholds,
		Limiter:    newLimiter(ctx, cfg, pools, logger),
	}
	if pools != nil {
		deps.Health = pools
	}
	server := api.NewServer(cfg, deps, logger)

	runCtx, cancel := context.WithCancel(ctx)
	go sequencer.Run(runCtx)
	go wsHub.Run()

	// Start server in a goroutine
	go func() {
		if err := server.Run(); err != nil {
			logger.Error(ctx, "Failed to start server", logx.KV("error", err))
			os.Exit(1)
		}
	}()

	logger.Info(ctx, "LinViz service started successfully", logx.KV("address", cfg.API.Addr()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down LinViz service...")

	shutdownCtx, stop := context.WithTimeout(ctx, 30*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error shutting down API server", logx.KV("error", err))
	}
	sequencer.Close()
	cancel()
	wsHub.Stop()
	requester.Wait()
	if pools != nil {
		if err := pools.Close(); err != nil {
			logger.Error(shutdownCtx, "Error closing redis pools", logx.KV("error", err))
		}
	}

	logger.Info(shutdownCtx, "LinViz service stopped")
	_ = logger.Close()
}

func newLogger(app config.AppConfig) (*logx.Logger, error) {
	if app.LogFile != "" {
		logger, err := logx.NewWithFileRotation(app.LogLevel, app.LogFile)
		if err != nil {
			return nil, err
		}
		logger.SetConfig(logx.LogConfig{Level: app.LogLevel, Format: app.LogFormat})
		return logger, nil
	}
	return logx.New(os.Stdout, logx.LogConfig{Level: app.LogLevel, Format: app.LogFormat}), nil
}

// newStore 选择会话存储；Redis 不可用时退回内存
func newStore(ctx context.Context, cfg *config.Config, pools *redisx.PoolManager, logger *logx.Logger) session.Store {
	ttl := cfg.Memory.SessionTTLDuration()
	if cfg.Memory.StoreType != "redis" {
		return session.NewMemoryStore(ttl)
	}
	client, err := pools.Client(ctx, redisx.PoolSession)
	if err != nil {
		logger.Warn(ctx, "redis unavailable, falling back to in-memory sessions", logx.KV("error", err))
		return session.NewMemoryStore(ttl)
	}
	logger.Info(ctx, "using redis session store", logx.KV("host", cfg.Memory.RedisHost))
	return session.NewRedisStore(client, ttl)
}

func newLimiter(ctx context.Context, cfg *config.Config, pools *redisx.PoolManager, logger *logx.Logger) ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.Backend == "redis" {
		client, err := pools.Client(ctx, redisx.PoolRateLimit)
		if err == nil {
			return ratelimit.NewRedisLimiter(client, time.Minute, cfg.RateLimit.PerMinute, logger)
		}
		logger.Warn(ctx, "redis unavailable, falling back to in-memory rate limiter", logx.KV("error", err))
	}
	return ratelimit.NewMemoryLimiter(time.Minute, cfg.RateLimit.PerMinute, logger)
}
