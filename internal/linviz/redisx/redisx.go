package redisx

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/config"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/redis/go-redis/v9"
)

// 连接池类型
const (
	PoolSession   = "session"
	PoolRateLimit = "rate_limit"
)

// PoolManager Redis 连接池管理器，按用途复用客户端
type PoolManager struct {
	clients map[string]*redis.Client
	config  config.MemoryConfig
	logger  *logx.Logger
	mu      sync.RWMutex
	stats   PoolStats
}

// PoolStats 连接池统计信息
type PoolStats struct {
	Requests  int64     `json:"requests"`
	Failures  int64     `json:"failures"`
	LastReset time.Time `json:"last_reset"`
}

// NewPoolManager 创建连接池管理器
func NewPoolManager(cfg config.MemoryConfig, logger *logx.Logger) *PoolManager {
	return &PoolManager{
		clients: make(map[string]*redis.Client),
		config:  cfg,
		logger:  logger,
		stats:   PoolStats{LastReset: time.Now()},
	}
}

// URL 根据配置构建 Redis URL，显式 redis_url 优先
func URL(cfg config.MemoryConfig) string {
	if cfg.RedisURL != "" {
		return cfg.RedisURL
	}
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Path:   "/" + strconv.Itoa(cfg.RedisDB),
	}
	if cfg.RedisPassword != "" {
		u.User = url.UserPassword("", cfg.RedisPassword)
	}
	return u.String()
}

// Client 获取指定用途的客户端，不存在时创建并测试连接
func (pm *PoolManager) Client(ctx context.Context, poolType string) (*redis.Client, error) {
	pm.mu.RLock()
	client, ok := pm.clients[poolType]
	pm.mu.RUnlock()
	if ok {
		pm.count(false)
		return client, nil
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	// 双重检查
	if client, ok := pm.clients[poolType]; ok {
		pm.stats.Requests++
		return client, nil
	}

	client, err := pm.dial(ctx, poolType)
	if err != nil {
		pm.stats.Failures++
		return nil, fmt.Errorf("创建Redis连接池失败 (pool_type=%s): %w", poolType, err)
	}
	pm.clients[poolType] = client
	pm.stats.Requests++
	pm.logger.Info(ctx, "创建新的Redis连接池", logx.KV("pool_type", poolType))
	return client, nil
}

func (pm *PoolManager) count(failed bool) {
	pm.mu.Lock()
	pm.stats.Requests++
	if failed {
		pm.stats.Failures++
	}
	pm.mu.Unlock()
}

func (pm *PoolManager) dial(ctx context.Context, poolType string) (*redis.Client, error) {
	opt, err := redis.ParseURL(URL(pm.config))
	if err != nil {
		return nil, fmt.Errorf("解析Redis URL失败: %w", err)
	}
	opt.PoolSize = poolSize(poolType)
	opt.MinIdleConns = 1
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接测试失败: %w", err)
	}
	return client, nil
}

func poolSize(poolType string) int {
	switch poolType {
	case PoolSession:
		return 100
	case PoolRateLimit:
		return 50
	}
	return 20
}

// Stats 返回统计快照
func (pm *PoolManager) Stats() PoolStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.stats
}

// HealthCheck 逐个 Ping 已创建的连接池
func (pm *PoolManager) HealthCheck(ctx context.Context) map[string]any {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	pools := make(map[string]any, len(pm.clients))
	status := "healthy"
	for poolType, client := range pm.clients {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			pools[poolType] = map[string]any{"status": "unhealthy", "error": err.Error()}
			status = "degraded"
			continue
		}
		st := client.PoolStats()
		pools[poolType] = map[string]any{
			"status":      "healthy",
			"total_conns": st.TotalConns,
			"idle_conns":  st.IdleConns,
		}
	}
	return map[string]any{"overall_status": status, "pools": pools}
}

// Close 关闭所有连接池
func (pm *PoolManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var firstErr error
	for poolType, client := range pm.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("关闭Redis连接池失败 (pool_type=%s): %w", poolType, err)
		}
		delete(pm.clients, poolType)
	}
	return firstErr
}
