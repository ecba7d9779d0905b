package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/redis/go-redis/v9"
)

// Limiter 速率限制器接口
type Limiter interface {
	// Allow 记录一次请求并返回是否放行
	Allow(ctx context.Context, key string) (Decision, error)
	// Reset 清除 key 的记录
	Reset(ctx context.Context, key string) error
}

// Decision 一次判定结果
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// MemoryLimiter 进程内滑动窗口
type MemoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	limit    int
	logger   *logx.Logger
	now      func() time.Time
}

// NewMemoryLimiter 创建内存限流器
func NewMemoryLimiter(window time.Duration, limit int, logger *logx.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		logger:   logger,
		now:      time.Now,
	}
}

// Allow 检查是否允许请求
func (ml *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	windowStart := now.Add(-ml.window)

	// 删除过期的请求记录
	valid := ml.requests[key][:0]
	for _, t := range ml.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	d := Decision{Limit: ml.limit, ResetAt: now.Add(ml.window)}
	if len(valid) > 0 {
		d.ResetAt = valid[0].Add(ml.window)
	}
	if len(valid) >= ml.limit {
		ml.requests[key] = valid
		ml.logger.Warn(ctx, "请求被速率限制", logx.KV("key", key), logx.KV("limit", ml.limit))
		return d, nil
	}

	valid = append(valid, now)
	ml.requests[key] = valid
	d.Allowed = true
	d.Remaining = ml.limit - len(valid)
	return d, nil
}

// Reset 重置限制
func (ml *MemoryLimiter) Reset(_ context.Context, key string) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.requests, key)
	return nil
}

// 滑动窗口：ZSET 成员为请求序号，分数为毫秒时间戳
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local current = redis.call('ZCARD', key)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset = now + window
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end

if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return {1, limit - current - 1, reset}
end
return {0, 0, reset}
`)

// RedisLimiter 基于 Redis ZSET 的滑动窗口，多实例共享
type RedisLimiter struct {
	client redis.UniversalClient
	logger *logx.Logger
	window time.Duration
	limit  int
	prefix string
	seq    atomic.Uint64
	now    func() time.Time
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(client redis.UniversalClient, window time.Duration, limit int, logger *logx.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		logger: logger,
		window: window,
		limit:  limit,
		prefix: "linviz:rate_limit:",
		now:    time.Now,
	}
}

// Allow 检查是否允许请求（滑动窗口算法）
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := rl.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(rl.seq.Add(1), 10)

	res, err := slidingWindow.Run(ctx, rl.client, []string{rl.prefix + key},
		now, rl.window.Milliseconds(), rl.limit, member).Int64Slice()
	if err != nil {
		rl.logger.Error(ctx, "速率限制检查失败", logx.KV("key", key), logx.KV("error", err))
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("无效的Lua脚本返回结果: %v", res)
	}

	d := Decision{
		Allowed:   res[0] == 1,
		Limit:     rl.limit,
		Remaining: int(res[1]),
		ResetAt:   time.UnixMilli(res[2]),
	}
	if !d.Allowed {
		rl.logger.Warn(ctx, "请求被速率限制", logx.KV("key", key), logx.KV("reset_at", d.ResetAt))
	}
	return d, nil
}

// Reset 重置限制
func (rl *RedisLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, rl.prefix+key).Err()
}
