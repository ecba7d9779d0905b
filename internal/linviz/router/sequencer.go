package router

import (
	"context"
	"errors"
	"sync"
)

// ErrSequencerClosed 队列已关闭
var ErrSequencerClosed = errors.New("router: sequencer closed")

// Sink 接收按到达顺序产生的路由结果
type Sink func(ctx context.Context, out Outcome)

type queued struct {
	ctx context.Context
	raw map[string]any
}

// Sequencer 单 goroutine 依次路由消息，保证到达顺序
type Sequencer struct {
	router *Router
	sink   Sink
	queue  chan queued
	done   chan struct{}
	once   sync.Once
}

// NewSequencer 创建顺序路由队列
func NewSequencer(r *Router, size int, sink Sink) *Sequencer {
	if size <= 0 {
		size = 64
	}
	return &Sequencer{
		router: r,
		sink:   sink,
		queue:  make(chan queued, size),
		done:   make(chan struct{}),
	}
}

// Submit 入队，队列满时阻塞直到 ctx 结束
func (s *Sequencer) Submit(ctx context.Context, raw map[string]any) error {
	select {
	case <-s.done:
		return ErrSequencerClosed
	default:
	}
	select {
	case s.queue <- queued{ctx: context.WithoutCancel(ctx), raw: raw}:
		return nil
	case <-s.done:
		return ErrSequencerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run 处理队列直到 ctx 结束或 Close
func (s *Sequencer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case q := <-s.queue:
			out := s.router.Route(q.ctx, q.raw)
			if s.sink != nil {
				s.sink(q.ctx, out)
			}
		}
	}
}

// Close 停止接收
func (s *Sequencer) Close() {
	s.once.Do(func() { close(s.done) })
}
