package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/formal"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/session"
)

// EventKind 异步结果类型
type EventKind string

const (
	EventGroundTruth EventKind = "ground_truth"
	EventLeanCode    EventKind = "lean_code"
	EventNotice      EventKind = "notice"
)

// Event 异步请求完成后的通知；过期响应不产生事件
type Event struct {
	Kind      EventKind     `json:"kind"`
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
	Notice    string        `json:"notice,omitempty"`
}

// Requester 发起不阻塞的服务请求，响应通过会话票据校验后写入
type Requester struct {
	sessions   *session.Manager
	eigen      EigenService
	formalizer formal.Formalizer
	timeout    time.Duration
	logger     *logx.Logger
	onEvent    func(context.Context, Event)
	wg         sync.WaitGroup
}

// NewRequester 创建请求器；onEvent 可为 nil
func NewRequester(sessions *session.Manager, eigen EigenService, formalizer formal.Formalizer, timeout time.Duration, logger *logx.Logger, onEvent func(context.Context, Event)) *Requester {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Requester{
		sessions:   sessions,
		eigen:      eigen,
		formalizer: formalizer,
		timeout:    timeout,
		logger:     logger,
		onEvent:    onEvent,
	}
}

// RequestGroundTruth 为当前矩阵请求真实特征向量，立即返回票据
func (r *Requester) RequestGroundTruth(ctx context.Context, sessionID string) (session.Ticket, error) {
	ticket, err := r.sessions.Ticket(ctx, sessionID)
	if err != nil {
		return session.Ticket{}, err
	}
	r.spawn(ctx, func(ctx context.Context) {
		gt, err := r.eigen.GroundTruth(ctx, ticket.Matrix)
		if err != nil {
			r.fail(ctx, ticket, "ground truth request failed", err)
			return
		}
		dirs, ok := gt.Directions()
		if !ok {
			r.emit(ctx, Event{Kind: EventNotice, SessionID: ticket.SessionID, Notice: "no ground truth available"})
			return
		}
		st, err := r.sessions.ApplyGroundTruth(ctx, ticket, dirs)
		r.applied(ctx, EventGroundTruth, ticket, st, err)
	})
	return ticket, nil
}

// RequestFormalization 为当前矩阵请求 Lean 代码
func (r *Requester) RequestFormalization(ctx context.Context, sessionID string) (session.Ticket, error) {
	ticket, err := r.sessions.Ticket(ctx, sessionID)
	if err != nil {
		return session.Ticket{}, err
	}
	r.spawn(ctx, func(ctx context.Context) {
		code, err := r.formalizer.Formalize(ctx, formal.EigenProblem(ticket.Matrix))
		if err != nil {
			r.fail(ctx, ticket, "formalization request failed", err)
			return
		}
		st, err := r.sessions.ApplyLeanCode(ctx, ticket, code)
		r.applied(ctx, EventLeanCode, ticket, st, err)
	})
	return ticket, nil
}

// Wait 等待所有进行中的请求，测试和关闭时使用
func (r *Requester) Wait() {
	r.wg.Wait()
}

func (r *Requester) spawn(ctx context.Context, fn func(context.Context)) {
	base := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(base, r.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (r *Requester) applied(ctx context.Context, kind EventKind, t session.Ticket, st session.State, err error) {
	switch {
	case errors.Is(err, session.ErrStaleResponse):
		return
	case err != nil:
		r.logger.Warn(ctx, "failed to apply service response", logx.KV("kind", string(kind)), logx.KV("error", err))
		r.emit(ctx, Event{Kind: EventNotice, SessionID: t.SessionID, Notice: err.Error()})
	default:
		r.emit(ctx, Event{Kind: kind, SessionID: st.ID, State: st})
	}
}

func (r *Requester) fail(ctx context.Context, t session.Ticket, msg string, err error) {
	r.logger.Warn(ctx, msg, logx.KV("session_id", t.SessionID), logx.KV("error", err))
	r.emit(ctx, Event{Kind: EventNotice, SessionID: t.SessionID, Notice: msg + ": " + err.Error()})
}

func (r *Requester) emit(ctx context.Context, ev Event) {
	if r.onEvent != nil {
		r.onEvent(ctx, ev)
	}
}
