// Package hub serves the interactive probe over WebSocket. Each connection
// owns one session; agent outcomes and service results are pushed to the
// connection whose session they belong to.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/blueplan/linviz-go/internal/linviz/contextx"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/router"
	"github.com/blueplan/linviz-go/internal/linviz/services"
	"github.com/blueplan/linviz-go/internal/linviz/session"
	"github.com/gorilla/websocket"
)

// Requester 发起异步服务请求
type Requester interface {
	RequestGroundTruth(ctx context.Context, sessionID string) (session.Ticket, error)
	RequestFormalization(ctx context.Context, sessionID string) (session.Ticket, error)
}

// Submitter 按到达顺序路由 agent 消息
type Submitter interface {
	Submit(ctx context.Context, raw map[string]any) error
}

// Hub 维护连接集合
type Hub struct {
	sessions  *session.Manager
	requester Requester
	submitter Submitter
	logger    *logx.Logger
	upgrader  websocket.Upgrader

	// clients 和 bySession 由 mu 保护；send 通道只在持有写锁时关闭
	clients   map[*Client]bool
	bySession map[string]*Client
	mu        sync.RWMutex

	broadcast chan []byte
	done      chan struct{}
	stopOnce  sync.Once
}

// New 创建 Hub；requester 与 submitter 通过 Use* 注入
func New(sessions *session.Manager, logger *logx.Logger) *Hub {
	return &Hub{
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:   make(map[*Client]bool),
		bySession: make(map[string]*Client),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// UseRequester 设置服务请求器
func (h *Hub) UseRequester(r Requester) {
	h.requester = r
}

// UseSubmitter 设置 agent 消息队列
func (h *Hub) UseSubmitter(s Submitter) {
	h.submitter = s
}

// SetCheckOrigin 自定义跨域校验
func (h *Hub) SetCheckOrigin(fn func(*http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

// Run 处理广播直到 Stop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop 关闭所有连接
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP 升级连接并为其创建会话
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(ctx, "websocket upgrade failed", logx.KV("error", err))
		return
	}

	st, err := h.sessions.Create(ctx, session.DefaultMatrix)
	if err != nil {
		h.logger.Error(ctx, "failed to create session", logx.KV("error", err))
		conn.Close()
		return
	}

	c := newClient(h, conn, st.ID)
	h.add(c)
	h.logger.Info(c.ctx(), "client connected", logx.KV("clients", h.ClientCount()))

	go c.writePump()
	go c.readPump()

	c.emit(envelope(EventSession, st.ID, st))
	c.emit(envelope(EventProbeResult, st.ID, probeData(st, h.evaluate(st))))
	h.requestGroundTruth(c.ctx(), c)
}

// Broadcast 发送给所有连接
func (h *Hub) Broadcast(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn(context.Background(), "broadcast buffer full, dropping event", logx.KV("type", env.Type))
	}
	return nil
}

// SendTo 发送给指定会话；会话不在线时返回 false
func (h *Hub) SendTo(sessionID string, env Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return false
	}
	h.mu.RLock()
	c, ok := h.bySession[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.deliver(c, data)
}

// DeliverOutcome 是 router.Sequencer 的 Sink：ctx 带会话时只发给该会话，否则广播
func (h *Hub) DeliverOutcome(ctx context.Context, out router.Outcome) {
	sid, scoped := contextx.GetSessionID(ctx)
	if out.NoOp() {
		h.logger.Debug(ctx, "instructional message without content", logx.KV("operation", out.Operation))
	}
	for _, env := range outcomeEvents(sid, out) {
		if scoped {
			h.SendTo(sid, env)
			continue
		}
		if err := h.Broadcast(env); err != nil {
			h.logger.Warn(ctx, "failed to broadcast outcome", logx.KV("error", err))
		}
	}
}

// OnServiceEvent 是 services.Requester 的回调
func (h *Hub) OnServiceEvent(ctx context.Context, ev services.Event) {
	switch ev.Kind {
	case services.EventGroundTruth:
		st := ev.State
		h.SendTo(ev.SessionID, envelope(EventGroundTruth, ev.SessionID, GroundTruthData{
			Revision:     st.Revision,
			Matrix:       st.Matrix,
			Eigenvectors: st.GroundTruth,
		}))
		// 真实特征方向到达后重新发送探针视图
		h.SendTo(ev.SessionID, envelope(EventProbeResult, ev.SessionID, probeData(st, h.evaluate(st))))
	case services.EventLeanCode:
		h.SendTo(ev.SessionID, envelope(EventLeanCode, ev.SessionID, map[string]any{
			"revision":  ev.State.Revision,
			"lean_code": ev.State.LeanCode,
		}))
	case services.EventNotice:
		h.SendTo(ev.SessionID, envelope(EventNotice, ev.SessionID, router.Notice{
			Level:   "warning",
			Code:    "service_unavailable",
			Message: ev.Notice,
		}))
	default:
		h.logger.Warn(ctx, "unknown service event", logx.KV("kind", string(ev.Kind)))
	}
}

func (h *Hub) evaluate(st session.State) probe.Result {
	return probe.EvaluateWith(h.sessions.Thresholds(), st.Matrix, st.Vector)
}

func (h *Hub) requestGroundTruth(ctx context.Context, c *Client) {
	if h.requester == nil {
		return
	}
	if _, err := h.requester.RequestGroundTruth(ctx, c.sessionID); err != nil {
		h.logger.Warn(ctx, "ground truth request failed", logx.KV("error", err))
		c.sendError("ground_truth_failed", err.Error())
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	h.bySession[c.sessionID] = c
}

// remove 注销连接并删除其会话；连接可能已被 Run 移除
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		h.drop(c)
	}
	h.mu.Unlock()

	if err := h.sessions.Close(context.Background(), c.sessionID); err != nil {
		h.logger.Warn(c.ctx(), "failed to close session", logx.KV("error", err))
	}
	h.logger.Info(c.ctx(), "client disconnected", logx.KV("clients", h.ClientCount()))
}

// drop 需持有写锁
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	if h.bySession[c.sessionID] == c {
		delete(h.bySession, c.sessionID)
	}
	close(c.send)
}

func (h *Hub) deliver(c *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		h.logger.Warn(c.ctx(), "client buffer full, dropping event")
		return false
	}
}
