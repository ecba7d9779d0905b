package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/contextx"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/session"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	sendBufferSize = 256
)

// Client 一个 WebSocket 连接及其会话
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

func newClient(h *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: sessionID,
	}
}

func (c *Client) ctx() context.Context {
	return contextx.WithSessionID(context.Background(), c.sessionID)
}

// readPump 逐条处理客户端消息，同一连接内按到达顺序执行
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn(c.ctx(), "websocket read error", logx.KV("error", err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump 把 send 中的消息写到连接，并定期发送 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	ctx := c.ctx()

	var msg Inbound
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError("invalid_json", "Failed to parse message")
		return
	}
	data := map[string]any{}
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_data", "data must be a JSON object")
			return
		}
	}

	switch msg.Type {
	case EventPing:
		c.emit(envelope(EventPong, c.sessionID, nil))
	case EventProbe:
		c.handleProbe(ctx, data)
	case EventMatrix:
		c.handleMatrix(ctx, data)
	case EventAgent:
		c.handleAgent(ctx, data)
	case EventGroundTruth:
		c.hub.requestGroundTruth(ctx, c)
	case EventFormalize:
		c.handleFormalize(ctx)
	default:
		c.hub.logger.Debug(ctx, "unknown message type", logx.KV("type", msg.Type))
		c.sendError("unknown_type", "unknown message type: "+msg.Type)
	}
}

func (c *Client) handleProbe(ctx context.Context, data map[string]any) {
	v, err := linalg.ParseVec2(data["vector"])
	if err != nil {
		c.sendError("invalid_vector", err.Error())
		return
	}
	st, res, err := c.hub.sessions.SetVector(ctx, c.sessionID, v)
	if err != nil {
		c.sessionError(err)
		return
	}
	c.emit(envelope(EventProbeResult, c.sessionID, probeData(st, res)))
}

func (c *Client) handleMatrix(ctx context.Context, data map[string]any) {
	m, err := linalg.ParseMat2(data["matrix"])
	if err != nil {
		c.sendError("invalid_matrix", err.Error())
		return
	}
	before, err := c.hub.sessions.Get(ctx, c.sessionID)
	if err != nil {
		c.sessionError(err)
		return
	}
	st, err := c.hub.sessions.SetMatrix(ctx, c.sessionID, m)
	if err != nil {
		c.sessionError(err)
		return
	}
	c.emit(envelope(EventProbeResult, c.sessionID, probeData(st, c.hub.evaluate(st))))
	if st.Revision != before.Revision {
		c.hub.requestGroundTruth(ctx, c)
	}
}

func (c *Client) handleAgent(ctx context.Context, data map[string]any) {
	raw, ok := data["message"].(map[string]any)
	if !ok {
		c.sendError("invalid_agent_message", "data.message must be an object")
		return
	}
	if c.hub.submitter == nil {
		c.sendError("agent_unavailable", "agent routing is not configured")
		return
	}
	if err := c.hub.submitter.Submit(ctx, raw); err != nil {
		c.sendError("agent_unavailable", err.Error())
	}
}

func (c *Client) handleFormalize(ctx context.Context) {
	if c.hub.requester == nil {
		c.sendError("formalize_unavailable", "formalization is not configured")
		return
	}
	if _, err := c.hub.requester.RequestFormalization(ctx, c.sessionID); err != nil {
		c.sessionError(err)
	}
}

func (c *Client) sessionError(err error) {
	code := "session_error"
	if errors.Is(err, session.ErrNotFound) {
		code = "session_expired"
	}
	c.hub.logger.Warn(c.ctx(), "session operation failed", logx.KV("error", err))
	c.sendError(code, err.Error())
}

func (c *Client) emit(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.hub.logger.Error(c.ctx(), "failed to encode event", logx.KV("type", env.Type), logx.KV("error", err))
		return
	}
	c.hub.deliver(c, data)
}

func (c *Client) sendError(code, message string) {
	c.emit(envelope(EventError, c.sessionID, ErrorData{Code: code, Message: message}))
}
