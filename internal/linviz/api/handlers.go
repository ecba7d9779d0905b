package api

import (
	"errors"
	"net/http"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
	"github.com/blueplan/linviz-go/internal/linviz/contextx"
	"github.com/blueplan/linviz-go/internal/linviz/formal"
	"github.com/blueplan/linviz-go/internal/linviz/geometry"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	"github.com/blueplan/linviz-go/internal/linviz/llm"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/tutor"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleHome(c *gin.Context) {
	c.String(http.StatusOK, Banner)
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"version": s.cfg.App.Version,
	}
	if s.deps.Hub != nil {
		resp["clients"] = s.deps.Hub.ClientCount()
	}
	if s.deps.Health != nil {
		resp["redis"] = s.deps.Health.HealthCheck(c.Request.Context())
	}
	c.JSON(http.StatusOK, resp)
}

// handleEigen 特征分解；特征向量按列排列
func (s *Server) handleEigen(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body", err)
		return
	}
	raw := req["matrix"]
	if isEmpty(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No matrix provided"})
		return
	}

	m, err := linalg.ParseMat2(raw)
	if err != nil {
		s.internalError(c, err)
		return
	}
	d, err := linalg.Decompose(m)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, eigenResponse(d))
}

// eigenResponse 实数谱返回数值列表；复数谱返回 {real, imag} 且没有特征向量
func eigenResponse(d linalg.Decomposition) gin.H {
	if !d.Real() {
		return gin.H{"eigenvalues": d.Eigenvalues}
	}
	return gin.H{
		"eigenvalues":  d.RealValues(),
		"eigenvectors": d.Eigenvectors,
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []any:
		return len(x) == 0
	case string:
		return x == ""
	case float64:
		return x == 0
	case bool:
		return !x
	}
	return false
}

func (s *Server) handleFormalize(c *gin.Context) {
	var req struct {
		Problem string `json:"problem"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body", err)
		return
	}
	code, err := s.deps.Formalizer.Formalize(c.Request.Context(), req.Problem)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lean_code": code, "status": formal.StatusGenerated})
}

func (s *Server) handleVerify(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body", err)
		return
	}
	v, err := s.deps.Verifier.Verify(c.Request.Context(), req.Code)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// handleRoute 路由一条 agent 消息；无效消息也返回 200 和对应的结果类型
func (s *Server) handleRoute(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.badRequest(c, "body must be a JSON object", err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Router.Route(c.Request.Context(), raw))
}

type probeResponse struct {
	Result     probe.Result     `json:"result"`
	Eigenvalue *float64         `json:"eigenvalue"`
	Geometry   []geometry.Shape `json:"geometry"`
}

func (s *Server) handleProbe(c *gin.Context) {
	var req struct {
		Matrix any `json:"matrix"`
		Vector any `json:"vector"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body", err)
		return
	}
	m, err := linalg.ParseMat2(req.Matrix)
	if err != nil {
		s.badRequest(c, "invalid matrix", err)
		return
	}
	x, err := linalg.ParseVec2(req.Vector)
	if err != nil {
		s.badRequest(c, "invalid vector", err)
		return
	}

	res := probe.EvaluateWith(s.deps.Thresholds, m, x)
	if !res.Finite() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "matrix times vector is not finite"})
		return
	}
	var truth []linalg.Vec2
	if d, err := linalg.Decompose(m); err == nil {
		truth = d.Directions()
	}
	resp := probeResponse{Result: res, Geometry: geometry.ProbeView(res.X, res.Ax, truth)}
	if lambda, ok := res.Eigenvalue(); ok {
		resp.Eigenvalue = &lambda
	}
	c.JSON(http.StatusOK, resp)
}

// handleChat 调用 tutor 生成 agent 消息；消息同时进入路由队列，结果推送给 WebSocket 客户端
func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		Message   string        `json:"message"`
		SessionID string        `json:"session_id"`
		History   []llm.Message `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body", err)
		return
	}

	ctx := c.Request.Context()
	if req.SessionID != "" {
		ctx = contextx.WithSessionID(ctx, req.SessionID)
	}

	raw, err := s.deps.Tutor.Reply(ctx, req.Message, req.History...)
	switch {
	case errors.Is(err, tutor.ErrEmptyMessage):
		s.badRequest(c, "message is required", err)
		return
	case errors.Is(err, agent.ErrInvalidJSON):
		s.logger.Warn(ctx, "agent reply could not be parsed", logx.KV("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.internalError(c, err)
		return
	}

	if s.deps.Submitter != nil {
		if err := s.deps.Submitter.Submit(ctx, raw); err != nil {
			s.logger.Warn(ctx, "failed to queue agent message", logx.KV("error", err))
		}
	}
	c.JSON(http.StatusOK, raw)
}

func (s *Server) badRequest(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": msg + ": " + err.Error()})
}

func (s *Server) internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
