package session

import (
	"context"
	"errors"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/google/uuid"
)

// Manager 交互会话的唯一写入者
//
// 只有用户输入 (SetMatrix/SetVector) 修改矩阵和向量；服务响应通过 Ticket
// 校验后写入，过期响应被丢弃。
type Manager struct {
	store      Store
	thresholds probe.Thresholds
	logger     *logx.Logger
	now        func() time.Time
}

// NewManager 创建会话管理器
func NewManager(store Store, th probe.Thresholds, logger *logx.Logger) *Manager {
	return &Manager{store: store, thresholds: th, logger: logger, now: time.Now}
}

// Thresholds 返回探针阈值
func (m *Manager) Thresholds() probe.Thresholds {
	return m.thresholds
}

// Create 新建会话
func (m *Manager) Create(ctx context.Context, matrix linalg.Mat2) (State, error) {
	st := State{
		ID:        uuid.NewString(),
		Matrix:    matrix,
		Vector:    DefaultVector,
		Revision:  1,
		UpdatedAt: m.now(),
	}
	if err := m.store.Put(ctx, st); err != nil {
		return State{}, err
	}
	m.logger.Info(ctx, "session created", logx.KV("session_id", st.ID), logx.KV("matrix", st.Matrix.String()))
	return st, nil
}

// Get 读取会话
func (m *Manager) Get(ctx context.Context, id string) (State, error) {
	return m.store.Get(ctx, id)
}

// Close 删除会话
func (m *Manager) Close(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// SetMatrix 修改矩阵，版本号加一并清空与旧矩阵相关的结果
func (m *Manager) SetMatrix(ctx context.Context, id string, matrix linalg.Mat2) (State, error) {
	return m.store.Update(ctx, id, func(st *State) error {
		if st.Matrix == matrix {
			return nil
		}
		st.Matrix = matrix
		st.Revision++
		st.GroundTruth = nil
		st.LeanCode = ""
		st.UpdatedAt = m.now()
		return nil
	})
}

// SetVector 修改向量并返回新的探针结果
func (m *Manager) SetVector(ctx context.Context, id string, v linalg.Vec2) (State, probe.Result, error) {
	st, err := m.store.Update(ctx, id, func(st *State) error {
		st.Vector = v
		st.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return State{}, probe.Result{}, err
	}
	return st, probe.EvaluateWith(m.thresholds, st.Matrix, st.Vector), nil
}

// Evaluate 对当前快照运行探针
func (m *Manager) Evaluate(ctx context.Context, id string) (probe.Result, error) {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return probe.Result{}, err
	}
	return probe.EvaluateWith(m.thresholds, st.Matrix, st.Vector), nil
}

// Ticket 为外部请求生成版本票据
func (m *Manager) Ticket(ctx context.Context, id string) (Ticket, error) {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{SessionID: st.ID, Revision: st.Revision, Matrix: st.Matrix}, nil
}

// ApplyGroundTruth 写入真实特征向量；票据过期时返回 ErrStaleResponse 且不修改状态
func (m *Manager) ApplyGroundTruth(ctx context.Context, t Ticket, vectors []linalg.Vec2) (State, error) {
	return m.applyTicketed(ctx, t, "ground_truth", func(st *State) {
		st.GroundTruth = vectors
	})
}

// ApplyLeanCode 写入形式化结果，规则同 ApplyGroundTruth
func (m *Manager) ApplyLeanCode(ctx context.Context, t Ticket, code string) (State, error) {
	return m.applyTicketed(ctx, t, "lean_code", func(st *State) {
		st.LeanCode = code
	})
}

func (m *Manager) applyTicketed(ctx context.Context, t Ticket, what string, apply func(*State)) (State, error) {
	st, err := m.store.Update(ctx, t.SessionID, func(st *State) error {
		if !t.Current(*st) {
			return ErrStaleResponse
		}
		apply(st)
		st.UpdatedAt = m.now()
		return nil
	})
	if errors.Is(err, ErrStaleResponse) {
		m.logger.Debug(ctx, "discarding stale service response",
			logx.KV("session_id", t.SessionID),
			logx.KV("kind", what),
			logx.KV("revision", t.Revision))
	}
	return st, err
}
