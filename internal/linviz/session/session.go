// Package session owns the live matrix and vector of an interactive probe
// session and guards them against stale service responses.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/linalg"
)

var (
	// ErrNotFound 会话不存在或已过期
	ErrNotFound = errors.New("session: not found")
	// ErrStaleResponse 响应对应的矩阵已被修改
	ErrStaleResponse = errors.New("session: stale service response")
)

// DefaultMatrix 和 DefaultVector 是新会话的初始状态
var (
	DefaultMatrix = linalg.Mat2{A: 2, B: 0, C: 0, D: 3}
	DefaultVector = linalg.Vec2{X: 1, Y: 1}
)

// State 会话状态
//
// Revision 在矩阵每次变化时递增；GroundTruth 和 LeanCode 只对产生它们的
// Revision 有效，矩阵变化时清空。
type State struct {
	ID          string        `json:"id"`
	Matrix      linalg.Mat2   `json:"matrix"`
	Vector      linalg.Vec2   `json:"vector"`
	Revision    uint64        `json:"revision"`
	GroundTruth []linalg.Vec2 `json:"ground_truth,omitempty"`
	LeanCode    string        `json:"lean_code,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Ticket 标记一次外部请求对应的矩阵版本
type Ticket struct {
	SessionID string      `json:"session_id"`
	Revision  uint64      `json:"revision"`
	Matrix    linalg.Mat2 `json:"matrix"`
}

// Current 判断票据是否仍对应当前状态
func (t Ticket) Current(st State) bool {
	return t.SessionID == st.ID && t.Revision == st.Revision && t.Matrix == st.Matrix
}

// Store 会话存储
type Store interface {
	Get(ctx context.Context, id string) (State, error)
	Put(ctx context.Context, st State) error
	Delete(ctx context.Context, id string) error
	// Update 原子地读-改-写；fn 返回错误时不写入
	Update(ctx context.Context, id string, fn func(*State) error) (State, error)
}
