// Package services talks to the ground-truth eigen service and the
// formalization service.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/formal"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
)

// EigenService 计算真实特征分解
type EigenService interface {
	GroundTruth(ctx context.Context, m linalg.Mat2) (GroundTruth, error)
}

// GroundTruth 服务响应，Eigenvectors 第 i 列是第 i 个特征向量
type GroundTruth struct {
	Eigenvalues  json.RawMessage `json:"eigenvalues,omitempty"`
	Eigenvectors [][]float64     `json:"eigenvectors,omitempty"`
}

// Directions 解析特征向量列；字段缺失或形状不对时返回 false，表示没有真实值
func (g GroundTruth) Directions() ([]linalg.Vec2, bool) {
	ev := g.Eigenvectors
	if len(ev) != 2 || len(ev[0]) != 2 || len(ev[1]) != 2 {
		return nil, false
	}
	return []linalg.Vec2{
		{X: ev[0][0], Y: ev[1][0]},
		{X: ev[0][1], Y: ev[1][1]},
	}, true
}

// RemoteEigen 调用外部 /api/eigen
type RemoteEigen struct {
	http *HTTPClient
}

// NewRemoteEigen 创建远程特征分解客户端
func NewRemoteEigen(baseURL string, timeout time.Duration) *RemoteEigen {
	return &RemoteEigen{http: NewHTTPClient(baseURL, timeout)}
}

// GroundTruth 发送 {matrix}
func (r *RemoteEigen) GroundTruth(ctx context.Context, m linalg.Mat2) (GroundTruth, error) {
	var out GroundTruth
	err := r.http.PostJSON(ctx, "/api/eigen", map[string]any{"matrix": m}, &out)
	return out, err
}

// WithAuthToken 每个请求带上 Bearer token
func (r *RemoteEigen) WithAuthToken(token string) *RemoteEigen {
	r.http.SetHeader("Authorization", "Bearer "+token)
	return r
}

// LocalEigen 进程内计算
type LocalEigen struct{}

// GroundTruth 使用 linalg.Decompose；复数谱没有特征向量
func (LocalEigen) GroundTruth(_ context.Context, m linalg.Mat2) (GroundTruth, error) {
	d, err := linalg.Decompose(m)
	if err != nil {
		return GroundTruth{}, err
	}
	values, err := json.Marshal(d.RealValues())
	if err != nil {
		return GroundTruth{}, err
	}
	return GroundTruth{Eigenvalues: values, Eigenvectors: d.Eigenvectors}, nil
}

// RemoteFormalizer 调用外部 /api/formalize
type RemoteFormalizer struct {
	http *HTTPClient
}

// NewRemoteFormalizer 创建远程形式化客户端
func NewRemoteFormalizer(baseURL string, timeout time.Duration) *RemoteFormalizer {
	return &RemoteFormalizer{http: NewHTTPClient(baseURL, timeout)}
}

// WithAuthToken 每个请求带上 Bearer token
func (r *RemoteFormalizer) WithAuthToken(token string) *RemoteFormalizer {
	r.http.SetHeader("Authorization", "Bearer "+token)
	return r
}

type formalizeResponse struct {
	LeanCode string `json:"lean_code"`
	Status   string `json:"status,omitempty"`
}

// Formalize 发送 {problem}
func (r *RemoteFormalizer) Formalize(ctx context.Context, problem string) (string, error) {
	var out formalizeResponse
	if err := r.http.PostJSON(ctx, "/api/formalize", map[string]string{"problem": problem}, &out); err != nil {
		return "", err
	}
	return out.LeanCode, nil
}

var _ formal.Formalizer = (*RemoteFormalizer)(nil)
