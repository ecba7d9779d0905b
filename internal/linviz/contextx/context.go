package contextx

import "context"

// RequestIDKey 请求ID上下文键
type RequestIDKey struct{}

// SessionIDKey 会话ID上下文键
type SessionIDKey struct{}

// WithRequestID 写入请求ID，便于日志模块读取
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, id)
}

// GetRequestID 读取请求ID
func GetRequestID(ctx context.Context) (string, bool) {
	return stringValue(ctx, RequestIDKey{})
}

// WithSessionID 写入会话ID
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey{}, id)
}

// GetSessionID 读取会话ID
func GetSessionID(ctx context.Context) (string, bool) {
	return stringValue(ctx, SessionIDKey{})
}

func stringValue(ctx context.Context, key any) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
