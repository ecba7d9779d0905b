package contextx

import (
	"context"
	"testing"
)

func TestRequestAndSessionIDs(t *testing.T) {
	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")

	if id, ok := GetRequestID(ctx); !ok || id != "req-1" {
		t.Errorf("GetRequestID = %q, %v", id, ok)
	}
	if id, ok := GetSessionID(ctx); !ok || id != "sess-1" {
		t.Errorf("GetSessionID = %q, %v", id, ok)
	}
}

func TestMissingIDs(t *testing.T) {
	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("expected no request id")
	}
	if _, ok := GetSessionID(nil); ok {
		t.Error("expected no session id on nil context")
	}
	if _, ok := GetRequestID(WithRequestID(context.Background(), "")); ok {
		t.Error("empty id should read as missing")
	}
}
