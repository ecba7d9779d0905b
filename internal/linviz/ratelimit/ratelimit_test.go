package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/redis/go-redis/v9"
)

func exercise(t *testing.T, l Limiter, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "ip:1.2.3.4")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !d.Allowed || d.Remaining != 2-i {
			t.Fatalf("request %d: %+v", i, d)
		}
	}
	d, err := l.Allow(ctx, "ip:1.2.3.4")
	if err != nil || d.Allowed || d.Remaining != 0 {
		t.Fatalf("4th request = %+v, %v; want denied", d, err)
	}

	// other keys are independent
	if d, _ := l.Allow(ctx, "ip:5.6.7.8"); !d.Allowed {
		t.Error("separate key should be allowed")
	}

	advance(2 * time.Second)
	if d, _ := l.Allow(ctx, "ip:1.2.3.4"); !d.Allowed {
		t.Error("window should have slid")
	}

	if err := l.Reset(ctx, "ip:5.6.7.8"); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(time.Second, 3, logx.Discard())
	now := time.Now()
	l.now = func() time.Time { return now }
	exercise(t, l, func(d time.Duration) { now = now.Add(d) })
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, time.Second, 3, logx.Discard())
	now := time.Now()
	l.now = func() time.Time { return now }
	exercise(t, l, func(d time.Duration) {
		now = now.Add(d)
		mr.FastForward(d)
	})
}
