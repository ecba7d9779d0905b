package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	logx "github.com/blueplan/linviz-go/internal/linviz/log"
)

func TestSequencerPreservesArrivalOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		ops []string
		wg  sync.WaitGroup
	)
	const n = 50
	wg.Add(n)
	seq := NewSequencer(New(logx.Discard()), 8, func(_ context.Context, out Outcome) {
		mu.Lock()
		ops = append(ops, out.Operation)
		mu.Unlock()
		wg.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seq.Run(ctx)

	for i := 0; i < n; i++ {
		op := fmt.Sprintf("op-%02d", i)
		if err := seq.Submit(ctx, map[string]any{"operation": op}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	waitCh := make(chan struct{})
	go func() { wg.Wait(); close(waitCh) }()
	select {
	case <-waitCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcomes")
	}

	for i, op := range ops {
		if want := fmt.Sprintf("op-%02d", i); op != want {
			t.Fatalf("outcome %d = %s, want %s", i, op, want)
		}
	}
}

func TestSequencerClosed(t *testing.T) {
	seq := NewSequencer(New(logx.Discard()), 1, nil)
	seq.Close()
	seq.Close()
	if err := seq.Submit(context.Background(), map[string]any{"operation": "eigen"}); !errors.Is(err, ErrSequencerClosed) {
		t.Errorf("Submit after Close = %v", err)
	}
}
