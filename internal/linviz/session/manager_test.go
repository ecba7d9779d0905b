package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  rs,
	}
}

func TestManagerLifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := NewManager(store, probe.DefaultThresholds(), logx.Discard())

			st, err := m.Create(ctx, DefaultMatrix)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if st.Revision != 1 || st.Vector != DefaultVector {
				t.Errorf("new state = %+v", st)
			}

			_, res, err := m.SetVector(ctx, st.ID, linalg.Vec2{X: 1})
			if err != nil {
				t.Fatalf("SetVector: %v", err)
			}
			if !res.IsEigen || res.Ratio.Value != 2 {
				t.Errorf("probe on (1,0) = %+v", res)
			}

			st, err = m.SetMatrix(ctx, st.ID, linalg.Mat2{A: 1, B: 2, C: 2, D: 1})
			if err != nil {
				t.Fatalf("SetMatrix: %v", err)
			}
			if st.Revision != 2 {
				t.Errorf("Revision = %d, want 2", st.Revision)
			}
			same, _ := m.SetMatrix(ctx, st.ID, linalg.Mat2{A: 1, B: 2, C: 2, D: 1})
			if same.Revision != 2 {
				t.Errorf("setting the same matrix bumped revision to %d", same.Revision)
			}

			res, err = m.Evaluate(ctx, st.ID)
			if err != nil || res.Matrix != st.Matrix || res.X != (linalg.Vec2{X: 1}) {
				t.Errorf("Evaluate = %+v, %v", res, err)
			}

			if err := m.Close(ctx, st.ID); err != nil {
				t.Fatal(err)
			}
			if _, err := m.Get(ctx, st.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Close = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStaleGroundTruthIsDiscarded(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := NewManager(store, probe.DefaultThresholds(), logx.Discard())
			st, _ := m.Create(ctx, DefaultMatrix)

			stale, err := m.Ticket(ctx, st.ID)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := m.SetMatrix(ctx, st.ID, linalg.Mat2{A: 4, D: 5}); err != nil {
				t.Fatal(err)
			}
			fresh, _ := m.Ticket(ctx, st.ID)

			if _, err := m.ApplyGroundTruth(ctx, stale, []linalg.Vec2{{X: 1}, {Y: 1}}); !errors.Is(err, ErrStaleResponse) {
				t.Fatalf("stale apply error = %v, want ErrStaleResponse", err)
			}
			cur, _ := m.Get(ctx, st.ID)
			if cur.GroundTruth != nil {
				t.Errorf("stale response leaked into state: %v", cur.GroundTruth)
			}

			cur, err = m.ApplyGroundTruth(ctx, fresh, []linalg.Vec2{{X: 1}, {Y: 1}})
			if err != nil || len(cur.GroundTruth) != 2 {
				t.Errorf("fresh apply = %+v, %v", cur, err)
			}

			if _, err := m.ApplyLeanCode(ctx, stale, "stale"); !errors.Is(err, ErrStaleResponse) {
				t.Errorf("stale lean apply error = %v", err)
			}
			cur, _ = m.ApplyLeanCode(ctx, fresh, "example : True := trivial")
			if cur.LeanCode == "" {
				t.Error("fresh lean code not applied")
			}

			// a new matrix clears the results that belonged to the old one
			cur, _ = m.SetMatrix(ctx, st.ID, DefaultMatrix)
			if cur.GroundTruth != nil || cur.LeanCode != "" {
				t.Errorf("results not cleared on matrix change: %+v", cur)
			}
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	ctx := context.Background()
	if err := s.Put(ctx, State{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Get = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(ctx, "a", func(*State) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Update = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreTTLAndConcurrentUpdates(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	if err := store.Put(ctx, State{ID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(keyPrefix + "s1"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				_, err := store.Update(ctx, "s1", func(st *State) error {
					st.Revision++
					st.LeanCode = strconv.Itoa(i)
					return nil
				})
				if err == nil {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	st, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Revision != 20 {
		t.Errorf("Revision = %d after 20 updates", st.Revision)
	}
}

func TestRedisStoreMissing(t *testing.T) {
	store, _ := newRedisStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
	if _, err := store.Update(context.Background(), "nope", func(*State) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update = %v, want ErrNotFound", err)
	}
}
