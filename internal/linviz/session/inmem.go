package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 进程内存储，带过期时间
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// NewMemoryStore 创建内存存储，ttl<=0 表示不过期
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) lookup(id string) (State, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return State{}, false
	}
	if s.ttl > 0 && s.now().After(e.expires) {
		delete(s.sessions, id)
		return State{}, false
	}
	return e.state, true
}

func (s *MemoryStore) store(st State) {
	s.sessions[st.ID] = memoryEntry{state: st, expires: s.now().Add(s.ttl)}
}

// Get 读取会话并刷新过期时间
func (s *MemoryStore) Get(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lookup(id)
	if !ok {
		return State{}, ErrNotFound
	}
	s.store(st)
	return st, nil
}

// Put 写入会话
func (s *MemoryStore) Put(_ context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(st)
	return nil
}

// Delete 删除会话
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Update 在锁内执行读-改-写
func (s *MemoryStore) Update(_ context.Context, id string, fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lookup(id)
	if !ok {
		return State{}, ErrNotFound
	}
	if err := fn(&st); err != nil {
		return State{}, err
	}
	s.store(st)
	return st, nil
}
