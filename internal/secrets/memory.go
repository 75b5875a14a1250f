package secrets

import (
	"context"
	"sync"
)

// MemoryStore is a non-durable Store, used in tests and for ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool

	exclusive gate
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:    make(map[string]string),
		exclusive: newGate(),
	}
}

func (s *MemoryStore) get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Authz(context.Context) (bool, error) {
	return readAuthz(s.get)
}

func (s *MemoryStore) AppStatus(context.Context) (AppStatus, error) {
	return readAppStatus(s.get)
}

func (s *MemoryStore) AppRegistration(context.Context) (*AppRegistration, error) {
	return readAppRegistration(s.get)
}

func (s *MemoryStore) SetAuthz(ctx context.Context, authz bool) error {
	return s.Update(ctx, func(w Writer) error { return w.SetAuthz(ctx, authz) })
}

func (s *MemoryStore) SetAppStatus(ctx context.Context, status AppStatus) error {
	return s.Update(ctx, func(w Writer) error { return w.SetAppStatus(ctx, status) })
}

func (s *MemoryStore) SetAppRegistration(ctx context.Context, reg AppRegistration) error {
	return s.Update(ctx, func(w Writer) error { return w.SetAppRegistration(ctx, reg) })
}

// Update stages all writes and applies them under a single lock acquisition.
func (s *MemoryStore) Update(_ context.Context, fn func(w Writer) error) error {
	return s.commit("", fn)
}

func (s *MemoryStore) Transition(_ context.Context, from AppStatus, fn func(w Writer) error) error {
	return s.commit(from, fn)
}

func (s *MemoryStore) commit(from AppStatus, fn func(w Writer) error) error {
	staged := &stagedWriter{}
	if err := fn(staged); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if from != "" {
		current, err := readAppStatus(func(key string) (string, bool, error) {
			v, ok := s.values[key]
			return v, ok, nil
		})
		if err != nil {
			return err
		}
		if current != from {
			return &StatusConflictError{Expected: from, Actual: current}
		}
	}
	for _, e := range staged.entries {
		s.values[e.key] = e.value
	}
	return nil
}

// Exclusive serializes callers of this store. A MemoryStore is never shared
// between processes.
func (s *MemoryStore) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.exclusive.run(ctx, fn)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
