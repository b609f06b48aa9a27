// Package syncsignal carries "ledger data changed" notifications between
// screens and processes through a shared key. Signals have no payload:
// subscribers reload their own data when a key changes.
package syncsignal

import (
	"context"
	"errors"
	"sync"
)

// ErrWatchUnsupported is returned by stores that cannot push changes.
// Subscribers of such stores rely on polling alone.
var ErrWatchUnsupported = errors.New("store does not support change notifications")

// Store is the shared medium. Get returns "" for a key that was never set.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Watch calls fn with the new value whenever key is set. The returned stop
	// function must be safe to call more than once.
	Watch(ctx context.Context, key string, fn func(value string)) (stop func(), err error)
}

// KV is the plain get/set part of a Store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// NotifyingStore adds in-process change notifications to any KV.
type NotifyingStore struct {
	base KV

	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]func(string)
}

// NewNotifyingStore wraps base. Every successful Set through the wrapper is
// broadcast to the watchers of that key.
func NewNotifyingStore(base KV) *NotifyingStore {
	return &NotifyingStore{
		base:     base,
		watchers: make(map[string]map[int]func(string)),
	}
}

// NewMemoryStore returns a process-local store.
func NewMemoryStore() *NotifyingStore {
	return NewNotifyingStore(&mapKV{values: make(map[string]string)})
}

func (s *NotifyingStore) Get(ctx context.Context, key string) (string, error) {
	return s.base.Get(ctx, key)
}

func (s *NotifyingStore) Set(ctx context.Context, key, value string) error {
	if err := s.base.Set(ctx, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	fns := make([]func(string), 0, len(s.watchers[key]))
	for _, fn := range s.watchers[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
	return nil
}

func (s *NotifyingStore) Watch(_ context.Context, key string, fn func(string)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]func(string))
	}
	s.watchers[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers[key], id)
			if len(s.watchers[key]) == 0 {
				delete(s.watchers, key)
			}
		})
	}, nil
}

// Watchers returns the number of active watchers on key.
func (s *NotifyingStore) Watchers(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[key])
}

type mapKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *mapKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// PollOnly adapts a KV into a Store without notifications.
func PollOnly(kv KV) Store {
	return pollOnly{kv}
}

type pollOnly struct{ KV }

func (pollOnly) Watch(context.Context, string, func(string)) (func(), error) {
	return nil, ErrWatchUnsupported
}
