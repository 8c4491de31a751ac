package testutil

import (
	"sync"

	"todosync/internal/service"
)

// FakeStore is an in-memory cache.Store for testing.
type FakeStore struct {
	mu      sync.Mutex
	entries map[string][]service.Task

	// Error injection for testing
	GetErr error
	SetErr error

	// SetCalls counts successful writes.
	SetCalls int
}

// NewFakeStore creates an empty store.
func NewFakeStore() *FakeStore {
	return &FakeStore{entries: make(map[string][]service.Task)}
}

// Get implements cache.Store.
func (s *FakeStore) Get(key string) ([]service.Task, bool, error) {
	if s.GetErr != nil {
		return nil, false, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]service.Task, len(tasks))
	copy(out, tasks)
	return out, true, nil
}

// Set implements cache.Store.
func (s *FakeStore) Set(key string, tasks []service.Task) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]service.Task, len(tasks))
	copy(stored, tasks)
	s.entries[key] = stored
	s.SetCalls++
	return nil
}

// Entry returns the stored tasks for key, or nil.
func (s *FakeStore) Entry(key string) []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key]
}
