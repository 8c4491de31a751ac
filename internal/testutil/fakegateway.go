// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strconv"
	"sync"
	"time"

	"todosync/internal/service"
	"todosync/internal/view"
)

// FakeGateway is an in-memory implementation of service.Gateway for
// testing. It behaves like the remote service: ids are assigned on
// create, timestamps are stamped on transitions, and filters are
// applied server-side.
type FakeGateway struct {
	mu     sync.Mutex
	owner  string
	nextID int
	tasks  []service.Task

	// Error injection for testing
	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// ListHook, when set, runs before ListTasks reads state. Tests use
	// it to hold a list call in flight.
	ListHook func()
}

// NewFakeGateway creates a gateway whose tasks belong to owner.
func NewFakeGateway(owner string) *FakeGateway {
	return &FakeGateway{owner: owner, nextID: 1}
}

// SeedTask inserts a task directly, bypassing CreateTask. Creation
// times increase with insertion order.
func (f *FakeGateway) SeedTask(id, title, description string, completed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, service.Task{
		ID:          id,
		OwnerID:     f.owner,
		Title:       title,
		Description: description,
		Completed:   completed,
		CreatedAt:   f.clockLocked(),
	})
}

// Reset drops all remote tasks.
func (f *FakeGateway) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = nil
}

// clockLocked yields strictly increasing creation times.
func (f *FakeGateway) clockLocked() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.nextID) * time.Minute)
	f.nextID++
	return t
}

// ListTasks implements service.Gateway.
func (f *FakeGateway) ListTasks(ctx context.Context, opts service.ListOptions) ([]service.Task, error) {
	if f.ListHook != nil {
		f.ListHook()
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []service.Task
	for _, t := range f.tasks {
		if opts.Completed != nil && t.Completed != *opts.Completed {
			continue
		}
		result = append(result, t)
	}
	return view.Filter(result, opts.Search), nil
}

// GetTask implements service.Gateway.
func (f *FakeGateway) GetTask(ctx context.Context, id string) (service.Task, error) {
	if f.GetErr != nil {
		return service.Task{}, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return service.Task{}, notFound(id)
}

// CreateTask implements service.Gateway.
func (f *FakeGateway) CreateTask(ctx context.Context, t service.Task) (service.Task, error) {
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t.ID = strconv.Itoa(f.nextID)
	t.CreatedAt = f.clockLocked()
	if t.OwnerID == "" {
		t.OwnerID = f.owner
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

// UpdateTask implements service.Gateway. Stamps UpdatedAt, and
// CompletedAt on the completion transition.
func (f *FakeGateway) UpdateTask(ctx context.Context, t service.Task) (service.Task, error) {
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.tasks {
		if existing.ID != t.ID {
			continue
		}
		now := f.clockLocked()
		t.OwnerID = existing.OwnerID
		t.CreatedAt = existing.CreatedAt
		t.UpdatedAt = &now
		switch {
		case t.Completed && !existing.Completed:
			t.CompletedAt = &now
		case !t.Completed:
			t.CompletedAt = nil
		default:
			t.CompletedAt = existing.CompletedAt
		}
		f.tasks[i] = t
		return t, nil
	}
	return service.Task{}, notFound(t.ID)
}

// DeleteTask implements service.Gateway.
func (f *FakeGateway) DeleteTask(ctx context.Context, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return notFound(id)
}

// Remote returns a copy of the remote task list in storage order.
func (f *FakeGateway) Remote() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

func notFound(id string) error {
	return &service.Error{Kind: service.KindClient, Status: 404, Message: "task not found: " + id}
}
