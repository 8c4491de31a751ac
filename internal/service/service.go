package service

import "context"

// Gateway defines the interface for remote task backend operations.
// All remote calls go through this interface; the synchronizer and
// commands never import a backend SDK directly.
//
// Every implementation attaches the current identity token to each call
// and returns failures classified per the Error taxonomy in this
// package. One attempt per operation; no automatic retry.
type Gateway interface {
	// ListTasks returns the authenticated user's tasks, optionally
	// filtered. A nil slice with nil error is a valid empty result.
	ListTasks(ctx context.Context, opts ListOptions) ([]Task, error)

	// GetTask returns the current remote representation of one task.
	GetTask(ctx context.Context, id string) (Task, error)

	// CreateTask persists a new task and returns it with the
	// remote-assigned ID and timestamps.
	CreateTask(ctx context.Context, t Task) (Task, error)

	// UpdateTask sends the full representation of a task and returns
	// the stored result.
	UpdateTask(ctx context.Context, t Task) (Task, error)

	// DeleteTask removes a task by ID.
	DeleteTask(ctx context.Context, id string) error
}
