// Package service defines the backend-agnostic gateway contract for task
// operations and the canonical Task type.
package service

import "time"

// Task is the canonical unit of work tracked by the system.
type Task struct {
	// ID is assigned by the remote service. Empty for a task that has
	// not been persisted remotely yet.
	ID string

	// OwnerID is the identity of the owning user. Immutable once set.
	OwnerID string

	Title       string
	Description string
	Completed   bool

	// CreatedAt is remote-assigned when available, else local wall clock
	// as a placeholder.
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	CompletedAt *time.Time
}

// ListOptions carries the optional query filters for ListTasks.
type ListOptions struct {
	// Search restricts results to tasks whose title or description
	// contains the term.
	Search string

	// Completed, when non-nil, restricts results by completion status.
	Completed *bool
}
