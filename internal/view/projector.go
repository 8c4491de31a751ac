// Package view derives filtered subsets of the synchronized task
// collection for display. Derivations are pure: no side effects, never
// persisted, recomputed from canonical state on demand.
package view

import (
	"strings"

	"todosync/internal/service"
)

// Filter returns the subsequence of tasks whose title or description
// contains term, case-insensitive. Relative order is preserved. An
// empty term returns all tasks unchanged.
func Filter(tasks []service.Task, term string) []service.Task {
	if term == "" {
		return tasks
	}
	needle := strings.ToLower(term)

	var out []service.Task
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Projector derives a display subset of the canonical collection.
// Stateless with respect to persistence.
type Projector struct {
	// Term restricts to tasks matching the search term.
	Term string

	// Completed, when non-nil, restricts by completion status.
	Completed *bool
}

// Project applies the projector's filters in order: completion status,
// then search term.
func (p Projector) Project(tasks []service.Task) []service.Task {
	if p.Completed != nil {
		var kept []service.Task
		for _, t := range tasks {
			if t.Completed == *p.Completed {
				kept = append(kept, t)
			}
		}
		tasks = kept
	}
	return Filter(tasks, p.Term)
}
