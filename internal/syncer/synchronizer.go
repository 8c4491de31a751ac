// Package syncer maintains the authoritative in-memory task collection
// for the active identity, reconciling the remote service, the local
// cache, and local mutations.
package syncer

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"todosync/internal/cache"
	"todosync/internal/identity"
	"todosync/internal/service"
	"todosync/internal/view"
)

// Synchronizer owns the canonical task collection and is the only
// writer to the cache store's per-user entry. The gateway and the
// store are stateless request/response and get/set primitives.
//
// Canonical ordering is newest-first by creation time. The collection
// is replaced wholesale on identity change; no task from one identity
// ever survives into another's session.
type Synchronizer struct {
	gateway service.Gateway
	store   cache.Store
	logger  *slog.Logger

	mu      sync.Mutex
	active  *identity.Identity
	epoch   uint64 // bumped on every identity change; guards stale responses
	tasks   []service.Task
	loading bool
	lastErr error
}

// New creates a synchronizer in the unauthenticated state.
func New(gateway service.Gateway, store cache.Store, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{gateway: gateway, store: store, logger: logger}
}

// Bind subscribes to the session so identity changes drive the
// synchronizer: hydrate from cache synchronously, then refresh from
// the remote service in the background. Returns the unsubscribe func.
func (s *Synchronizer) Bind(ctx context.Context, sess identity.Session) func() {
	return sess.Subscribe(func(ident *identity.Identity) {
		s.ActivateIdentity(ident)
		if ident != nil {
			go func() {
				if err := s.Refresh(ctx); err != nil {
					s.logger.Debug("background_refresh_failed", "error", err)
				}
			}()
		}
	})
}

// ActivateIdentity replaces the active identity. A nil identity
// (logout) clears canonical state and reads no cache. A non-nil
// identity hydrates canonical state from the cache entry for that
// identity so the first paint is bounded by local I/O, not the
// network. Any in-flight refresh for the previous identity becomes
// stale and its result is dropped.
func (s *Synchronizer) ActivateIdentity(ident *identity.Identity) {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.active = ident
	s.tasks = nil
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()

	if ident == nil {
		return
	}

	cached, ok, err := s.store.Get(cache.Key(ident.ID))
	if err != nil {
		s.logger.Warn("cache_read_failed", "owner", ident.ID, "error", err)
		return
	}
	if !ok || len(cached) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	s.tasks = sortNewestFirst(cached)
}

// Refresh fetches the authoritative task list. A non-empty result
// replaces canonical state and is written to the cache; an empty
// result preserves the cache-loaded state (a transient empty response
// must not discard locally cached tasks); a failure sets the last
// error and keeps last-known-good state. Safe to call repeatedly;
// across overlapping calls the last one to resolve wins.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return service.ErrNoIdentity
	}
	ident := s.active
	epoch := s.epoch
	s.loading = true
	s.mu.Unlock()

	remote, err := s.gateway.ListTasks(ctx, service.ListOptions{})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// A later ActivateIdentity superseded this refresh. Its
		// result must not touch the new identity's state.
		s.logger.Debug("stale_refresh_dropped", "owner", ident.ID)
		return nil
	}
	s.loading = false

	if err != nil {
		s.lastErr = err
		return err
	}
	s.lastErr = nil

	if len(remote) == 0 {
		return nil
	}
	s.tasks = sortNewestFirst(remote)
	s.persistLocked(ident)
	return nil
}

// AddTask creates a task remotely and, on success, prepends the stored
// result to canonical state. No optimistic insertion: the ID is
// server-assigned, so the caller waits for the round trip.
func (s *Synchronizer) AddTask(ctx context.Context, title, description string) (service.Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return service.Task{}, service.Errf(service.KindValidation, "title must not be empty")
	}
	if description == "" {
		return service.Task{}, service.Errf(service.KindValidation, "description must not be empty")
	}

	ident, epoch, err := s.activeIdentity()
	if err != nil {
		return service.Task{}, err
	}

	created, err := s.gateway.CreateTask(ctx, service.Task{
		OwnerID:     ident.ID,
		Title:       title,
		Description: description,
	})
	if err != nil {
		return service.Task{}, err
	}
	if created.OwnerID == "" {
		created.OwnerID = ident.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return created, nil
	}
	s.tasks = append([]service.Task{created}, s.tasks...)
	s.persistLocked(ident)
	return created, nil
}

// DeleteTask removes a task remotely and, on success, from canonical
// state. On failure canonical state is unchanged.
func (s *Synchronizer) DeleteTask(ctx context.Context, taskID string) error {
	ident, epoch, err := s.activeIdentity()
	if err != nil {
		return err
	}

	if err := s.gateway.DeleteTask(ctx, taskID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.persistLocked(ident)
	return nil
}

// EditTask changes a task's title and description using a
// read-modify-write against the fresh remote copy, so fields this
// client does not track survive the update.
func (s *Synchronizer) EditTask(ctx context.Context, taskID, title, description string) (service.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, service.Errf(service.KindValidation, "title must not be empty")
	}

	return s.readModifyWrite(ctx, taskID, func(t *service.Task) {
		t.Title = title
		t.Description = strings.TrimSpace(description)
	})
}

// SetCompleted changes a task's completion status via the same
// read-modify-write protocol as EditTask.
func (s *Synchronizer) SetCompleted(ctx context.Context, taskID string, completed bool) (service.Task, error) {
	return s.readModifyWrite(ctx, taskID, func(t *service.Task) {
		t.Completed = completed
	})
}

func (s *Synchronizer) readModifyWrite(ctx context.Context, taskID string, merge func(*service.Task)) (service.Task, error) {
	ident, epoch, err := s.activeIdentity()
	if err != nil {
		return service.Task{}, err
	}

	current, err := s.gateway.GetTask(ctx, taskID)
	if err != nil {
		return service.Task{}, err
	}
	merge(&current)

	updated, err := s.gateway.UpdateTask(ctx, current)
	if err != nil {
		return service.Task{}, err
	}
	if updated.OwnerID == "" {
		updated.OwnerID = ident.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return updated, nil
	}
	for i := range s.tasks {
		if s.tasks[i].ID == updated.ID {
			s.tasks[i] = updated
			break
		}
	}
	s.persistLocked(ident)
	return updated, nil
}

// Search returns the subsequence of canonical tasks whose title or
// description contains term, case-insensitive and order-preserving.
// An empty term returns the full collection. Pure derivation, never
// persisted.
func (s *Synchronizer) Search(term string) []service.Task {
	return view.Filter(s.Tasks(), term)
}

// Tasks returns a copy of the canonical collection, newest-first.
func (s *Synchronizer) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]service.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// IsLoading reports whether a refresh is in flight.
func (s *Synchronizer) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the classified error from the most recent failed
// refresh, or nil.
func (s *Synchronizer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ActiveIdentity returns the identity the collection belongs to, or
// nil when unauthenticated.
func (s *Synchronizer) ActiveIdentity() *identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// activeIdentity is the mutation precondition: an identity must be
// active. Returns the identity and the epoch to re-check before
// applying results.
func (s *Synchronizer) activeIdentity() (*identity.Identity, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, 0, service.ErrNoIdentity
	}
	return s.active, s.epoch, nil
}

// persistLocked writes the canonical collection to the cache entry for
// ident. Cache failures are logged and swallowed; the remote service
// is the durability guarantee. Caller holds s.mu.
func (s *Synchronizer) persistLocked(ident *identity.Identity) {
	if err := s.store.Set(cache.Key(ident.ID), s.tasks); err != nil {
		s.logger.Warn("cache_write_failed", "owner", ident.ID, "error", err)
	}
}

// sortNewestFirst returns a copy ordered newest-first by creation
// time. Stable so tasks with equal timestamps keep their remote order.
func sortNewestFirst(tasks []service.Task) []service.Task {
	out := make([]service.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
