package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/teedee/internal/todoapi"
)

// Error messages exposed to the UI, one per operation type.
const (
	MsgFetchFailed  = "Failed to fetch todos"
	MsgAddFailed    = "Failed to add todo"
	MsgUpdateFailed = "Failed to update todo"
	MsgDeleteFailed = "Failed to delete todo"
)

// offlineThreshold is the number of consecutive network failures after which
// the backend is reported as offline.
const offlineThreshold = 2

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Todos               []todoapi.Todo
	Loading             bool
	Error               string // empty when the last operation succeeded
	LastUpdated         time.Time
	ConsecutiveFailures int
	NetworkFailures     int // consecutive failures that never reached the backend
}

// HasError reports whether the last operation failed.
func (s Snapshot) HasError() bool {
	return s.Error != ""
}

// IsOffline returns true when the backend has been unreachable for multiple operations.
func (s Snapshot) IsOffline() bool {
	return s.NetworkFailures >= offlineThreshold
}

// Find returns the record with the given id.
func (s Snapshot) Find(id int64) (todoapi.Todo, bool) {
	for _, t := range s.Todos {
		if t.HasID(id) {
			return t, true
		}
	}
	return todoapi.Todo{}, false
}

// Counts returns the number of completed and pending records.
func (s Snapshot) Counts() (done, pending int) {
	for _, t := range s.Todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return done, pending
}

// Listener receives a fresh snapshot after every state change.
type Listener func(Snapshot)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to record discarded failure causes.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store owns the todo collection and serializes every mutation through the
// Service. At most one Service call is in flight at a time; overlapping
// intents wait for the slot in arrival order.
type Store struct {
	svc    todoapi.Service
	logger *log.Logger
	slot   chan struct{}

	mu       sync.RWMutex
	snapshot Snapshot
	// abandoned holds the failure message of an intent that gave up waiting
	// for the slot, until the operation holding the slot settles.
	abandoned string

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int

	// notifyMu keeps listener delivery ordered.
	notifyMu sync.Mutex
}

// New builds a Store in its initial loading state. Callers normally follow it
// with Refresh; Open does both.
func New(svc todoapi.Service, opts ...Option) *Store {
	s := &Store{
		svc:       svc,
		logger:    log.New(io.Discard),
		slot:      make(chan struct{}, 1),
		listeners: make(map[int]Listener),
		snapshot:  Snapshot{Loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open builds a Store and performs the initial Refresh.
func Open(ctx context.Context, svc todoapi.Service, opts ...Option) *Store {
	s := New(svc, opts...)
	s.Refresh(ctx)
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Todos = cloneTodos(s.snapshot.Todos)
	return snap
}

// Subscribe registers fn for change notifications and returns a func that
// removes it. Listeners run synchronously on the goroutine that changed the
// state and must not call blocking Store operations.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Refresh replaces the collection with the backend's list.
func (s *Store) Refresh(ctx context.Context) {
	s.run(ctx, "refresh", MsgFetchFailed, func(ctx context.Context) (reconcile, error) {
		fetched, err := s.svc.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return func([]todoapi.Todo) []todoapi.Todo {
			return dedupe(cloneTodos(fetched))
		}, nil
	})
}

// Add creates draft on the backend and appends the stored record.
func (s *Store) Add(ctx context.Context, draft todoapi.Todo) {
	s.run(ctx, "add", MsgAddFailed, func(ctx context.Context) (reconcile, error) {
		created, err := s.svc.Create(ctx, draft)
		if err != nil {
			return nil, err
		}
		return func(todos []todoapi.Todo) []todoapi.Todo {
			return upsert(todos, created)
		}, nil
	})
}

// Modify replaces the record at id with the backend's echo. When id is not
// held locally the echoed record is appended.
func (s *Store) Modify(ctx context.Context, id int64, record todoapi.Todo) {
	s.run(ctx, "modify", MsgUpdateFailed, func(ctx context.Context) (reconcile, error) {
		return s.update(ctx, id, record)
	})
}

// Remove deletes the record at id and drops it from the collection.
func (s *Store) Remove(ctx context.Context, id int64) {
	s.run(ctx, "remove", MsgDeleteFailed, func(ctx context.Context) (reconcile, error) {
		if err := s.svc.Delete(ctx, id); err != nil {
			return nil, err
		}
		return func(todos []todoapi.Todo) []todoapi.Todo {
			return removeByID(todos, id)
		}, nil
	})
}

// Toggle flips the completion flag of the record at id. The record is read
// once the operation owns the slot, so queued toggles each see the result of
// the one before.
func (s *Store) Toggle(ctx context.Context, id int64) {
	s.run(ctx, "toggle", MsgUpdateFailed, func(ctx context.Context) (reconcile, error) {
		current, ok := s.Snapshot().Find(id)
		if !ok {
			return nil, fmt.Errorf("toggle %d: %w", id, errNotHeld)
		}
		return s.update(ctx, id, current.Toggled())
	})
}

// errNotHeld marks an operation on a record the collection does not hold.
// It never reaches the backend.
var errNotHeld = errors.New("todo not held locally")

func (s *Store) update(ctx context.Context, id int64, record todoapi.Todo) (reconcile, error) {
	updated, err := s.svc.Update(ctx, id, record)
	if err != nil {
		return nil, err
	}
	if !updated.HasID(id) {
		s.logger.Warn("update echo carries another id, keeping requested", "id", id, "echo", updated.ID)
		updated.ID = todoapi.Int64(id)
	}
	return func(todos []todoapi.Todo) []todoapi.Todo {
		out, found := replaceByID(todos, id, updated)
		if !found {
			s.logger.Warn("updated todo missing locally, appending", "id", id)
			out = upsert(out, updated)
		}
		return dedupe(out)
	}, nil
}

type reconcile func([]todoapi.Todo) []todoapi.Todo

func (s *Store) run(ctx context.Context, op, failMsg string, call func(context.Context) (reconcile, error)) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		// Another operation owns the slot and the loading flag. Its
		// completion reports this failure instead of clearing it.
		s.logger.Error("operation abandoned", "op", op, "err", ctx.Err())
		s.mutate(func(snap *Snapshot) {
			snap.Error = failMsg
			snap.ConsecutiveFailures++
			s.abandoned = failMsg
		})
		return
	}
	defer func() { <-s.slot }()

	s.mutate(func(snap *Snapshot) {
		snap.Loading = true
		snap.Error = ""
		s.abandoned = ""
	})

	apply, err := call(ctx)
	if err != nil {
		s.logger.Error("operation failed", "op", op, "status", todoapi.StatusOf(err), "err", err)
		network := todoapi.IsNetwork(err)
		local := errors.Is(err, errNotHeld)
		s.mutate(func(snap *Snapshot) {
			snap.Loading = false
			snap.Error = failMsg
			snap.LastUpdated = time.Now()
			snap.ConsecutiveFailures++
			switch {
			case local:
			case network:
				snap.NetworkFailures++
			default:
				snap.NetworkFailures = 0
			}
			s.abandoned = ""
		})
		return
	}

	s.mutate(func(snap *Snapshot) {
		snap.Todos = apply(snap.Todos)
		snap.Loading = false
		snap.Error = s.abandoned
		snap.LastUpdated = time.Now()
		snap.ConsecutiveFailures = 0
		if s.abandoned != "" {
			snap.ConsecutiveFailures = 1
		}
		snap.NetworkFailures = 0
		s.abandoned = ""
	})
	s.logger.Debug("operation done", "op", op)
}

// mutate applies fn under the write lock and notifies listeners.
func (s *Store) mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.listenersMu.Lock()
	if len(s.listeners) == 0 {
		s.listenersMu.Unlock()
		return
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	snap := s.Snapshot()
	for i, fn := range fns {
		if i > 0 {
			snap.Todos = cloneTodos(snap.Todos)
		}
		fn(snap)
	}
}
