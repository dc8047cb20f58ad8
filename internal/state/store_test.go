package state

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/teedee/internal/todoapi"
	"github.com/five82/teedee/internal/todoapi/todoapitest"
)

func newBackedStore(t *testing.T) (*Store, *todoapitest.Server) {
	t.Helper()
	srv := todoapitest.NewServer()
	t.Cleanup(srv.Close)
	client, err := todoapi.NewClient(srv.URL, todoapi.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return New(client), srv
}

func assertSettled(t *testing.T, snap Snapshot, wantErr string) {
	t.Helper()
	if snap.Loading {
		t.Fatalf("Loading = true, want false")
	}
	if snap.Error != wantErr {
		t.Fatalf("Error = %q, want %q", snap.Error, wantErr)
	}
}

func assertUniqueIDs(t *testing.T, todos []todoapi.Todo) {
	t.Helper()
	seen := make(map[int64]bool)
	for _, td := range todos {
		if td.ID == nil {
			continue
		}
		if seen[*td.ID] {
			t.Fatalf("duplicate id %d in %#v", *td.ID, todos)
		}
		seen[*td.ID] = true
	}
}

func TestNew_InitialState(t *testing.T) {
	s := New(&fakeService{})
	snap := s.Snapshot()
	if !snap.Loading || snap.Error != "" || len(snap.Todos) != 0 {
		t.Fatalf("initial snapshot = %#v, want loading, no error, empty", snap)
	}
}

func TestOpen_PerformsInitialRefresh(t *testing.T) {
	svc := &fakeService{list: []todoapi.Todo{{ID: todoapi.Int64(1), Title: "a"}}}
	s := Open(context.Background(), svc)
	snap := s.Snapshot()
	assertSettled(t, snap, "")
	if len(snap.Todos) != 1 || svc.calls.Load() != 1 {
		t.Fatalf("Open snapshot = %#v calls = %d, want one record and one call", snap, svc.calls.Load())
	}
}

func TestStore_Scenarios(t *testing.T) {
	s, _ := newBackedStore(t)
	ctx := context.Background()

	// A: empty backend.
	s.Refresh(ctx)
	snap := s.Snapshot()
	assertSettled(t, snap, "")
	if len(snap.Todos) != 0 {
		t.Fatalf("A: Todos = %#v, want empty", snap.Todos)
	}

	// B: add.
	s.Add(ctx, todoapi.Todo{Title: "Buy milk"})
	snap = s.Snapshot()
	assertSettled(t, snap, "")
	want := []todoapi.Todo{{ID: todoapi.Int64(1), Title: "Buy milk"}}
	if !reflect.DeepEqual(snap.Todos, want) {
		t.Fatalf("B: Todos = %#v, want %#v", snap.Todos, want)
	}

	// C: modify.
	s.Modify(ctx, 1, todoapi.Todo{Title: "Buy milk", Completed: true})
	snap = s.Snapshot()
	assertSettled(t, snap, "")
	got, ok := snap.Find(1)
	if !ok || !got.Completed {
		t.Fatalf("C: Find(1) = %#v, %v, want completed", got, ok)
	}

	// D: remove.
	s.Remove(ctx, 1)
	snap = s.Snapshot()
	assertSettled(t, snap, "")
	if len(snap.Todos) != 0 {
		t.Fatalf("D: Todos = %#v, want empty", snap.Todos)
	}
}

func TestStore_RefreshUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := todoapi.NewClient(url)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	s := New(client)
	s.mutate(func(snap *Snapshot) {
		snap.Todos = []todoapi.Todo{{ID: todoapi.Int64(5), Title: "kept"}}
	})
	before := s.Snapshot()

	s.Refresh(context.Background())
	snap := s.Snapshot()
	assertSettled(t, snap, MsgFetchFailed)
	if !reflect.DeepEqual(snap.Todos, before.Todos) {
		t.Fatalf("Todos = %#v, want unchanged %#v", snap.Todos, before.Todos)
	}
	if snap.NetworkFailures != 1 || snap.IsOffline() {
		t.Fatalf("NetworkFailures = %d, want 1 and not offline", snap.NetworkFailures)
	}
	s.Refresh(context.Background())
	if !s.Snapshot().IsOffline() {
		t.Fatalf("IsOffline = false after two network failures")
	}
}

func TestStore_AddThenRefreshRoundTrip(t *testing.T) {
	s, _ := newBackedStore(t)
	ctx := context.Background()

	draft, err := todoapi.NewDraft("Walk dog", "before dinner")
	if err != nil {
		t.Fatalf("NewDraft: %v", err)
	}
	s.Add(ctx, draft)
	added := s.Snapshot().Todos
	s.Refresh(ctx)
	refreshed := s.Snapshot().Todos
	if !reflect.DeepEqual(added, refreshed) {
		t.Fatalf("after refresh = %#v, want %#v", refreshed, added)
	}
	if len(refreshed) != 1 || refreshed[0].IsDraft() || refreshed[0].Description != "before dinner" {
		t.Fatalf("refreshed = %#v, want persisted draft", refreshed)
	}
}

func TestStore_FailuresKeepCollection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		wantErr string
		op      func(ctx context.Context, s *Store)
	}{
		{"refresh", http.MethodGet, MsgFetchFailed, func(ctx context.Context, s *Store) { s.Refresh(ctx) }},
		{"add", http.MethodPost, MsgAddFailed, func(ctx context.Context, s *Store) { s.Add(ctx, todoapi.Todo{Title: "x"}) }},
		{"modify", http.MethodPut, MsgUpdateFailed, func(ctx context.Context, s *Store) {
			s.Modify(ctx, 1, todoapi.Todo{Title: "x", Completed: true})
		}},
		{"remove", http.MethodDelete, MsgDeleteFailed, func(ctx context.Context, s *Store) { s.Remove(ctx, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, srv := newBackedStore(t)
			srv.Seed(todoapi.Todo{Title: "seed"})
			ctx := context.Background()
			s.Refresh(ctx)
			before := s.Snapshot()

			srv.FailNext(tt.method, http.StatusInternalServerError)
			tt.op(ctx, s)

			snap := s.Snapshot()
			assertSettled(t, snap, tt.wantErr)
			if !reflect.DeepEqual(snap.Todos, before.Todos) {
				t.Fatalf("Todos = %#v, want unchanged %#v", snap.Todos, before.Todos)
			}
			if snap.ConsecutiveFailures != 1 || snap.NetworkFailures != 0 {
				t.Fatalf("failures = %d/%d, want 1/0", snap.ConsecutiveFailures, snap.NetworkFailures)
			}

			// Success clears the error slot.
			s.Refresh(ctx)
			assertSettled(t, s.Snapshot(), "")
		})
	}
}

func TestStore_RemoveUnknownIDNeverCorrupts(t *testing.T) {
	s, srv := newBackedStore(t)
	srv.Seed(todoapi.Todo{Title: "a"}, todoapi.Todo{Title: "b"})
	ctx := context.Background()
	s.Refresh(ctx)
	before := s.Snapshot()

	s.Remove(ctx, 99)
	snap := s.Snapshot()
	assertSettled(t, snap, MsgDeleteFailed)
	if !reflect.DeepEqual(snap.Todos, before.Todos) {
		t.Fatalf("Todos = %#v, want unchanged", snap.Todos)
	}

	// A backend that accepts the delete leaves the local collection alone.
	svc := &fakeService{}
	s2 := New(svc)
	s2.mutate(func(sn *Snapshot) { sn.Todos = before.Todos })
	s2.Remove(ctx, 99)
	assertSettled(t, s2.Snapshot(), "")
	if !reflect.DeepEqual(s2.Snapshot().Todos, before.Todos) {
		t.Fatalf("local no-op remove changed collection")
	}
}

func TestStore_ModifyUnknownIDAppends(t *testing.T) {
	svc := &fakeService{}
	s := New(svc)
	s.mutate(func(sn *Snapshot) {
		sn.Todos = []todoapi.Todo{{ID: todoapi.Int64(1), Title: "a"}}
	})

	s.Modify(context.Background(), 2, todoapi.Todo{Title: "b"})
	snap := s.Snapshot()
	assertSettled(t, snap, "")
	if len(snap.Todos) != 2 || !snap.Todos[1].HasID(2) {
		t.Fatalf("Todos = %#v, want echoed record appended", snap.Todos)
	}
	assertUniqueIDs(t, snap.Todos)
}

func TestStore_RefreshCollapsesDuplicateIDs(t *testing.T) {
	svc := &fakeService{list: []todoapi.Todo{
		{ID: todoapi.Int64(1), Title: "first"},
		{ID: todoapi.Int64(2), Title: "b"},
		{ID: todoapi.Int64(1), Title: "last"},
	}}
	s := New(svc)
	s.Refresh(context.Background())
	snap := s.Snapshot()
	assertUniqueIDs(t, snap.Todos)
	if len(snap.Todos) != 2 || snap.Todos[0].Title != "last" || !snap.Todos[1].HasID(2) {
		t.Fatalf("Todos = %#v, want [1:last 2:b]", snap.Todos)
	}
}

func TestStore_AddExistingIDReplaces(t *testing.T) {
	svc := &fakeService{createID: 1}
	s := New(svc)
	s.mutate(func(sn *Snapshot) {
		sn.Todos = []todoapi.Todo{{ID: todoapi.Int64(1), Title: "stale"}}
	})
	s.Add(context.Background(), todoapi.Todo{Title: "fresh"})
	snap := s.Snapshot()
	if len(snap.Todos) != 1 || snap.Todos[0].Title != "fresh" {
		t.Fatalf("Todos = %#v, want single replaced record", snap.Todos)
	}
}

func TestStore_Toggle(t *testing.T) {
	s, srv := newBackedStore(t)
	srv.Seed(todoapi.Todo{Title: "a"})
	ctx := context.Background()
	s.Refresh(ctx)

	s.Toggle(ctx, 1)
	got, _ := s.Snapshot().Find(1)
	if !got.Completed {
		t.Fatalf("Toggle did not complete record: %#v", got)
	}
	if server := srv.Todos(); !server[0].Completed {
		t.Fatalf("backend record = %#v, want completed", server[0])
	}

	requests := len(srv.Requests())
	s.Toggle(ctx, 42)
	assertSettled(t, s.Snapshot(), MsgUpdateFailed)
	if len(srv.Requests()) != requests {
		t.Fatalf("Toggle of unknown id issued a request")
	}
}

func TestStore_SubscribeSeesLoadingThenResult(t *testing.T) {
	s := New(&fakeService{list: []todoapi.Todo{{ID: todoapi.Int64(1), Title: "a"}}})

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	s.Refresh(context.Background())
	mu.Lock()
	if len(seen) != 2 {
		mu.Unlock()
		t.Fatalf("notifications = %d, want 2", len(seen))
	}
	if !seen[0].Loading || seen[0].Error != "" {
		t.Fatalf("first notification = %#v, want loading", seen[0])
	}
	if seen[1].Loading || len(seen[1].Todos) != 1 {
		t.Fatalf("second notification = %#v, want settled with one record", seen[1])
	}
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	s.Refresh(context.Background())
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("notifications after unsubscribe = %d, want 2", len(seen))
	}
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	s := New(&fakeService{list: []todoapi.Todo{{ID: todoapi.Int64(1), Title: "a"}}})
	s.Refresh(context.Background())

	snap := s.Snapshot()
	snap.Todos[0].Title = "mutated"
	*snap.Todos[0].ID = 99
	again := s.Snapshot()
	if again.Todos[0].Title != "a" || !again.Todos[0].HasID(1) {
		t.Fatalf("Snapshot should clone todos; got %#v", again.Todos[0])
	}
}

func TestStore_SerializesOverlappingOperations(t *testing.T) {
	svc := &fakeService{delay: 20 * time.Millisecond}
	s := New(svc)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(ctx, todoapi.Todo{Title: "x"})
		}()
	}
	wg.Wait()

	if peak := svc.maxInFlight.Load(); peak != 1 {
		t.Fatalf("max in-flight calls = %d, want 1", peak)
	}
	snap := s.Snapshot()
	assertSettled(t, snap, "")
	if len(snap.Todos) != 5 {
		t.Fatalf("Todos = %d, want 5 (no lost reconciliation)", len(snap.Todos))
	}
	assertUniqueIDs(t, snap.Todos)
}

func TestStore_CancelledWaiterRecordsFailure(t *testing.T) {
	svc := &fakeService{block: make(chan struct{})}
	s := New(svc)

	done := make(chan struct{})
	go func() {
		s.Refresh(context.Background())
		close(done)
	}()
	// Wait until the first call owns the slot.
	deadline := time.Now().Add(2 * time.Second)
	for svc.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first operation never started")
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Add(ctx, todoapi.Todo{Title: "late"})
	snap := s.Snapshot()
	if snap.Error != MsgAddFailed || !snap.Loading {
		t.Fatalf("snapshot = %#v, want add error while refresh still loading", snap)
	}

	close(svc.block)
	<-done
	if svc.creates.Load() != 0 {
		t.Fatalf("cancelled add reached the service")
	}
	snap = s.Snapshot()
	assertSettled(t, snap, MsgAddFailed)
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}

	// The next operation that runs clears the reported failure.
	s.Refresh(context.Background())
	assertSettled(t, s.Snapshot(), "")
}

func TestStore_QueuedTogglesSeeEachOther(t *testing.T) {
	s, srv := newBackedStore(t)
	srv.Seed(todoapi.Todo{Title: "a"})
	ctx := context.Background()
	s.Refresh(ctx)
	before := len(srv.Requests())

	release := srv.Hold()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Toggle(ctx, 1)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for len(srv.Requests()) == before {
		if time.Now().After(deadline) {
			release()
			t.Fatalf("first toggle never reached the backend")
		}
		time.Sleep(time.Millisecond)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Toggle(ctx, 1)
	}()
	// Let the second toggle queue behind the first.
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	got, _ := s.Snapshot().Find(1)
	assertSettled(t, s.Snapshot(), "")
	if got.Completed {
		t.Fatalf("local record = %#v, want two toggles to cancel out", got)
	}
	if server := srv.Todos(); server[0].Completed {
		t.Fatalf("backend record = %#v, want not completed", server[0])
	}
}

func TestStore_ToggleUnknownKeepsNetworkCount(t *testing.T) {
	s := New(&fakeService{})
	s.mutate(func(sn *Snapshot) { sn.NetworkFailures = offlineThreshold })

	s.Toggle(context.Background(), 7)
	snap := s.Snapshot()
	assertSettled(t, snap, MsgUpdateFailed)
	if !snap.IsOffline() {
		t.Fatalf("NetworkFailures = %d, want offline state kept", snap.NetworkFailures)
	}
}

func TestStore_ModifyKeepsRequestedID(t *testing.T) {
	svc := &fakeService{dropUpdateID: true}
	s := New(svc)
	s.mutate(func(sn *Snapshot) {
		sn.Todos = []todoapi.Todo{{ID: todoapi.Int64(1), Title: "a"}}
	})

	s.Modify(context.Background(), 1, todoapi.Todo{Title: "renamed"})
	snap := s.Snapshot()
	assertSettled(t, snap, "")
	got, ok := snap.Find(1)
	if !ok || got.Title != "renamed" || len(snap.Todos) != 1 {
		t.Fatalf("Todos = %#v, want record 1 renamed in place", snap.Todos)
	}

	s.Toggle(context.Background(), 1)
	if got, ok := s.Snapshot().Find(1); !ok || !got.Completed {
		t.Fatalf("Toggle after id-less echo = %#v, %v; want completed record 1", got, ok)
	}
}

// fakeService is a scripted todoapi.Service.
type fakeService struct {
	mu       sync.Mutex
	list     []todoapi.Todo
	createID int64
	err      error
	delay    time.Duration
	block    chan struct{}
	// dropUpdateID makes Update echo the record without an id.
	dropUpdateID bool

	calls       atomic.Int64
	creates     atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (f *fakeService) enter() func() {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeService) ListAll(ctx context.Context) ([]todoapi.Todo, error) {
	defer f.enter()()
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]todoapi.Todo(nil), f.list...), nil
}

func (f *fakeService) GetByID(ctx context.Context, id int64) (todoapi.Todo, error) {
	defer f.enter()()
	return todoapi.Todo{}, &todoapi.TransportError{Kind: todoapi.KindNotFound, Status: 404}
}

func (f *fakeService) Create(ctx context.Context, draft todoapi.Todo) (todoapi.Todo, error) {
	defer f.enter()()
	f.creates.Add(1)
	if f.err != nil {
		return todoapi.Todo{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createID == 0 {
		f.createID = int64(len(f.list)) + 1
	}
	draft.ID = todoapi.Int64(f.createID)
	f.createID++
	f.list = append(f.list, draft)
	return draft, nil
}

func (f *fakeService) Update(ctx context.Context, id int64, record todoapi.Todo) (todoapi.Todo, error) {
	defer f.enter()()
	if f.err != nil {
		return todoapi.Todo{}, f.err
	}
	record.ID = todoapi.Int64(id)
	if f.dropUpdateID {
		record.ID = nil
	}
	return record, nil
}

func (f *fakeService) Delete(ctx context.Context, id int64) error {
	defer f.enter()()
	return f.err
}

var _ todoapi.Service = (*fakeService)(nil)

func TestFakeService_ErrorPropagates(t *testing.T) {
	s := New(&fakeService{err: errors.New("boom")})
	s.Refresh(context.Background())
	assertSettled(t, s.Snapshot(), MsgFetchFailed)
}
