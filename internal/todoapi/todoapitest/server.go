// Package todoapitest provides an in-memory /todos backend for tests.
//
// The server follows the same contract as the production FastAPI service:
// auto-incrementing integer ids, 201 on create, 204 on delete, 404 with a
// {"detail": "Todo not found"} body for unknown ids and 422 when the title
// field is missing.
package todoapitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/five82/teedee/internal/todoapi"
)

// Request records a call received by the server.
type Request struct {
	Method    string
	Path      string
	RequestID string
	UserAgent string
	Body      []byte
}

// Server is a fake todo backend backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int64
	todos    map[int64]todoapi.Todo
	requests []Request
	fail     map[string]int
	gate     chan struct{}
}

// NewServer starts a fake backend. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		nextID: 1,
		todos:  make(map[int64]todoapi.Todo),
		fail:   make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/todos/", s.list).Methods(http.MethodGet)
	r.HandleFunc("/todos/", s.create).Methods(http.MethodPost)
	r.HandleFunc("/todos/{id:[0-9]+}", s.get).Methods(http.MethodGet)
	r.HandleFunc("/todos/{id:[0-9]+}", s.update).Methods(http.MethodPut)
	r.HandleFunc("/todos/{id:[0-9]+}", s.remove).Methods(http.MethodDelete)
	return r
}

// Seed inserts records with fresh ids and returns them in insertion order.
func (s *Server) Seed(todos ...todoapi.Todo) []todoapi.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]todoapi.Todo, 0, len(todos))
	for _, t := range todos {
		t.ID = todoapi.Int64(s.nextID)
		s.nextID++
		s.todos[*t.ID] = t
		out = append(out, t.Clone())
	}
	return out
}

// Todos returns the stored records ordered by id.
func (s *Server) Todos() []todoapi.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// FailNext makes the next call with the given method answer with status.
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = status
}

// Hold blocks every handler until the returned release func is called.
func (s *Server) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-ID"),
			UserAgent: r.Header.Get("User-Agent"),
			Body:      body,
		})
		gate := s.gate
		status, failing := s.fail[r.Method]
		if failing {
			delete(s.fail, r.Method)
		}
		s.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if failing {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	todos := s.sortedLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	t, ok := s.todos[id]
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeTodo(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	in.ID = todoapi.Int64(s.nextID)
	s.nextID++
	s.todos[*in.ID] = in
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	in, ok := decodeTodo(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if _, exists := s.todos[id]; !exists {
		s.mu.Unlock()
		notFound(w)
		return
	}
	in.ID = todoapi.Int64(id)
	s.todos[id] = in
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	_, exists := s.todos[id]
	delete(s.todos, id)
	s.mu.Unlock()
	if !exists {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sortedLocked() []todoapi.Todo {
	out := make([]todoapi.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out
}

func decodeTodo(w http.ResponseWriter, r *http.Request) (todoapi.Todo, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unreadable body"})
		return todoapi.Todo{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return todoapi.Todo{}, false
	}
	if _, ok := fields["title"]; !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "field required: title"})
		return todoapi.Todo{}, false
	}
	var t todoapi.Todo
	if err := json.Unmarshal(raw, &t); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return todoapi.Todo{}, false
	}
	t.ID = nil
	return t, true
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Todo not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
