package todoapi

import (
	"errors"
	"strings"
)

// ErrEmptyTitle is returned by NewDraft when the title is blank after trimming.
var ErrEmptyTitle = errors.New("title is required")

// Todo mirrors the record exchanged with the /todos API. ID is nil until the
// backend assigns one.
type Todo struct {
	ID          *int64 `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
}

// NewDraft builds an unsaved record from user input.
func NewDraft(title, description string) (Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Todo{}, ErrEmptyTitle
	}
	return Todo{
		Title:       title,
		Description: strings.TrimSpace(description),
	}, nil
}

// IsDraft reports whether the record has never round-tripped through the backend.
func (t Todo) IsDraft() bool {
	return t.ID == nil
}

// HasID reports whether the record carries the given identifier.
func (t Todo) HasID(id int64) bool {
	return t.ID != nil && *t.ID == id
}

// IDValue returns the identifier or zero for drafts.
func (t Todo) IDValue() int64 {
	if t.ID == nil {
		return 0
	}
	return *t.ID
}

// WithoutID returns a copy suitable for create and update request bodies.
func (t Todo) WithoutID() Todo {
	t.ID = nil
	return t
}

// Toggled returns a copy with Completed flipped.
func (t Todo) Toggled() Todo {
	t.Completed = !t.Completed
	if t.ID != nil {
		id := *t.ID
		t.ID = &id
	}
	return t
}

// Clone returns a deep copy; the ID pointer is not shared.
func (t Todo) Clone() Todo {
	if t.ID != nil {
		id := *t.ID
		t.ID = &id
	}
	return t
}

// Int64 returns a pointer to id, handy for building records in callers and tests.
func Int64(id int64) *int64 {
	return &id
}
