package state

import "github.com/five82/teedee/internal/todoapi"

// upsert replaces the record sharing rec's id, or appends rec when none does.
func upsert(todos []todoapi.Todo, rec todoapi.Todo) []todoapi.Todo {
	if rec.ID != nil {
		if out, found := replaceByID(todos, *rec.ID, rec); found {
			return out
		}
	}
	out := make([]todoapi.Todo, 0, len(todos)+1)
	out = append(out, todos...)
	return append(out, rec.Clone())
}

// replaceByID returns a copy of todos with the element at id replaced by rec.
func replaceByID(todos []todoapi.Todo, id int64, rec todoapi.Todo) ([]todoapi.Todo, bool) {
	out := make([]todoapi.Todo, len(todos))
	found := false
	for i, t := range todos {
		if !found && t.HasID(id) {
			out[i] = rec.Clone()
			found = true
			continue
		}
		out[i] = t
	}
	return out, found
}

// removeByID returns a copy of todos without the element at id.
func removeByID(todos []todoapi.Todo, id int64) []todoapi.Todo {
	out := make([]todoapi.Todo, 0, len(todos))
	for _, t := range todos {
		if t.HasID(id) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// dedupe collapses records sharing an id: the first position wins, the last
// value wins. Records without an id are kept as-is.
func dedupe(todos []todoapi.Todo) []todoapi.Todo {
	index := make(map[int64]int, len(todos))
	out := make([]todoapi.Todo, 0, len(todos))
	for _, t := range todos {
		if t.ID == nil {
			out = append(out, t)
			continue
		}
		if pos, seen := index[*t.ID]; seen {
			out[pos] = t
			continue
		}
		index[*t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

func cloneTodos(todos []todoapi.Todo) []todoapi.Todo {
	if len(todos) == 0 {
		return nil
	}
	dup := make([]todoapi.Todo, len(todos))
	for i, t := range todos {
		dup[i] = t.Clone()
	}
	return dup
}
