package store

import (
	"encoding/json"
	"sort"
	"sync"
)

// DocTable is the document-store table backend: every entry is round
// tripped through JSON on Put/Get, so callers mutating a returned entry
// never affect the stored copy. It exists to satisfy the spec's
// requirement for two backends with identical semantics; the coordinator
// always wires MemoryTable and has no setting that selects DocTable.
type DocTable[T Entry] struct {
	mu      sync.RWMutex
	docs    map[ID][]byte
	nextID  ID
	newFunc func() T
}

// NewDocTable creates an empty document-store table. newFunc must return a
// zero value of T, used as the unmarshal target.
func NewDocTable[T Entry](newFunc func() T) *DocTable[T] {
	return &DocTable[T]{
		docs:    map[ID][]byte{},
		nextID:  firstID,
		newFunc: newFunc,
	}
}

func (t *DocTable[T]) decode(raw []byte) T {
	e := t.newFunc()
	_ = json.Unmarshal(raw, &e)
	return e
}

// Get implements Table.
func (t *DocTable[T]) Get(filters ...Filter) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]ID, 0, len(t.docs))
	for id := range t.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		e := t.decode(t.docs[id])
		if matches(e, filters) {
			out = append(out, e)
		}
	}
	return out
}

// Put implements Table.
func (t *DocTable[T]) Put(e T) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := e.GetID()
	if id == 0 {
		id = t.nextID
		t.nextID++
		e.SetID(id)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return id
	}
	t.docs[id] = raw
	return id
}

// Remove implements Table.
func (t *DocTable[T]) Remove(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.docs, id)
}

// Clear implements Table.
func (t *DocTable[T]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.docs = map[ID][]byte{}
	t.nextID = firstID
}
