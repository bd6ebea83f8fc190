package model

import "sort"

type tableEntry[T any] struct {
	init  uint64
	value T
}

// EntityTable maps reused integer handles to entity generations. Each insert
// opens a new generation whose validity interval runs from its init time to
// the init time of the next generation of the same handle. Two generations
// sharing an init time make that instant unresolvable.
type EntityTable[T any] struct {
	entity  string
	entries map[uint64][]tableEntry[T]
	total   int
}

// NewEntityTable creates an empty table. The entity name only feeds error
// messages.
func NewEntityTable[T any](entity string) *EntityTable[T] {
	return &EntityTable[T]{
		entity:  entity,
		entries: map[uint64][]tableEntry[T]{},
	}
}

// Insert opens a new generation of handle at init. Out-of-order inserts are
// accepted and placed by init time.
func (t *EntityTable[T]) Insert(handle, init uint64, value T) {
	es := t.entries[handle]
	es = append(es, tableEntry[T]{init: init, value: value})
	for i := len(es) - 1; i > 0 && es[i-1].init > es[i].init; i-- {
		es[i-1], es[i] = es[i], es[i-1]
	}
	t.entries[handle] = es
	t.total++
}

// Resolve returns the generation of handle whose interval contains at.
func (t *EntityTable[T]) Resolve(handle, at uint64) (T, error) {
	var zero T
	es := t.entries[handle]
	if len(es) == 0 {
		return zero, t.err("Resolve", handle, at, ErrEntityNotFound)
	}

	idx := sort.Search(len(es), func(i int) bool { return es[i].init > at }) - 1
	if idx < 0 {
		return zero, t.err("Resolve", handle, at, ErrEntityNotFound)
	}
	if idx > 0 && es[idx-1].init == es[idx].init {
		return zero, t.err("Resolve", handle, at, ErrAmbiguousHandle)
	}
	return es[idx].value, nil
}

// ResolveFollowing returns the first generation of handle whose init time is
// at or after the given time. Registration stages that arrive in strict
// order resolve through this instead of Resolve.
func (t *EntityTable[T]) ResolveFollowing(handle, after uint64) (T, error) {
	var zero T
	es := t.entries[handle]
	if len(es) == 0 {
		return zero, t.err("ResolveFollowing", handle, after, ErrEntityNotFound)
	}

	idx := sort.Search(len(es), func(i int) bool { return es[i].init >= after })
	if idx == len(es) {
		return zero, t.err("ResolveFollowing", handle, after, ErrEntityNotFound)
	}
	if idx+1 < len(es) && es[idx+1].init == es[idx].init {
		return zero, t.err("ResolveFollowing", handle, after, ErrAmbiguousHandle)
	}
	return es[idx].value, nil
}

// Handles returns every known handle in ascending order.
func (t *EntityTable[T]) Handles() []uint64 {
	handles := make([]uint64, 0, len(t.entries))
	for h := range t.entries {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// Generations returns the number of generations recorded for handle.
func (t *EntityTable[T]) Generations(handle uint64) int {
	return len(t.entries[handle])
}

// Len returns the total number of generations across all handles.
func (t *EntityTable[T]) Len() int {
	return t.total
}

// Each calls f for every generation, in ascending handle then init order.
// Returning false stops the walk.
func (t *EntityTable[T]) Each(f func(handle, init uint64, value T) bool) {
	for _, h := range t.Handles() {
		for _, e := range t.entries[h] {
			if !f(h, e.init, e.value) {
				return
			}
		}
	}
}

func (t *EntityTable[T]) err(op string, handle, at uint64, cause error) error {
	return &ModelError{
		Op:        op,
		Entity:    t.entity,
		Handle:    handle,
		Timestamp: at,
		Cause:     cause,
	}
}
