// Package arena implements a non-moving allocator used for any type that
// needs stable pointers even while new values are still being allocated.
//
// This is the same trick the rest of the ecosystem uses to back
// iterator-stable containers (token streams, node tables, ...): allocate
// into logarithmically-growing slabs instead of one contiguous slice, so
// growing the arena never invalidates a pointer handed out earlier.
package arena

// Arena allocates values of type T such that their addresses never change
// for the lifetime of the arena, even as more values are added.
//
// The zero Arena is empty and ready to use.
type Arena[T any] struct {
	slabs [][]T
}

const minSlabLen = 16

// New allocates a fresh zero-valued T and returns a stable pointer to it.
func (a *Arena[T]) New() *T {
	return a.Push(*new(T))
}

// Push copies value into the arena and returns a stable pointer to the copy.
func (a *Arena[T]) Push(value T) *T {
	if len(a.slabs) == 0 {
		a.slabs = [][]T{make([]T, 0, minSlabLen)}
	}

	last := &a.slabs[len(a.slabs)-1]
	if len(*last) == cap(*last) {
		a.slabs = append(a.slabs, make([]T, 0, 2*cap(*last)))
		last = &a.slabs[len(a.slabs)-1]
	}

	*last = append(*last, value)
	return &(*last)[len(*last)-1]
}

// Len returns the total number of values ever allocated from this arena.
func (a *Arena[T]) Len() int {
	n := 0
	for _, s := range a.slabs {
		n += len(s)
	}
	return n
}

// All iterates over every value ever allocated from this arena, in
// allocation order. Mutating through the yielded pointer is legal and
// visible to subsequent callers that hold the same pointer.
func (a *Arena[T]) All(yield func(*T) bool) {
	for _, slab := range a.slabs {
		for i := range slab {
			if !yield(&slab[i]) {
				return
			}
		}
	}
}
