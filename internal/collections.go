package internal

// Set is a collection of unique comparable items.
type Set[T comparable] struct {
	items map[T]struct{}
}

// NewSet creates an empty Set.
func NewSet[T comparable]() *Set[T] {
	return &Set[T]{items: make(map[T]struct{})}
}

// Add inserts item. Adding an existing item has no effect.
func (s *Set[T]) Add(item T) {
	s.items[item] = struct{}{}
}

// Contains reports whether item was added.
func (s *Set[T]) Contains(item T) bool {
	_, exists := s.items[item]
	return exists
}

