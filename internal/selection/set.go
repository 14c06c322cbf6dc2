// Package selection holds the per-session filter and selection state that
// drives visibility and highlighting. None of it is persisted with the graph.
package selection

import (
	"cmp"
	"slices"
)

// Set is a filter over values of T. The zero value allows nothing; All
// returns the sentinel that allows every value.
type Set[T cmp.Ordered] struct {
	all    bool
	values map[T]bool
}

// All returns a set that allows every value.
func All[T cmp.Ordered]() Set[T] {
	return Set[T]{all: true}
}

// Only returns a set that allows exactly the given values. An empty call
// allows nothing.
func Only[T cmp.Ordered](values ...T) Set[T] {
	s := Set[T]{values: make(map[T]bool, len(values))}
	for _, v := range values {
		s.values[v] = true
	}
	return s
}

// IsAll reports whether s is the allow-everything sentinel.
func (s Set[T]) IsAll() bool {
	return s.all
}

// Allows reports whether v passes the filter.
func (s Set[T]) Allows(v T) bool {
	return s.all || s.values[v]
}

// Len returns the number of explicit values, or -1 for the sentinel.
func (s Set[T]) Len() int {
	if s.all {
		return -1
	}
	return len(s.values)
}

// Values returns the explicit values in ascending order. The sentinel has none.
func (s Set[T]) Values() []T {
	out := make([]T, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Add allows v. It has no effect on the sentinel.
func (s *Set[T]) Add(v T) {
	if s.all {
		return
	}
	if s.values == nil {
		s.values = make(map[T]bool)
	}
	s.values[v] = true
}

// Remove disallows v. Removing from the sentinel first narrows it to the
// given universe minus v.
func (s *Set[T]) Remove(v T, universe ...T) {
	if s.all {
		*s = Only(universe...)
	}
	delete(s.values, v)
}

// Toggle flips v and reports whether it is now allowed. Toggling the sentinel
// narrows it to universe minus v.
func (s *Set[T]) Toggle(v T, universe ...T) bool {
	if s.Allows(v) {
		s.Remove(v, universe...)
		return false
	}
	s.Add(v)
	return true
}

// Equal reports whether two sets allow the same values.
func (s Set[T]) Equal(other Set[T]) bool {
	if s.all || other.all {
		return s.all == other.all
	}
	if len(s.values) != len(other.values) {
		return false
	}
	for v := range s.values {
		if !other.values[v] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Set[T]) Clone() Set[T] {
	if s.all {
		return All[T]()
	}
	return Only(s.Values()...)
}
