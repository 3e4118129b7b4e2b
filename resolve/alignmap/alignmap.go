// Package alignmap implements the per-alignment-bucket map used to hold one
// value of type T for every distinct alignment requirement seen within a
// single output section. Section classification buckets input sections by
// their alignment so that, later, sections can be laid out within the
// output section from the most-aligned bucket down to the least, which
// keeps padding to a minimum without a general sort.
//
// This is a direct generalization of the Rust OutputSectionPartMap's
// alignment-indexed storage (see output_section_part_map.rs), expressed as
// a Go generic type so every resolve/* component that needs "one T per
// alignment" (outmap's regular-section storage) can share the same
// iteration and merge semantics.
package alignmap

import (
	"sort"

	"github.com/grailbio/linkresolve/resolve/ids"
)

// Map holds one value of type T per alignment bucket that has been
// touched. Buckets are created on first write; reading an untouched
// bucket returns the zero value of T. Values are boxed so that Ptr can
// hand out a stable pointer into a bucket, the way indexing a Rust Vec
// yields a &mut T.
type Map[T any] struct {
	values map[ids.Alignment]*T
}

// New returns an empty Map.
func New[T any]() *Map[T] {
	return &Map[T]{values: make(map[ids.Alignment]*T)}
}

// Get returns the value stored for alignment, or the zero value if none
// has been set.
func (m *Map[T]) Get(alignment ids.Alignment) T {
	if v, ok := m.values[alignment]; ok {
		return *v
	}
	var zero T
	return zero
}

// Set stores v for alignment, creating the bucket if necessary.
func (m *Map[T]) Set(alignment ids.Alignment, v T) {
	*m.Ptr(alignment) = v
}

// Ptr returns a pointer to the bucket for alignment, creating it
// (zero-valued) if it doesn't already exist. The pointer remains valid
// for the lifetime of the Map.
func (m *Map[T]) Ptr(alignment ids.Alignment) *T {
	v, ok := m.values[alignment]
	if !ok {
		v = new(T)
		m.values[alignment] = v
	}
	return v
}

// Mutate fetches the current value for alignment, applies f, and stores
// the result back. Useful for accumulation (e.g. adding a section's size
// to its bucket's running total).
func (m *Map[T]) Mutate(alignment ids.Alignment, f func(T) T) {
	p := m.Ptr(alignment)
	*p = f(*p)
}

// Len returns the number of distinct alignments that have a stored value.
func (m *Map[T]) Len() int {
	return len(m.values)
}

// sortedAlignments returns every bucketed alignment, descending (largest
// first). Descending order is what the output-section layout pass wants:
// place the most-aligned data first so less-aligned data can pack behind
// it without repeated realignment.
func (m *Map[T]) sortedAlignments() []ids.Alignment {
	out := make([]ids.Alignment, 0, len(m.values))
	for a := range m.values {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// DescendingDo calls f once per bucket, from the largest alignment to the
// smallest.
func (m *Map[T]) DescendingDo(f func(ids.Alignment, T)) {
	for _, a := range m.sortedAlignments() {
		f(a, *m.values[a])
	}
}

// AscendingDo calls f once per bucket, from the smallest alignment to the
// largest.
func (m *Map[T]) AscendingDo(f func(ids.Alignment, T)) {
	alignments := m.sortedAlignments()
	for i := len(alignments) - 1; i >= 0; i-- {
		f(alignments[i], *m.values[alignments[i]])
	}
}

// RawValues returns every stored value in descending-alignment order, with
// the alignments discarded. Used where a caller only needs a stable
// iteration order for a parallel pass, not the keys themselves.
func (m *Map[T]) RawValues() []T {
	out := make([]T, 0, len(m.values))
	m.DescendingDo(func(_ ids.Alignment, v T) { out = append(out, v) })
	return out
}

// MutZip calls f once for each bucket present in either m or other, with
// pointers to both maps' values for that alignment (creating a zero-value
// bucket in whichever map lacked one). It is the Map equivalent of
// OutputSectionPartMap's merge/AddAssign: used to fold one file's
// per-alignment sizes into a running output-section total.
func MutZip[T any](m, other *Map[T], f func(a ids.Alignment, dst, src *T)) {
	seen := make(map[ids.Alignment]bool, len(m.values)+len(other.values))
	for a := range m.values {
		seen[a] = true
	}
	for a := range other.values {
		seen[a] = true
	}
	alignments := make([]ids.Alignment, 0, len(seen))
	for a := range seen {
		alignments = append(alignments, a)
	}
	sort.Slice(alignments, func(i, j int) bool { return alignments[i] > alignments[j] })
	for _, a := range alignments {
		f(a, m.Ptr(a), other.Ptr(a))
	}
}

// Entries returns every (alignment, value) pair, descending by alignment.
// This is the Go analogue of iterating a Rust AlignmentMap in reverse: used
// by outmap's output_order_map to find the tightest alignment cap for a
// section and then remap each bucket.
func (m *Map[T]) Entries() []Pair[T] {
	out := make([]Pair[T], 0, len(m.values))
	m.DescendingDo(func(a ids.Alignment, v T) { out = append(out, Pair[T]{Alignment: a, Value: v}) })
	return out
}

// FromSlice materializes a Map from a slice of (alignment, value) pairs,
// as produced by classification's per-section scan. Later entries for the
// same alignment overwrite earlier ones.
func FromSlice[T any](pairs []Pair[T]) *Map[T] {
	m := New[T]()
	for _, p := range pairs {
		m.Set(p.Alignment, p.Value)
	}
	return m
}

// Pair is one (alignment, value) entry, used by FromSlice.
type Pair[T any] struct {
	Alignment ids.Alignment
	Value     T
}
