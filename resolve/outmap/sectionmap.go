package outmap

import "github.com/grailbio/linkresolve/resolve/types"

// SectionMap holds exactly one T per output section id: the flattened
// result of merging a PartMap's per-alignment-bucket and per-part values
// down to one value per section (e.g. final section size, final section
// file offset).
type SectionMap[T any] struct {
	values []T
}

// FromValues wraps a slice already in ascending OutputSectionId order.
func FromValues[T any](values []T) *SectionMap[T] {
	return &SectionMap[T]{values: values}
}

// BuiltIn returns the value for one of the generated or builtin-regular
// section ids.
func (m *SectionMap[T]) BuiltIn(id types.OutputSectionId) T {
	return m.values[id]
}

// Get returns the value for any section id, generated, builtin, or
// custom.
func (m *SectionMap[T]) Get(id types.OutputSectionId) T {
	return m.values[id]
}

// ForEach calls f once per section id, in ascending id order.
func (m *SectionMap[T]) ForEach(f func(id types.OutputSectionId, v T)) {
	for i, v := range m.values {
		f(types.OutputSectionId(i), v)
	}
}
