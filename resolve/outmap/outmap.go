// Package outmap implements the output-section part map: storage of one
// value of type T for every part of every output section, where "part" is
// either a generated/fixed slot (file headers, GOT, PLT, the three symbol
// table regions, .shstrtab, .rela.plt) or, for a regular section, one
// bucket per alignment seen among the input sections that feed it. This is
// the Go counterpart of the Rust OutputSectionPartMap in
// output_section_part_map.rs, carried over field for field.
package outmap

import (
	"github.com/grailbio/linkresolve/resolve/alignmap"
	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

// PartMap is one value of T for every part of every output section.
type PartMap[T any] struct {
	Regular       []*alignmap.Map[T]
	FileHeaders   T
	Got           T
	Plt           T
	SymtabLocals  T
	SymtabGlobals T
	SymtabStrings T
	Shstrtab      T
	RelaPlt       T
}

func regularIndex(id types.OutputSectionId) int {
	return int(id) - int(types.NumGeneratedSections)
}

// WithSize returns a PartMap with size-NumGeneratedSections empty regular
// alignment maps and zero-valued fixed parts, sized for an OutputSections
// table with the given total length.
func WithSize[T any](size int) *PartMap[T] {
	regular := make([]*alignmap.Map[T], size-int(types.NumGeneratedSections))
	for i := range regular {
		regular[i] = alignmap.New[T]()
	}
	return &PartMap[T]{Regular: regular}
}

// Len returns the total number of output section ids this map is sized
// for.
func (m *PartMap[T]) Len() int {
	return len(m.Regular) + int(types.NumGeneratedSections)
}

// Resize grows or shrinks the regular slice to match a new total section
// count. Growing allocates fresh empty alignment maps; shrinking drops the
// trailing ones.
func (m *PartMap[T]) Resize(numSections int) {
	newLen := numSections - int(types.NumGeneratedSections)
	for len(m.Regular) < newLen {
		m.Regular = append(m.Regular, alignmap.New[T]())
	}
	if newLen < len(m.Regular) {
		m.Regular = m.Regular[:newLen]
	}
}

// RegularMut returns a pointer to the bucket for (id, alignment), creating
// it if necessary.
func (m *PartMap[T]) RegularMut(id types.OutputSectionId, alignment ids.Alignment) *T {
	return m.Regular[regularIndex(id)].Ptr(alignment)
}

// Regular returns the value stored for (id, alignment), or the zero value.
func (m *PartMap[T]) Regular(id types.OutputSectionId, alignment ids.Alignment) T {
	return m.Regular[regularIndex(id)].Get(alignment)
}

func clampAlignment(max, alignment, min ids.Alignment) ids.Alignment {
	a := alignment
	if a < min {
		a = min
	}
	if a > max {
		a = max
	}
	return a
}

// minAlignmentFor returns the minimum alignment the output section format
// itself imposes, independent of what any input section requested.
func minAlignmentFor(id types.OutputSectionId) ids.Alignment {
	switch id {
	case types.Got, types.Plt, types.RelaPlt:
		return ids.Alignment(8)
	default:
		return ids.Alignment(1)
	}
}

// isZero reports whether v equals the zero value of T, using only
// whatever the caller supplied as zero (T need not be comparable, so this
// is a best-effort check implemented via a caller-supplied comparator
// hook is not available here; callers relying on output_order_map's
// max-alignment clamp should use T types that are safe to compare this
// way, e.g. integers).
func isZero[T any](v, zero T) bool {
	return any(v) == any(zero)
}

// OutputOrderMap iterates every part in canonical output order, producing
// a new PartMap of U. cb receives the output section id, the clamped
// alignment for that bucket (for fixed parts, a fixed alignment per part:
// 8 for GOT, PLT, .rela.plt and both symbol table halves, 1 for the
// rest), and the existing value.
func OutputOrderMap[T, U any](m *PartMap[T], sections *types.OutputSections, cb func(types.OutputSectionId, ids.Alignment, T) U) *PartMap[U] {
	out := &PartMap[U]{Regular: make([]*alignmap.Map[U], len(m.Regular))}
	for i := range out.Regular {
		out.Regular[i] = alignmap.New[U]()
	}
	mapRegularU := func(id types.OutputSectionId) {
		in := m.Regular[regularIndex(id)]
		dst := out.Regular[regularIndex(id)]
		entries := in.Entries()
		var maxAlignment ids.Alignment
		var zero T
		for _, e := range entries {
			if !isZero(e.Value, zero) {
				maxAlignment = e.Alignment
				break
			}
		}
		minAlignment := minAlignmentFor(id)
		if maxAlignment == 0 {
			// No bucket holds a non-zero value: cap at the minimum.
			maxAlignment = minAlignment
		}
		for _, e := range entries {
			capped := clampAlignment(maxAlignment, e.Alignment, minAlignment)
			dst.Set(e.Alignment, cb(id, capped, e.Value))
		}
	}

	customWhere := func(pred func(types.SectionFlags) bool) {
		for i := 0; i < sections.NumCustom(); i++ {
			id := types.FirstCustomId() + types.OutputSectionId(i)
			if pred(sections.CustomDetails(id).Flags) {
				mapRegularU(id)
			}
		}
	}

	// This walk mirrors OutputSections.SectionsDo exactly: both start from
	// headers and end at .shstrtab, visiting regular sections grouped by
	// segment with their matching custom sections interleaved right after.
	out.FileHeaders = cb(types.FileHeaders, ids.Alignment(1), m.FileHeaders)
	mapRegularU(types.Rodata)
	mapRegularU(types.RodataRelRo)
	customWhere(func(f types.SectionFlags) bool {
		return f.Has(types.SectionFlagAlloc) && !f.Has(types.SectionFlagWrite) && !f.Has(types.SectionFlagExecInstr)
	})
	mapRegularU(types.Text)
	customWhere(func(f types.SectionFlags) bool { return f.Has(types.SectionFlagExecInstr) })
	mapRegularU(types.InitArray)
	mapRegularU(types.FiniArray)
	mapRegularU(types.DataRelRo)
	mapRegularU(types.Data)
	customWhere(func(f types.SectionFlags) bool {
		return f.Has(types.SectionFlagWrite) && !f.Has(types.SectionFlagExecInstr) && !f.Has(types.SectionFlagTls)
	})
	mapRegularU(types.Tdata)
	mapRegularU(types.Tbss)
	mapRegularU(types.Bss)
	mapRegularU(types.EhFrame)
	out.Got = cb(types.Got, ids.Alignment(8), m.Got)
	out.Plt = cb(types.Plt, ids.Alignment(8), m.Plt)
	out.RelaPlt = cb(types.RelaPlt, ids.Alignment(8), m.RelaPlt)
	out.SymtabLocals = cb(types.SymtabLocals, ids.Alignment(8), m.SymtabLocals)
	out.SymtabGlobals = cb(types.SymtabGlobals, ids.Alignment(8), m.SymtabGlobals)
	out.SymtabStrings = cb(types.SymtabStrings, ids.Alignment(1), m.SymtabStrings)
	out.Shstrtab = cb(types.Shstrtab, ids.Alignment(1), m.Shstrtab)

	return out
}

// Map iterates every part, producing a new PartMap of U from just the
// value (no section id/alignment needed by the callback).
func Map[T, U any](m *PartMap[T], sections *types.OutputSections, cb func(types.OutputSectionId, T) U) *PartMap[U] {
	return OutputOrderMap(m, sections, func(id types.OutputSectionId, _ ids.Alignment, v T) U { return cb(id, v) })
}

// MergeParts flattens every part of every section down to a single value
// per section, calling cb with the slice of per-part values for that
// section: every alignment bucket's value for a regular section, and a
// one-element slice for each fixed part. The symbol table's locals and
// globals halves have separate section ids, so each gets its own
// one-element call; no call sees both halves together.
func MergeParts[T, U any](m *PartMap[T], sections *types.OutputSections, cb func([]T) U) *SectionMap[U] {
	out := make([]U, sections.Len())
	out[types.FileHeaders] = cb([]T{m.FileHeaders})
	out[types.Shstrtab] = cb([]T{m.Shstrtab})
	out[types.SymtabLocals] = cb([]T{m.SymtabLocals})
	out[types.SymtabGlobals] = cb([]T{m.SymtabGlobals})
	out[types.SymtabStrings] = cb([]T{m.SymtabStrings})
	out[types.Got] = cb([]T{m.Got})
	out[types.Plt] = cb([]T{m.Plt})
	out[types.RelaPlt] = cb([]T{m.RelaPlt})
	for i, bucket := range m.Regular {
		id := types.NumGeneratedSections + types.OutputSectionId(i)
		out[id] = cb(bucket.RawValues())
	}
	return FromValues(out)
}

// Merge adds rhs's values into m in place, growing m first if rhs covers
// more sections.
func Merge[T any](m, rhs *PartMap[T], add func(dst, src T) T) {
	if m.Len() < rhs.Len() {
		m.Resize(rhs.Len())
	}
	for i := range rhs.Regular {
		alignmap.MutZip(m.Regular[i], rhs.Regular[i], func(_ ids.Alignment, dst, src *T) { *dst = add(*dst, *src) })
	}
	m.FileHeaders = add(m.FileHeaders, rhs.FileHeaders)
	m.Got = add(m.Got, rhs.Got)
	m.Plt = add(m.Plt, rhs.Plt)
	m.SymtabLocals = add(m.SymtabLocals, rhs.SymtabLocals)
	m.SymtabGlobals = add(m.SymtabGlobals, rhs.SymtabGlobals)
	m.SymtabStrings = add(m.SymtabStrings, rhs.SymtabStrings)
	m.Shstrtab = add(m.Shstrtab, rhs.Shstrtab)
	m.RelaPlt = add(m.RelaPlt, rhs.RelaPlt)
}
