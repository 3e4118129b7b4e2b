// Package ids defines the small value types used to address groups, files,
// sections and symbols as the resolver walks the input graph. Every id here
// is a plain integer wrapper: cheap to copy, cheap to hash, safe to pass
// across goroutines.
package ids

import "fmt"

// GroupIndex identifies one of the top-level input groups (the archives and
// object files handed to the resolver, plus the prelude and epilogue
// pseudo-groups).
type GroupIndex uint32

// FileIndex identifies a file within a group's file list.
type FileIndex uint32

// FileId is a dense, resolver-assigned id for every loaded file across all
// groups, including the prelude and epilogue. File id 0 is always the
// prelude.
type FileId uint32

// PreludeFileId is the file id reserved for the synthetic prelude file that
// owns linker-defined symbols such as _start and the start/stop markers.
const PreludeFileId FileId = 0

// SymbolId is a dense id for every distinct global symbol name seen across
// all files. SymbolDB.Intern allocates one id per name, in the order names
// are first seen; ids are not grouped into per-file ranges.
type SymbolId uint32

// SectionIndex identifies a section within a single object file, matching
// the ELF section header index of that file.
type SectionIndex uint32

// Alignment is a power-of-two byte alignment requirement. The zero value is
// invalid; Merge always returns the larger of its operands.
type Alignment uint32

// Merge returns the alignment that satisfies both a and b.
func (a Alignment) Merge(b Alignment) Alignment {
	if a > b {
		return a
	}
	return b
}

func (a Alignment) String() string {
	return fmt.Sprintf("align(%d)", uint32(a))
}

// ValueFlags records which of the ELF symbol binding/visibility properties a
// definition carries. Several bits can be set at once (e.g. a symbol can be
// both Dynamic and Weak).
type ValueFlags uint8

const (
	// ValueFlagDynamic marks a definition that originates from a shared
	// object rather than from a relocatable input file.
	ValueFlagDynamic ValueFlags = 1 << iota
	// ValueFlagWeak marks an ELF STB_WEAK binding.
	ValueFlagWeak
	// ValueFlagIFunc marks an indirect function (STT_GNU_IFUNC) symbol.
	ValueFlagIFunc
	// ValueFlagCanBypassGot marks a definition whose address is known at
	// link time well enough that GOT-relative access can be elided.
	ValueFlagCanBypassGot
)

func (f ValueFlags) Has(bit ValueFlags) bool { return f&bit != 0 }

// SymbolIdRange is the half-open range [Start, Start+Count) of symbol ids
// owned by a single file.
type SymbolIdRange struct {
	Start SymbolId
	Count uint32
}

// Contains reports whether id falls within the range.
func (r SymbolIdRange) Contains(id SymbolId) bool {
	return id >= r.Start && uint32(id-r.Start) < r.Count
}

// End returns the exclusive upper bound of the range.
func (r SymbolIdRange) End() SymbolId {
	return r.Start + SymbolId(r.Count)
}
