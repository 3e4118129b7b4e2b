// Package undefined implements canonicalization of the undefined symbol
// references gathered during resolution: grouping every reference to the
// same symbol into a single diagnostic, and separating out references to
// the __start_SECTION / __stop_SECTION markers the linker synthesizes for
// any section that turns out to exist, rather than reporting them as
// ordinary undefined symbols.
package undefined

import (
	"sort"
	"strings"

	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/symresolve"
	"github.com/grailbio/linkresolve/resolve/types"
)

const (
	startPrefix = "__start_"
	stopPrefix  = "__stop_"
)

// SplitStartStopName reports whether name has the __start_/__stop_ shape,
// and if so, which section name it names and whether it marks the start or
// the end. It says nothing about whether that section actually exists in
// the output; a name can have this shape and still turn out to be an
// ordinary undefined symbol once checked against the output section table.
func SplitStartStopName(name string) (sectionName string, isStart, ok bool) {
	switch {
	case strings.HasPrefix(name, startPrefix):
		return name[len(startPrefix):], true, true
	case strings.HasPrefix(name, stopPrefix):
		return name[len(stopPrefix):], false, true
	default:
		return "", false, false
	}
}

// StartStopRequest is one __start_/__stop_ reference that named a section
// the link actually produced, pulled out of the undefined-reference stream
// for the epilogue to materialize as a synthetic definition bound to that
// section's bounds.
type StartStopRequest struct {
	SymbolId    ids.SymbolId
	SectionId   types.OutputSectionId
	SectionName string
	IsStart     bool
}

// Reference records that FromFile referenced a symbol that remained
// undefined.
type Reference struct {
	FromFile       ids.FileId
	IgnoreIfLoaded bool
}

// Symbol is one undefined symbol, with every file that referenced it.
type Symbol struct {
	SymbolId   ids.SymbolId
	Name       string
	References []Reference
}

// Canonicalize groups refs by symbol id (sorted ascending, so diagnostics
// come out in a deterministic order independent of which goroutine
// discovered which reference first), splitting out __start_/__stop_
// references that name a section the link actually produced into
// StartStopRequests. A __start_/__stop_-shaped name with no matching
// section (e.g. __start_unknown when nothing ever contributed an "unknown"
// section) is not a boundary symbol: it falls through and is reported as
// an ordinary undefined symbol under its own SymbolId, with every
// referencing file listed, exactly like any other name. Callers must only pass
// references for symbols that are still undefined once every file has been
// processed: a Reference with IgnoreIfLoaded set exists purely so a caller
// can drop it if the symbol did end up defined by some file processed
// later than FromFile.
func Canonicalize(refs []symresolve.UndefinedReference, symbols types.SymbolDB, sections *types.OutputSections) ([]Symbol, []StartStopRequest) {
	sorted := make([]symresolve.UndefinedReference, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SymbolId < sorted[j].SymbolId })

	seenStartStop := make(map[ids.SymbolId]bool)
	var startStop []StartStopRequest
	byID := make(map[ids.SymbolId]*Symbol)
	var order []ids.SymbolId

	for _, ref := range sorted {
		name := symbols.Name(ref.SymbolId)
		if sectionName, isStart, ok := SplitStartStopName(name); ok {
			if sectionID, known := sections.CustomNameToId(sectionName); known {
				if !seenStartStop[ref.SymbolId] {
					seenStartStop[ref.SymbolId] = true
					// The symbol was already interned the first time it was
					// referenced, so Intern returns that same id: the
					// request carries the referring symbol's id, and no
					// new symbol id is allocated for the boundary symbol.
					synthID := symbols.Intern(name)
					startStop = append(startStop, StartStopRequest{
						SymbolId:    synthID,
						SectionId:   sectionID,
						SectionName: sectionName,
						IsStart:     isStart,
					})
				}
				continue
			}
			// Shaped like a boundary symbol, but no such section exists:
			// fall through and treat it like any other undefined name.
		}

		sym, exists := byID[ref.SymbolId]
		if !exists {
			sym = &Symbol{SymbolId: ref.SymbolId, Name: name}
			byID[ref.SymbolId] = sym
			order = append(order, ref.SymbolId)
		}
		sym.References = append(sym.References, Reference{FromFile: ref.FromFile, IgnoreIfLoaded: ref.IgnoreIfLoaded})
	}

	out := make([]Symbol, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, startStop
}
