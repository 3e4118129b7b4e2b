package types

import "github.com/grailbio/linkresolve/resolve/ids"

// SymbolDB is the shared, concurrency-safe global symbol table: the
// mapping from symbol name to the dense SymbolId the rest of the resolver
// operates on, plus the DefinitionsCell that accumulates every file's
// candidate definition of that symbol. A single SymbolDB instance is
// shared read/write across every resolver goroutine for the lifetime of a
// Resolve call.
type SymbolDB interface {
	// Intern returns the SymbolId for name, allocating a new one the
	// first time it is seen. Safe for concurrent use.
	Intern(name string) ids.SymbolId

	// Name returns the symbol name an id was interned from.
	Name(id ids.SymbolId) string

	// Cell returns the DefinitionsCell that accumulates alternative
	// definitions for id, allocating one on first access.
	Cell(id ids.SymbolId) *DefinitionsCell
}

// ArchiveLoader is the collaborator symresolve calls into when a
// definition for an undefined symbol might live in a not-yet-loaded
// archive member. It is invoked at most once per archive member: once a
// member has been requested, subsequent requests for symbols it also
// defines are no-ops. resolve.Resolve builds the production
// implementation of this interface itself, out of an ArchiveIndex, an
// ObjectReader and the parallel driver, since satisfying a request means
// parsing the member and feeding it back into the same work queue that
// called RequestFile in the first place.
type ArchiveLoader interface {
	// RequestFile asks the loader to materialize the file that defines
	// symbolName, if one exists in an unloaded archive member, and
	// returns its FileId. ok is false if no archive known to the loader
	// defines symbolName.
	RequestFile(symbolName string) (fileID ids.FileId, ok bool, err error)
}

// ArchiveIndex is the read-only lookup a caller provides for "which
// archive member, if any, defines this symbol": the static-archive
// equivalent of a dynamic linker's symbol table. It carries no loading
// logic of its own.
type ArchiveIndex interface {
	// Lookup returns the archive path, the member within it, and the
	// FileId resolve.Resolve should use for that member once loaded. ok
	// is false if no indexed archive defines symbolName.
	Lookup(symbolName string) (path, archiveMember string, fileID ids.FileId, ok bool)
}

// Collaborators bundles every external dependency the resolver needs
// beyond the parsed inputs themselves. Production code constructs one
// against real ELF/archive parsing; tests construct one against
// internal/fakes.
type Collaborators struct {
	Reader  ObjectReader
	Symbols SymbolDB
	Index   ArchiveIndex
}

// Args configures one Resolve call's behavior.
type Args struct {
	// NumWorkers is the number of goroutines the parallel driver spawns.
	// Zero means runtime.GOMAXPROCS(0).
	NumWorkers int

	// MaxParkedIdleFraction is not read by the driver: the driver always
	// concludes the graph walk is done once every worker is parked with an
	// empty queue (no more work can ever arrive then), whatever this holds.
	MaxParkedIdleFraction float64

	// StripDebug discards .debug_* sections instead of classifying them
	// into an output section.
	StripDebug bool

	// GCSections makes classification discard sections that lack
	// SHF_ALLOC and were not claimed by an earlier classification case
	// (merge strings, retain, debug info, eh_frame). No reachability
	// analysis is done.
	GCSections bool
}

// DefaultArgs returns the Args a bare Resolve call should use absent
// explicit configuration.
func DefaultArgs() Args {
	return Args{
		MaxParkedIdleFraction: 1.0,
		GCSections:            true,
	}
}
