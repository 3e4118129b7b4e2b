package types

import "github.com/grailbio/linkresolve/resolve/ids"

// ParsedInputKind tags the variant held by a ParsedInput.
type ParsedInputKind uint8

const (
	InputObject ParsedInputKind = iota
	InputPrelude
	InputEpilogue
)

// ParsedInput is the result of parsing one entry of the link command line:
// either a real relocatable object (InputObject), or one of the two
// synthetic pseudo-files the resolver always processes first and last
// (InputPrelude, InputEpilogue). Unlike SectionSlot, the three variants
// carry enough distinct, heap-sized state (symbol tables, section lists)
// that a pointer-per-variant struct reads better than inlining every
// field; only one pointer is ever non-nil.
type ParsedInput struct {
	Kind     ParsedInputKind
	Object   *ParsedInputObject
	Prelude  *PreludeInput
	Epilogue *EpilogueInput
}

// ParsedInputObject is a single relocatable object file (from a plain .o
// argument, from inside a static archive member that the archive loader
// decided to pull in, or a shared object providing dynamic symbols).
type ParsedInputObject struct {
	GroupIndex ids.GroupIndex
	FileIndex  ids.FileIndex
	Path       string
	ArchiveMember string // empty unless this came from a .a
	IsDynamic  bool
	Sections   []InputSection
	Symbols    []ObjectSymbol
}

// ObjectSymbol is one entry of an object file's symbol table, trimmed to
// what the resolver's hit/miss logic needs.
type ObjectSymbol struct {
	Name          string
	SectionIndex  ids.SectionIndex // 0 means undefined
	Value         uint64
	Size          uint64
	IsWeak        bool
	IsGlobal      bool
	IsCommon      bool
	ValueFlags    ids.ValueFlags
}

// PreludeInput is the synthetic file that owns the linker-defined symbols
// (_start, _end, etc.).
type PreludeInput struct {
	Symbols []ObjectSymbol
}

// EpilogueInput is the variant for the synthetic file that closes the
// link. resolve.Resolve does not process one; the __start_/__stop_ names
// the inputs need are returned as undefined.StartStopRequests instead.
type EpilogueInput struct{}

// ObjectReader is the collaborator abstraction for turning a raw input
// file into a ParsedInput. Production callers implement this against a
// real ELF parser; tests implement it against canned data via
// internal/fakes.
type ObjectReader interface {
	// ReadObject parses the file at path (optionally a member within an
	// archive) into a ParsedInputObject.
	ReadObject(path, archiveMember string) (*ParsedInputObject, error)
}

// ResolvedFileKind tags the variant held by a ResolvedFile.
type ResolvedFileKind uint8

const (
	ResolvedObject ResolvedFileKind = iota
	ResolvedPrelude
	ResolvedEpilogue
	ResolvedNotLoaded
)

// ResolvedFile is the per-file output of resolution: the symbol
// definitions the file contributed, and the classified slot of every
// section it owns. As with ParsedInput, only one pointer field is
// populated; ResolvedNotLoaded carries none (an archive member the loader
// never pulled in).
type ResolvedFile struct {
	Kind     ResolvedFileKind
	Object   *ResolvedObject
	Prelude  *ResolvedPrelude
	Epilogue *ResolvedEpilogue
}

// ResolvedObject is the resolved form of a ParsedInputObject.
type ResolvedObject struct {
	Input       *ParsedInputObject
	SymbolIds   ids.SymbolIdRange
	Slots       []SectionSlot // parallel to Input.Sections
	LoadReason  string        // why the archive loader pulled this member in, if it did
}

// ResolvedPrelude is the resolved form of the prelude file.
type ResolvedPrelude struct {
	SymbolIds ids.SymbolIdRange
}

// ResolvedEpilogue is the resolved form of the epilogue file, holding the
// synthetic start/stop definitions it ended up materializing.
type ResolvedEpilogue struct {
	SymbolIds       ids.SymbolIdRange
	StartStopNames  []string
}
