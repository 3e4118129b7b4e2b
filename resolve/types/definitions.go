package types

import (
	"sync"

	"github.com/grailbio/linkresolve/resolve/ids"
)

// SymbolStrengthKind orders the four ways a definition can bind, from
// weakest to strongest: an undefined reference never wins a selection, a
// weak definition loses to a strong one, a strong definition always wins
// over weak and common, and among multiple commons the largest wins.
type SymbolStrengthKind uint8

const (
	StrengthUndefined SymbolStrengthKind = iota
	StrengthWeak
	StrengthCommon
	StrengthStrong
)

// SymbolStrength is the classification altselect.Select uses to pick a winner
// among a symbol's alternative definitions.
type SymbolStrength struct {
	Kind       SymbolStrengthKind
	CommonSize uint64 // meaningful only when Kind == StrengthCommon
}

// Definition is one file's claim to define a given global symbol.
type Definition struct {
	FileId       ids.FileId
	SymbolIndex  uint32 // index into the owning file's symbol table
	Strength     SymbolStrength
	ValueFlags   ids.ValueFlags
}

// DefinitionsCell holds every Definition seen so far for one global symbol
// id. Multiple resolver workers can discover a definition for the same
// symbol concurrently (two files in different groups both define a weak
// alias, say), so appends are serialized by a mutex; the common case is an
// uncontended lock since most symbols are defined by exactly one file. This
// mirrors the mu-guarded append pattern fieldio.Writer uses for its
// per-record state rather than reaching for anything lock-free.
type DefinitionsCell struct {
	mu    sync.Mutex
	defs  []Definition
}

// Add records a new alternative definition for the symbol owning this
// cell, in discovery order.
func (c *DefinitionsCell) Add(d Definition) {
	c.mu.Lock()
	c.defs = append(c.defs, d)
	c.mu.Unlock()
}

// Snapshot returns a copy of the definitions recorded so far. Callers use
// this once the parallel walk has finished touching the symbol, so the
// copy is purely defensive against accidental aliasing with future Adds.
func (c *DefinitionsCell) Snapshot() []Definition {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len reports how many alternative definitions have been recorded.
func (c *DefinitionsCell) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.defs)
}
