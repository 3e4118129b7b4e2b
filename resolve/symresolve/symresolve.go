// Package symresolve implements per-object symbol resolution: walking one
// file's symbol table, registering every definition it contributes with
// the shared SymbolDB, and deciding what to do about every symbol it only
// references.
//
// The hit/miss rule it implements is: a strong (non-weak) reference to a
// symbol nobody has defined yet should pull in whatever archive member
// defines it, if the archive loader knows of one; a weak reference never
// triggers a load. A reference that still isn't satisfied after that
// becomes an UndefinedReference, which the epilogue / undefined-symbol
// canonicalization pass later turns into a diagnostic unless some
// later-processed file ends up defining it anyway (IgnoreIfLoaded).
package symresolve

import (
	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

// UndefinedReference is one symbol reference that this file could not
// immediately satisfy.
type UndefinedReference struct {
	SymbolId ids.SymbolId
	FromFile ids.FileId
	// IgnoreIfLoaded is true for a weak reference: if some other file
	// later defines the symbol, this reference should not be reported,
	// but its absence is also not an error.
	IgnoreIfLoaded bool
}

// Resolver resolves the symbols of one file at a time against a shared
// SymbolDB and ArchiveLoader.
type Resolver struct {
	symbols types.SymbolDB
	loader  types.ArchiveLoader
}

// New returns a Resolver sharing the given collaborators.
func New(symbols types.SymbolDB, loader types.ArchiveLoader) *Resolver {
	return &Resolver{symbols: symbols, loader: loader}
}

// strengthOf classifies one object symbol's binding strength.
func strengthOf(sym types.ObjectSymbol) types.SymbolStrength {
	switch {
	case sym.IsCommon:
		return types.SymbolStrength{Kind: types.StrengthCommon, CommonSize: sym.Size}
	case sym.IsWeak:
		return types.SymbolStrength{Kind: types.StrengthWeak}
	default:
		return types.SymbolStrength{Kind: types.StrengthStrong}
	}
}

// ResolveObject registers every definition obj contributes and returns
// every reference it could not immediately satisfy.
func (r *Resolver) ResolveObject(obj *types.ParsedInputObject, fileID ids.FileId) ([]UndefinedReference, error) {
	var undefined []UndefinedReference
	for i, sym := range obj.Symbols {
		symID := r.symbols.Intern(sym.Name)

		if sym.SectionIndex != 0 || sym.IsCommon {
			r.symbols.Cell(symID).Add(types.Definition{
				FileId:      fileID,
				SymbolIndex: uint32(i),
				Strength:    strengthOf(sym),
				ValueFlags:  sym.ValueFlags,
			})
			continue
		}

		// Undefined reference: obj.Symbols[i] has no home section.
		cell := r.symbols.Cell(symID)
		if cell.Len() > 0 {
			// Already defined by some other, earlier-processed file;
			// nothing more for this reference to do.
			continue
		}

		if !sym.IsWeak {
			if _, ok, err := r.loader.RequestFile(sym.Name); err != nil {
				return nil, err
			} else if ok {
				// The loader has scheduled the archive member its index
				// names as the definer. No UndefinedReference is recorded,
				// and this reference is not checked again after that
				// member has been processed.
				continue
			}
		}

		undefined = append(undefined, UndefinedReference{
			SymbolId:       symID,
			FromFile:       fileID,
			IgnoreIfLoaded: sym.IsWeak,
		})
	}
	return undefined, nil
}
