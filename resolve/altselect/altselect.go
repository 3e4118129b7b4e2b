// Package altselect implements selection among a symbol's alternative
// definitions: given every Definition a DefinitionsCell has accumulated
// for one global symbol, decide which one wins: strong beats common beats
// weak, multiple commons resolve to the largest, and any remaining tie keeps
// whichever definition was discovered first. A definition sourced from a
// shared object (ValueFlagDynamic) is only used as a last resort, when no
// relocatable-object definition exists at all.
package altselect

import (
	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

// Winner is the result of selecting among a symbol's alternatives.
type Winner struct {
	Definition types.Definition
	Index      int // position of Definition within the slice passed to Select
}

// Select picks the winning definition among defs, in the order they were
// recorded (earliest first). It returns ok=false if defs is empty.
func Select(defs []types.Definition) (Winner, bool) {
	if len(defs) == 0 {
		return Winner{}, false
	}
	// Fast path: almost every symbol in a real link has exactly one
	// definition, so skip the comparison loop entirely in that case.
	if len(defs) == 1 {
		return Winner{Definition: defs[0], Index: 0}, true
	}

	best := -1
	for i, d := range defs {
		if d.ValueFlags.Has(ids.ValueFlagDynamic) {
			continue
		}
		if best == -1 || better(d, defs[best]) {
			best = i
		}
	}
	if best == -1 {
		// Every candidate came from a shared object; take the first.
		best = 0
	}
	return Winner{Definition: defs[best], Index: best}, true
}

// better reports whether candidate is a strict improvement over current.
// Equal-strength candidates (including an exact common-size tie) are not
// an improvement, so the earliest-discovered definition of that strength
// is kept.
func better(candidate, current types.Definition) bool {
	if candidate.Strength.Kind != current.Strength.Kind {
		return candidate.Strength.Kind > current.Strength.Kind
	}
	if candidate.Strength.Kind == types.StrengthCommon {
		return candidate.Strength.CommonSize > current.Strength.CommonSize
	}
	return false
}
