package outmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

// ones returns a PartMap with every part of every section, fixed and
// regular, seeded to 1. OutputOrderMap only invokes its callback for
// alignment buckets that already hold an entry, so a map built from
// WithSize alone (every regular bucket empty) would leave every regular id
// at the zero value; seed each bucket directly first.
func ones(sections *types.OutputSections) *PartMap[uint32] {
	m := WithSize[uint32](sections.Len())
	for id := types.NumGeneratedSections; int(id) < sections.Len(); id++ {
		*m.RegularMut(id, ids.Alignment(1)) = 1
	}
	m.FileHeaders = 1
	m.Got = 1
	m.Plt = 1
	m.RelaPlt = 1
	m.SymtabLocals = 1
	m.SymtabGlobals = 1
	m.SymtabStrings = 1
	m.Shstrtab = 1
	return OutputOrderMap[uint32, uint32](m, sections,
		func(_ types.OutputSectionId, _ ids.Alignment, v uint32) uint32 { return v })
}

func TestMergeParts(t *testing.T) {
	sections := types.NewOutputSectionsForTesting("custom1", "custom2")
	all1 := ones(sections)

	sum := MergeParts[uint32, uint32](all1, sections, func(values []uint32) uint32 {
		var total uint32
		for _, v := range values {
			total += v
		}
		return total
	})
	sum.ForEach(func(id types.OutputSectionId, v uint32) {
		require.Greaterf(t, v, uint32(0), "expected non-zero sum for section %v", id)
	})
	require.Greater(t, sum.BuiltIn(types.SymtabLocals), uint32(0))
	require.Greater(t, sum.BuiltIn(types.SymtabGlobals), uint32(0))

	headersOnly := WithSize[uint32](sections.Len())
	headersOnly.FileHeaders += 42
	merged := MergeParts[uint32, uint32](headersOnly, sections, func(values []uint32) uint32 {
		var total uint32
		for _, v := range values {
			total += v
		}
		return total
	})
	require.Equal(t, uint32(42), merged.BuiltIn(types.FileHeaders))
	require.Equal(t, uint32(0), merged.BuiltIn(types.Text))
	require.Equal(t, uint32(0), merged.BuiltIn(types.Bss))
}

func TestMerge(t *testing.T) {
	sections := types.NewOutputSectionsForTesting("custom1")
	input1 := OutputOrderMap[uint32, uint32](WithSize[uint32](sections.Len()), sections,
		func(types.OutputSectionId, ids.Alignment, uint32) uint32 { return 1 })
	input2 := OutputOrderMap[uint32, uint32](WithSize[uint32](sections.Len()), sections,
		func(types.OutputSectionId, ids.Alignment, uint32) uint32 { return 2 })
	expected := OutputOrderMap[uint32, uint32](WithSize[uint32](sections.Len()), sections,
		func(types.OutputSectionId, ids.Alignment, uint32) uint32 { return 3 })

	Merge(input1, input2, func(a, b uint32) uint32 { return a + b })
	require.Equal(t, expected.FileHeaders, input1.FileHeaders)
	require.Equal(t, expected.Got, input1.Got)
	require.Equal(t, len(expected.Regular), len(input1.Regular))
}

func TestMergeWithCustomSections(t *testing.T) {
	sections := types.NewOutputSectionsForTesting("custom1")
	m1 := WithSize[uint32](sections.Len())
	m2 := WithSize[uint32](sections.Len())
	require.Equal(t, sections.Len(), m2.Len())

	m2.Resize(sections.Len() + 2)
	Merge(m1, m2, func(a, b uint32) uint32 { return a + b })
	require.Equal(t, sections.Len()+2, m1.Len())
}

// TestOutputOrderMapConsistentWithSectionsDo verifies that, once every
// section has at least one alignment bucket populated, OutputOrderMap and
// SectionsDo walk output sections in the same order. output_order_map
// only visits a regular section's buckets when it has data; SectionsDo
// always visits every built-in/custom id regardless of content, so this
// only holds once every id has something in it.
func TestOutputOrderMapConsistentWithSectionsDo(t *testing.T) {
	sections := types.NewOutputSectionsForTesting("custom1", "custom2")
	partMap := WithSize[uint32](sections.Len())
	regularIds := []types.OutputSectionId{
		types.Rodata, types.RodataRelRo, types.Text, types.InitArray, types.FiniArray,
		types.DataRelRo, types.Data, types.Tdata, types.Tbss, types.Bss, types.EhFrame,
	}
	for _, id := range regularIds {
		*partMap.RegularMut(id, ids.Alignment(8)) = 1
	}
	for i := 0; i < sections.NumCustom(); i++ {
		*partMap.RegularMut(types.FirstCustomId()+types.OutputSectionId(i), ids.Alignment(8)) = 1
	}

	var orderingA []types.OutputSectionId
	OutputOrderMap[uint32, uint32](partMap, sections, func(id types.OutputSectionId, _ ids.Alignment, _ uint32) uint32 {
		if len(orderingA) == 0 || orderingA[len(orderingA)-1] != id {
			orderingA = append(orderingA, id)
		}
		return 0
	})

	var orderingB []types.OutputSectionId
	sections.SectionsDo(func(id types.OutputSectionId) { orderingB = append(orderingB, id) })

	require.Equal(t, orderingB, orderingA)
}
