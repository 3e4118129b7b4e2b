package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

func TestClassifyMergeStringsTakesPriority(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)

	slot, err := c.Classify(types.InputSection{
		Name:    ".rodata.str1.1",
		Flags:   types.SectionFlagAlloc | types.SectionFlagMerge | types.SectionFlagStrings,
		Retain:  true, // even an explicitly retained section merges first
		IsDebug: true, // even a (contrived) debug-flagged one
		Data:    []byte("hi\x00"),
	})
	require.NoError(t, err)
	require.Equal(t, types.SlotMergeStrings, slot.Kind)
}

func TestClassifyMergeStringsParsesAndDedupsRecords(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)

	sec := types.InputSection{
		Name:  ".rodata.str1.1",
		Flags: types.SectionFlagAlloc | types.SectionFlagMerge | types.SectionFlagStrings,
		Data:  []byte("hello\x00world\x00hello\x00"),
	}
	slot, err := c.Classify(sec)
	require.NoError(t, err)
	require.Equal(t, types.SlotMergeStrings, slot.Kind)
	require.Len(t, slot.StringIds, 3)
	require.Equal(t, slot.StringIds[0], slot.StringIds[2]) // "hello" deduplicated

	section := c.MergeSections()[".rodata.str1.1"]
	section.Finalize()
	require.Equal(t, 2, section.StringCount())
}

func TestClassifyMergeStringsRejectsUnterminatedData(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)

	_, err := c.Classify(types.InputSection{
		Name:  ".rodata.str1.1",
		Flags: types.SectionFlagAlloc | types.SectionFlagMerge | types.SectionFlagStrings,
		Data:  []byte("hello\x00world"), // no trailing NUL
	})
	require.Error(t, err)
}

func TestClassifyStripsDebugUnlessBuiltinRetained(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	args := types.DefaultArgs()
	args.StripDebug = true
	c := New(args, b)

	stripped, err := c.Classify(types.InputSection{Name: ".debug_info", Flags: 0, IsDebug: true})
	require.NoError(t, err)
	require.Equal(t, types.SlotUnloadedDebugInfo, stripped.Kind)

	kept, err := c.Classify(types.InputSection{Name: ".text", Flags: types.SectionFlagAlloc | types.SectionFlagExecInstr, IsDebug: true, Retain: true})
	require.NoError(t, err)
	require.Equal(t, types.SlotRegular, kept.Kind)
	require.Equal(t, types.Text, kept.Part.OutputSectionId)
}

func TestClassifyKeepsDebugInfoAsLoadedDebugInfoWhenNotStripped(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)

	slot, err := c.Classify(types.InputSection{Name: ".debug_line", Flags: 0, IsDebug: true})
	require.NoError(t, err)
	require.Equal(t, types.SlotLoadedDebugInfo, slot.Kind)
}

func TestClassifyCustomRetainIsMustLoadPendingAllocation(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	args := types.DefaultArgs()
	args.GCSections = true
	c := New(args, b)

	slot, err := c.Classify(types.InputSection{Name: ".mysection", Flags: 0, Retain: true})
	require.NoError(t, err)
	require.Equal(t, types.SlotMustLoad, slot.Kind)
}

func TestClassifyEhFrame(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)
	slot, err := c.Classify(types.InputSection{Name: ".eh_frame", Flags: types.SectionFlagAlloc, IsEhFrame: true})
	require.NoError(t, err)
	require.Equal(t, types.SlotEhFrameData, slot.Kind)
}

func TestClassifyGCDropsUnallocatedUnrecognizedSections(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	args := types.DefaultArgs()
	args.GCSections = true
	c := New(args, b)
	slot, err := c.Classify(types.InputSection{Name: ".comment", Flags: 0})
	require.NoError(t, err)
	require.Equal(t, types.SlotUnloaded, slot.Kind)
}

func TestClassifyRegularAssignsCustomSectionOnce(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)

	s1, err := c.Classify(types.InputSection{Name: ".custom", Flags: types.SectionFlagAlloc, Alignment: ids.Alignment(16)})
	require.NoError(t, err)
	s2, err := c.Classify(types.InputSection{Name: ".custom", Flags: types.SectionFlagAlloc, Alignment: ids.Alignment(4)})
	require.NoError(t, err)
	require.Equal(t, s1.Part.OutputSectionId, s2.Part.OutputSectionId)
}

func TestClassifyBuiltinPrefixMatch(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)
	slot, err := c.Classify(types.InputSection{Name: ".text.hot", Flags: types.SectionFlagAlloc | types.SectionFlagExecInstr})
	require.NoError(t, err)
	require.Equal(t, types.Text, slot.Part.OutputSectionId)
}

func TestClassifyDuplicateComdatGroupMemberIsDiscarded(t *testing.T) {
	b := types.NewOutputSectionsBuilder()
	c := New(types.DefaultArgs(), b)

	first, err := c.Classify(types.InputSection{Name: ".text._ZN1fEv", Flags: types.SectionFlagAlloc | types.SectionFlagExecInstr | types.SectionFlagGroup, GroupSignature: "_ZN1fEv"})
	require.NoError(t, err)
	require.Equal(t, types.SlotRegular, first.Kind)

	dup, err := c.Classify(types.InputSection{Name: ".text._ZN1fEv", Flags: types.SectionFlagAlloc | types.SectionFlagExecInstr | types.SectionFlagGroup, GroupSignature: "_ZN1fEv"})
	require.NoError(t, err)
	require.Equal(t, types.SlotDiscard, dup.Kind)
}
