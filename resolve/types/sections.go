package types

import (
	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/mergestr"
)

// SectionFlags mirrors the subset of ELF section header flags the
// classifier needs to decide where a section's contents end up.
type SectionFlags uint32

const (
	SectionFlagWrite SectionFlags = 1 << iota
	SectionFlagAlloc
	SectionFlagExecInstr
	SectionFlagMerge
	SectionFlagStrings
	SectionFlagTls
	SectionFlagGroup
	SectionFlagCompressed
)

func (f SectionFlags) Has(bit SectionFlags) bool { return f&bit != 0 }

// InputSection is the classifier's view of one section within one input
// object: the bits of the ELF section header it needs, plus the raw
// content when the section is eligible for string merging.
type InputSection struct {
	Name           string
	Flags          SectionFlags
	Alignment      ids.Alignment
	Size           uint64
	EntSize        uint64
	Data           []byte
	Retain         bool // explicit SHF_GNU_RETAIN or -z nostart-stop-gc equivalent
	IsDebug        bool // name has a ".debug_" prefix
	IsEhFrame      bool
	GroupSignature string // non-empty if this section is part of a COMDAT group
}

// TemporaryPartId is the classifier's output for one input section: which
// dense slot (alignment bucket for a regular section, or named slot for a
// fixed/generated part) the section's bytes will eventually land in. It is
// "temporary" because fixed parts get resolved to a real PartId only once
// the OutputSections table is finalized.
type TemporaryPartId struct {
	// OutputSectionId is always populated.
	OutputSectionId OutputSectionId
	// Alignment is the bucket key for regular sections; it is the zero
	// value for fixed/generated parts, which are not bucketed by
	// alignment.
	Alignment ids.Alignment
	// IsRegular is true when this part lives in the per-alignment bucket
	// map rather than one of the named fixed/generated slots.
	IsRegular bool
}

// PartId is a TemporaryPartId after the output section table has been
// finalized: a dense index usable directly against an
// outmap.OutputSectionPartMap.
type PartId struct {
	OutputSectionId OutputSectionId
	Alignment       ids.Alignment
	IsRegular       bool
}

// UnloadedSection is a section that classification decided not to give an
// output section part of its own, at least not yet: it contributes nothing
// to any output section on its own (e.g. a duplicate COMDAT group member, a
// section gc-sections dropped, or debug info being stripped), or it is
// waiting on a later allocation pass this package does not implement (the
// MustLoad case).
type UnloadedSection struct {
	Reason string
}

// SectionSlotKind tags the variant stored in a SectionSlot.
type SectionSlotKind uint8

const (
	// SlotDiscard is a section dropped for good: a duplicate COMDAT group
	// member. Unlike SlotUnloaded, nothing could ever resurrect it.
	SlotDiscard SectionSlotKind = iota
	// SlotUnloaded is a section gc-sections discarded because it lacks
	// SHF_ALLOC.
	SlotUnloaded
	// SlotMustLoad is a section that survives garbage collection because
	// of an explicit retain flag, but has not yet been assigned an output
	// section part; only sections with Retain set are ever classified
	// into this state.
	SlotMustLoad
	// SlotRegular is an ordinary section assigned a regular output part.
	SlotRegular
	// SlotUnloadedDebugInfo is debug info dropped because debug stripping
	// is enabled.
	SlotUnloadedDebugInfo
	// SlotLoadedDebugInfo is debug info kept and assigned a regular output
	// part, same shape as SlotRegular but tagged separately so debug
	// content can be routed to its own segment rather than mixed with
	// ordinary allocated data.
	SlotLoadedDebugInfo
	// SlotEhFrameData is folded into the synthetic eh_frame table rather
	// than copied verbatim.
	SlotEhFrameData
	// SlotMergeStrings is deduplicated into a merge-strings engine rather
	// than copied verbatim.
	SlotMergeStrings
)

// SectionSlot is the per-input-section resolution result. It is
// deliberately a tagged struct rather than an interface: apart from the
// StringIds slice (set only for merge-strings slots), every field is a
// small value type, so a SectionSlot stays cheap to copy, which matters
// because the driver stores one per input section across every loaded
// file.
type SectionSlot struct {
	Kind SectionSlotKind

	// Valid when Kind == SlotRegular or SlotLoadedDebugInfo.
	Part PartId

	// Valid when Kind == SlotEhFrameData: index into the flattened
	// eh_frame record table for this file.
	EhFrameIndex uint32

	// Valid when Kind == SlotMergeStrings: the output section this
	// section's merged strings belong in. The merge engine holding the
	// strings is keyed by input section name, not by this id.
	MergeOutputSection OutputSectionId

	// Valid when Kind == SlotMergeStrings: the id assigned to each
	// NUL-terminated string parsed out of the section's bytes, in the
	// order they appear.
	StringIds []mergestr.StringId

	// Valid when Kind == SlotDiscard, SlotUnloaded, SlotMustLoad or
	// SlotUnloadedDebugInfo.
	Unloaded UnloadedSection
}
