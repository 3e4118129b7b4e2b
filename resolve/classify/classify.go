// Package classify implements per-input-section classification: deciding,
// for one section of one object file, whether it is discarded, merged
// into a string-dedup table, folded into the synthetic eh_frame table, or
// assigned a regular or debug-info part (an output section id plus an
// alignment bucket), in a fixed dispatch order: a duplicate COMDAT group
// member is always discarded first, a section that qualifies for string
// merging is always merged before any retain/debug check runs, built-in
// sections honor an explicit retain flag before debug stripping is
// considered, and eh_frame is recognized only once every higher-priority
// case has been ruled out.
package classify

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/mergestr"
	"github.com/grailbio/linkresolve/resolve/types"
)

// builtinPrefixes lists each recognized input section name (which also
// covers its "name.suffix" variants, e.g. ".text.foo") with the output
// section it belongs in.
var builtinPrefixes = []struct {
	prefix string
	id     types.OutputSectionId
}{
	{".rodata", types.Rodata},
	{".text", types.Text},
	{".init_array", types.InitArray},
	{".fini_array", types.FiniArray},
	{".data.rel.ro", types.DataRelRo},
	{".data", types.Data},
	{".tdata", types.Tdata},
	{".tbss", types.Tbss},
	{".bss", types.Bss},
}

func builtinSectionFor(name string) (types.OutputSectionId, bool) {
	for _, e := range builtinPrefixes {
		if name == e.prefix || strings.HasPrefix(name, e.prefix+".") {
			return e.id, true
		}
	}
	return 0, false
}

// Classifier holds the state shared across every section classified
// during one resolution run: the output section table under construction,
// the merge-strings engine for each distinct merge-eligible section name,
// and which COMDAT group signatures have already contributed a kept
// member.
type Classifier struct {
	args    types.Args
	builder *types.OutputSectionsBuilder

	mu          sync.Mutex
	mergeByName map[string]*mergestr.Section
	seenGroups  map[string]bool
}

// New returns a Classifier that will register any custom section it
// discovers on builder.
func New(args types.Args, builder *types.OutputSectionsBuilder) *Classifier {
	return &Classifier{
		args:        args,
		builder:     builder,
		mergeByName: make(map[string]*mergestr.Section),
		seenGroups:  make(map[string]bool),
	}
}

// MergeSections returns every merge-strings engine created so far, keyed
// by the input section name that fed it. Call after every file has been
// classified, before calling Finalize on each engine.
func (c *Classifier) MergeSections() map[string]*mergestr.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*mergestr.Section, len(c.mergeByName))
	for k, v := range c.mergeByName {
		out[k] = v
	}
	return out
}

func (c *Classifier) mergeSectionFor(name string) *mergestr.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.mergeByName[name]; ok {
		return s
	}
	s := mergestr.NewSection()
	c.mergeByName[name] = s
	return s
}

// comdatDuplicate reports whether signature has already been claimed by
// some other section, registering it as claimed if this is the first
// sighting.
func (c *Classifier) comdatDuplicate(signature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seenGroups[signature] {
		return true
	}
	c.seenGroups[signature] = true
	return false
}

// Classify decides the SectionSlot for one input section. Safe for
// concurrent use by different goroutines classifying different sections,
// including sections with the same name (merge-string engines and custom
// section registration are both internally synchronized). The only error
// it can return comes from parsing a merge-strings section whose data does
// not end on a string boundary, which is fatal: the section's bytes can no
// longer be trusted to mean what its SHF_MERGE|SHF_STRINGS flags claim.
func (c *Classifier) Classify(sec types.InputSection) (types.SectionSlot, error) {
	if sec.GroupSignature != "" && c.comdatDuplicate(sec.GroupSignature) {
		return types.SectionSlot{Kind: types.SlotDiscard, Unloaded: types.UnloadedSection{Reason: "duplicate comdat group member"}}, nil
	}

	switch {
	case sec.Flags.Has(types.SectionFlagMerge) && sec.Flags.Has(types.SectionFlagStrings):
		outID := c.outputSectionFor(sec)
		section := c.mergeSectionFor(sec.Name)
		stringIds, err := section.AddSection(sec.Data)
		if err != nil {
			return types.SectionSlot{}, errors.Wrapf(err, "section %q", sec.Name)
		}
		return types.SectionSlot{Kind: types.SlotMergeStrings, MergeOutputSection: outID, StringIds: stringIds}, nil

	case c.builtinRetained(sec):
		return c.partSlot(sec, types.SlotRegular), nil

	case c.args.StripDebug && sec.IsDebug:
		return types.SectionSlot{Kind: types.SlotUnloadedDebugInfo, Unloaded: types.UnloadedSection{Reason: "debug info stripped"}}, nil

	case sec.IsDebug:
		return c.partSlot(sec, types.SlotLoadedDebugInfo), nil

	case sec.Retain:
		// Registered so a later allocation pass can find this section by
		// name, even though the slot itself carries no Part yet.
		c.outputSectionFor(sec)
		return types.SectionSlot{Kind: types.SlotMustLoad, Unloaded: types.UnloadedSection{Reason: "explicit retain, pending section-part assignment"}}, nil

	case sec.IsEhFrame:
		return types.SectionSlot{Kind: types.SlotEhFrameData}, nil

	case c.args.GCSections && !sec.Flags.Has(types.SectionFlagAlloc):
		return types.SectionSlot{Kind: types.SlotUnloaded, Unloaded: types.UnloadedSection{Reason: "not allocated and gc-sections enabled"}}, nil

	default:
		return c.partSlot(sec, types.SlotRegular), nil
	}
}

// builtinRetained reports whether sec is one of the recognized built-in
// sections (.text, .data, ...) AND carries an explicit retain flag. It is
// checked ahead of debug stripping so that a retained debug-looking
// section (unusual, but possible via a linker script) is never dropped.
func (c *Classifier) builtinRetained(sec types.InputSection) bool {
	_, ok := builtinSectionFor(sec.Name)
	return ok && sec.Retain
}

func (c *Classifier) outputSectionFor(sec types.InputSection) types.OutputSectionId {
	if id, ok := builtinSectionFor(sec.Name); ok {
		return id
	}
	// AddCustom is idempotent by name, so concurrent classification of
	// two sections sharing an unrecognized name still yields one id; the
	// mutex just protects the builder's internal maps from concurrent
	// mutation, not the idempotency itself.
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builder.AddCustom(types.CustomSectionDetails{
		Name:      sec.Name,
		Flags:     sec.Flags,
		Alignment: sec.Alignment,
	})
}

// partSlot builds a SectionSlot of the given kind (SlotRegular or
// SlotLoadedDebugInfo) with a resolved output section part.
func (c *Classifier) partSlot(sec types.InputSection, kind types.SectionSlotKind) types.SectionSlot {
	outID := c.outputSectionFor(sec)
	return types.SectionSlot{
		Kind: kind,
		Part: types.PartId{
			OutputSectionId: outID,
			Alignment:       normalizeAlignment(sec.Alignment),
			IsRegular:       true,
		},
	}
}

func normalizeAlignment(a ids.Alignment) ids.Alignment {
	if a == 0 {
		return ids.Alignment(1)
	}
	return a
}
