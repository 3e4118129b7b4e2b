package types

import "github.com/grailbio/linkresolve/resolve/ids"

// OutputSectionId identifies one output section. The first NumGeneratedSections
// ids are reserved for sections the linker itself synthesizes (headers, GOT,
// PLT, ...); the next NumBuiltinRegular ids are the standard regular
// sections (.text, .data, .bss, ...); anything beyond that is a custom
// section discovered while scanning inputs (e.g. a section named
// .mysection, which matches no built-in name prefix).
type OutputSectionId uint32

const (
	FileHeaders OutputSectionId = iota
	Got
	Plt
	RelaPlt
	SymtabLocals
	SymtabGlobals
	SymtabStrings
	Shstrtab

	// NumGeneratedSections is the count of ids above: sections that exist
	// only because the linker creates them, never because an input object
	// contributed one.
	NumGeneratedSections
)

const (
	Rodata OutputSectionId = NumGeneratedSections + iota
	RodataRelRo
	Text
	InitArray
	FiniArray
	Data
	DataRelRo
	Bss
	Tdata
	Tbss
	EhFrame

	// NumBuiltinRegular is the count of the built-in regular sections
	// above. Custom section ids start at NumGeneratedSections +
	// NumBuiltinRegular.
	NumBuiltinRegular = EhFrame - NumGeneratedSections + 1
)

// firstCustomId is the first id available for sections discovered from
// input objects rather than built in to the resolver.
const firstCustomId = OutputSectionId(uint32(NumGeneratedSections) + uint32(NumBuiltinRegular))

// FirstCustomId returns the first OutputSectionId available for custom
// sections discovered from input objects.
func FirstCustomId() OutputSectionId { return firstCustomId }

// CustomSectionDetails describes a custom output section discovered while
// classifying input sections: its name and the section flags that decided
// which segment it belongs in.
type CustomSectionDetails struct {
	Name         string
	Flags        SectionFlags
	Alignment    ids.Alignment
	MinAlignment ids.Alignment
}

// OutputSections is the read side of the section id allocation table. It is
// built once by OutputSectionsBuilder.Build after section classification
// has registered every custom section (resolve.Resolve builds it after the
// parallel walk), and is read-only from then on.
type OutputSections struct {
	customNames   []string
	customDetails []CustomSectionDetails
	nameToCustom  map[string]OutputSectionId
}

// Len returns the total number of output section ids, generated, builtin
// and custom.
func (o *OutputSections) Len() int {
	return int(firstCustomId) + len(o.customNames)
}

// NumCustom returns the number of custom sections.
func (o *OutputSections) NumCustom() int {
	return len(o.customNames)
}

// Name returns the display name of an output section.
func (o *OutputSections) Name(id OutputSectionId) string {
	switch id {
	case FileHeaders:
		return "file headers"
	case Got:
		return ".got"
	case Plt:
		return ".plt"
	case RelaPlt:
		return ".rela.plt"
	case SymtabLocals, SymtabGlobals:
		return ".symtab"
	case SymtabStrings:
		return ".strtab"
	case Shstrtab:
		return ".shstrtab"
	case Rodata:
		return ".rodata"
	case RodataRelRo:
		return ".data.rel.ro"
	case Text:
		return ".text"
	case InitArray:
		return ".init_array"
	case FiniArray:
		return ".fini_array"
	case Data:
		return ".data"
	case DataRelRo:
		return ".data.rel.ro"
	case Bss:
		return ".bss"
	case Tdata:
		return ".tdata"
	case Tbss:
		return ".tbss"
	case EhFrame:
		return ".eh_frame"
	}
	if idx := int(id) - int(firstCustomId); idx >= 0 && idx < len(o.customNames) {
		return o.customNames[idx]
	}
	return "<invalid section>"
}

// CustomNameToId looks up a previously registered custom section by name.
func (o *OutputSections) CustomNameToId(name string) (OutputSectionId, bool) {
	id, ok := o.nameToCustom[name]
	return id, ok
}

// CustomDetails returns the classification details recorded for a custom
// section id.
func (o *OutputSections) CustomDetails(id OutputSectionId) CustomSectionDetails {
	idx := int(id) - int(firstCustomId)
	return o.customDetails[idx]
}

// SectionsDo calls f once for every output section id, in the canonical
// presentation order used for the final output file layout. This order is
// independent of numeric id order: ids are allocated in discovery order,
// while SectionsDo always walks headers, then regular sections grouped by
// segment, then the generated tables (GOT, PLT, .rela.plt, then the
// symbol and string tables).
func (o *OutputSections) SectionsDo(f func(OutputSectionId)) {
	f(FileHeaders)
	f(Rodata)
	f(RodataRelRo)
	for i, d := range o.customDetails {
		if d.Flags.Has(SectionFlagAlloc) && !d.Flags.Has(SectionFlagWrite) && !d.Flags.Has(SectionFlagExecInstr) {
			f(firstCustomId + OutputSectionId(i))
		}
	}
	f(Text)
	for i, d := range o.customDetails {
		if d.Flags.Has(SectionFlagExecInstr) {
			f(firstCustomId + OutputSectionId(i))
		}
	}
	f(InitArray)
	f(FiniArray)
	f(DataRelRo)
	f(Data)
	for i, d := range o.customDetails {
		if d.Flags.Has(SectionFlagWrite) && !d.Flags.Has(SectionFlagExecInstr) &&
			!d.Flags.Has(SectionFlagTls) {
			f(firstCustomId + OutputSectionId(i))
		}
	}
	f(Tdata)
	f(Tbss)
	f(Bss)
	f(EhFrame)
	f(Got)
	f(Plt)
	f(RelaPlt)
	f(SymtabLocals)
	f(SymtabGlobals)
	f(SymtabStrings)
	f(Shstrtab)
}

// OutputSectionsBuilder accumulates custom sections discovered during
// classification and produces an immutable OutputSections.
type OutputSectionsBuilder struct {
	names   []string
	details []CustomSectionDetails
	byName  map[string]OutputSectionId
}

// NewOutputSectionsBuilder returns an empty builder.
func NewOutputSectionsBuilder() *OutputSectionsBuilder {
	return &OutputSectionsBuilder{byName: make(map[string]OutputSectionId)}
}

// AddCustom registers a new custom section name (idempotently) and returns
// its id.
func (b *OutputSectionsBuilder) AddCustom(details CustomSectionDetails) OutputSectionId {
	if id, ok := b.byName[details.Name]; ok {
		return id
	}
	id := firstCustomId + OutputSectionId(len(b.names))
	b.names = append(b.names, details.Name)
	b.details = append(b.details, details)
	b.byName[details.Name] = id
	return id
}

// Build finalizes the builder into a read-only OutputSections.
func (b *OutputSectionsBuilder) Build() *OutputSections {
	names := make([]string, len(b.names))
	copy(names, b.names)
	details := make([]CustomSectionDetails, len(b.details))
	copy(details, b.details)
	byName := make(map[string]OutputSectionId, len(b.byName))
	for k, v := range b.byName {
		byName[k] = v
	}
	return &OutputSections{customNames: names, customDetails: details, nameToCustom: byName}
}

// NewOutputSectionsForTesting builds an OutputSections with the given
// custom section names pre-registered, in the order given. It exists only
// to give unit tests (outmap, undefined) a small, deterministic section
// table without going through real classification.
func NewOutputSectionsForTesting(customNames ...string) *OutputSections {
	b := NewOutputSectionsBuilder()
	for _, n := range customNames {
		b.AddCustom(CustomSectionDetails{Name: n, Flags: SectionFlagAlloc})
	}
	return b.Build()
}
