// Package resolve ties together every resolve/* component into the
// single entry point a linker front end calls: turn a set of parsed
// input groups into resolved files, a finalized output section table,
// merged string tables, and a canonicalized list of undefined symbols.
package resolve

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/linkresolve/resolve/altselect"
	"github.com/grailbio/linkresolve/resolve/classify"
	"github.com/grailbio/linkresolve/resolve/driver"
	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/mergestr"
	"github.com/grailbio/linkresolve/resolve/outmap"
	"github.com/grailbio/linkresolve/resolve/symresolve"
	"github.com/grailbio/linkresolve/resolve/types"
	"github.com/grailbio/linkresolve/resolve/undefined"
)

// Group is one input group: a contiguous run of files that share load
// semantics (a single .o, or every member of a static archive, or the
// files a shared object contributes).
type Group struct {
	Files []*types.ParsedInputObject
}

// Outputs is everything Resolve produces.
type Outputs struct {
	Sections         *types.OutputSections
	ResolvedFiles    []*types.ResolvedFile // indexed by FileId
	UndefinedSymbols []undefined.Symbol
	StartStop        []undefined.StartStopRequest
	MergeSections    map[string]*mergestr.Section
	SizesByPart      *outmap.PartMap[uint64]
}

// Resolve runs the full parallel resolution walk: prelude symbols first
// (when a prelude is given), then every group's files (with the driver's
// work queue picking up any additional archive members ArchiveIndex.Lookup
// surfaces along the way), then a single-threaded finishing pass that
// drops references whose symbol ended up defined, builds the output
// section table, canonicalizes whatever symbols are still undefined,
// finalizes every merge-strings section and sums section sizes. No
// epilogue file is processed, and no winner is chosen among a symbol's
// alternative definitions here; SelectWinners does that on request.
func Resolve(ctx context.Context, prelude *types.PreludeInput, groups []Group, args types.Args, collab types.Collaborators) (*Outputs, error) {
	builder := types.NewOutputSectionsBuilder()
	classifier := classify.New(args, builder)

	var mu sync.Mutex
	resolvedFiles := []*types.ResolvedFile{nil} // index 0 reserved for the prelude
	var allUndefined []symresolve.UndefinedReference

	var nextFileID uint32 = 1
	seed := make([]driver.WorkItem, 0, len(groups))
	for _, g := range groups {
		for _, obj := range g.Files {
			fid := ids.FileId(nextFileID)
			nextFileID++
			resolvedFiles = append(resolvedFiles, nil)
			seed = append(seed, driver.WorkItem{
				FileId: fid,
				Input:  &types.ParsedInput{Kind: types.InputObject, Object: obj},
			})
		}
	}

	numWorkers := args.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	d := driver.New(numWorkers, seed)

	loader := &archiveLoader{index: collab.Index, reader: collab.Reader, driver: d, requested: make(map[string]ids.FileId)}
	symResolver := symresolve.New(collab.Symbols, loader)

	// Prelude symbols are registered before the driver runs, synchronously,
	// since every other file's resolution may depend on them being
	// visible from the start (PreludeFileId always wins a tie it's part
	// of, by definition of being processed first).
	if prelude != nil {
		preludeObj := &types.ParsedInputObject{Symbols: prelude.Symbols}
		undef, err := symResolver.ResolveObject(preludeObj, ids.PreludeFileId)
		if err != nil {
			return nil, errors.Wrap(err, "resolving prelude symbols")
		}
		allUndefined = append(allUndefined, undef...)
		resolvedFiles[0] = &types.ResolvedFile{Kind: types.ResolvedPrelude, Prelude: &types.ResolvedPrelude{}}
	}

	process := func(_ context.Context, item driver.WorkItem) error {
		obj := item.Input.Object
		slots := make([]types.SectionSlot, len(obj.Sections))
		for i, sec := range obj.Sections {
			slot, err := classifier.Classify(sec)
			if err != nil {
				return errors.Wrapf(err, "classifying section %q of file %d", sec.Name, item.FileId)
			}
			slots[i] = slot
		}
		undef, err := symResolver.ResolveObject(obj, item.FileId)
		if err != nil {
			return errors.Wrapf(err, "resolving symbols for file %d", item.FileId)
		}

		mu.Lock()
		for int(item.FileId) >= len(resolvedFiles) {
			resolvedFiles = append(resolvedFiles, nil)
		}
		resolvedFiles[item.FileId] = &types.ResolvedFile{
			Kind:   types.ResolvedObject,
			Object: &types.ResolvedObject{Input: obj, Slots: slots},
		}
		allUndefined = append(allUndefined, undef...)
		mu.Unlock()
		return nil
	}

	if err := d.Run(ctx, process); err != nil {
		return nil, errors.Wrap(err, "parallel resolution walk")
	}

	vlog.VI(1).Infof("resolve: processed %d files, %d unresolved references before filtering", nextFileID-1, len(allUndefined))

	// Drop any reference whose symbol did end up defined by some file,
	// now that every file has been processed.
	stillUndefined := allUndefined[:0]
	for _, ref := range allUndefined {
		if collab.Symbols.Cell(ref.SymbolId).Len() == 0 {
			stillUndefined = append(stillUndefined, ref)
		}
	}

	sections := builder.Build()
	undefSymbols, startStop := undefined.Canonicalize(stillUndefined, collab.Symbols, sections)

	mergeSections := classifier.MergeSections()
	for _, s := range mergeSections {
		s.Finalize()
	}

	sizes := computeSizes(resolvedFiles, sections)

	return &Outputs{
		Sections:         sections,
		ResolvedFiles:    resolvedFiles,
		UndefinedSymbols: undefSymbols,
		StartStop:        startStop,
		MergeSections:    mergeSections,
		SizesByPart:      sizes,
	}, nil
}

// computeSizes folds every resolved file's section sizes into one
// PartMap keyed by output section and alignment bucket.
func computeSizes(resolvedFiles []*types.ResolvedFile, sections *types.OutputSections) *outmap.PartMap[uint64] {
	sizes := outmap.WithSize[uint64](sections.Len())
	for _, rf := range resolvedFiles {
		if rf == nil || rf.Kind != types.ResolvedObject {
			continue
		}
		for i, slot := range rf.Object.Slots {
			if slot.Kind != types.SlotRegular && slot.Kind != types.SlotLoadedDebugInfo {
				continue
			}
			size := rf.Object.Input.Sections[i].Size
			p := sizes.RegularMut(slot.Part.OutputSectionId, slot.Part.Alignment)
			*p += size
		}
	}
	return sizes
}

// SelectWinners runs altselect.Select over every symbol a SymbolDB has
// accumulated definitions for, useful for callers that want the final
// symbol table rather than just the undefined list. It is kept separate
// from Resolve's main pipeline because most callers only need it lazily,
// symbol by symbol, while emitting relocations.
func SelectWinners(symbols types.SymbolDB, symbolIds []ids.SymbolId) map[ids.SymbolId]altselect.Winner {
	out := make(map[ids.SymbolId]altselect.Winner, len(symbolIds))
	for _, id := range symbolIds {
		if w, ok := altselect.Select(symbols.Cell(id).Snapshot()); ok {
			out[id] = w
		}
	}
	return out
}

// archiveLoader adapts an ArchiveIndex + ObjectReader + driver into a
// types.ArchiveLoader: looking a symbol up, parsing the member that
// defines it the first time it is requested, and feeding the parsed
// object back into the same work queue that is currently draining.
type archiveLoader struct {
	index  types.ArchiveIndex
	reader types.ObjectReader
	driver *driver.Driver

	mu        sync.Mutex
	requested map[string]ids.FileId
}

func (l *archiveLoader) RequestFile(symbolName string) (ids.FileId, bool, error) {
	if l.index == nil {
		return 0, false, nil
	}
	path, member, fileID, ok := l.index.Lookup(symbolName)
	if !ok {
		return 0, false, nil
	}
	key := path + "\x00" + member

	l.mu.Lock()
	if fid, ok := l.requested[key]; ok {
		l.mu.Unlock()
		return fid, true, nil
	}
	l.requested[key] = fileID
	l.mu.Unlock()

	obj, err := l.reader.ReadObject(path, member)
	if err != nil {
		return 0, false, errors.Wrapf(err, "loading archive member %s(%s)", path, member)
	}
	l.driver.Push(driver.WorkItem{
		FileId: fileID,
		Input:  &types.ParsedInput{Kind: types.InputObject, Object: obj},
	})
	return fileID, true, nil
}
