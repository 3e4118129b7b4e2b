// Command linkresolve-bench drives resolve.Resolve over a synthetically
// generated set of input objects: parse flags, call grail.Init, run the
// pipeline, and report what it did through github.com/grailbio/base/log.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/linkresolve/internal/fakes"
	"github.com/grailbio/linkresolve/resolve"
	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

func main() {
	numObjects := flag.Int("objects", 2000, "number of synthetic input objects to generate")
	symbolsPerObject := flag.Int("symbols-per-object", 8, "symbols defined or referenced per object")
	sharedSymbolFraction := flag.Float64("shared-fraction", 0.1, "fraction of symbols that are undefined references to a shared pool of names no object defines")
	numWorkers := flag.Int("workers", 0, "parallel driver worker count (0 = GOMAXPROCS)")
	seed := flag.Int64("seed", 1, "random seed for the synthetic input generator")
	stripDebug := flag.Bool("strip-debug", false, "classify .debug_* sections as discarded")
	gcSections := flag.Bool("gc-sections", true, "discard non-alloc sections during classification")
	flag.Parse()

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	groups := generateInput(*numObjects, *symbolsPerObject, *sharedSymbolFraction, *seed)

	args := types.DefaultArgs()
	args.NumWorkers = *numWorkers
	args.StripDebug = *stripDebug
	args.GCSections = *gcSections

	collab := types.Collaborators{
		Reader:  fakes.NewObjectReader(),
		Symbols: fakes.NewSymbolDB(),
	}

	start := time.Now()
	out, err := resolve.Resolve(ctx, nil, groups, args, collab)
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("resolve failed: %v", err)
	}

	log.Printf("resolved %d objects in %s", *numObjects, elapsed)
	log.Printf("output sections: %d (%d custom)", out.Sections.Len(), out.Sections.NumCustom())
	log.Printf("undefined symbols: %d, start/stop requests: %d", len(out.UndefinedSymbols), len(out.StartStop))
	for name, sec := range out.MergeSections {
		log.Printf("merge section %q: %d distinct strings, %d bytes", name, sec.StringCount(), sec.TotalSize())
	}
}

// generateInput builds numObjects synthetic objects with symbolsPerObject
// symbols each. Each symbol is, with probability sharedFraction, an
// undefined reference to a name drawn from a shared pool that no object
// defines (exercising the undefined-symbol path); otherwise it is a
// definition of a name unique to its object. No name gets more than one
// definition, so alternative-definition selection is not exercised.
func generateInput(numObjects, symbolsPerObject int, sharedFraction float64, seed int64) []resolve.Group {
	r := rand.New(rand.NewSource(seed))
	poolSize := numObjects * symbolsPerObject / 4
	if poolSize < 1 {
		poolSize = 1
	}

	files := make([]*types.ParsedInputObject, 0, numObjects)
	for i := 0; i < numObjects; i++ {
		obj := &types.ParsedInputObject{
			Path: fmt.Sprintf("synthetic-%d.o", i),
			Sections: []types.InputSection{
				{Name: ".text", Flags: types.SectionFlagAlloc | types.SectionFlagExecInstr, Alignment: ids.Alignment(16), Size: 256},
				{Name: ".rodata.str1.1", Flags: types.SectionFlagAlloc | types.SectionFlagMerge | types.SectionFlagStrings, Alignment: ids.Alignment(1), EntSize: 1},
			},
		}
		for j := 0; j < symbolsPerObject; j++ {
			name := fmt.Sprintf("sym_%d_%d", i, j)
			defines := r.Float64() >= sharedFraction
			if !defines && poolSize > 0 {
				name = fmt.Sprintf("shared_%d", r.Intn(poolSize))
			}
			obj.Symbols = append(obj.Symbols, types.ObjectSymbol{
				Name:         name,
				SectionIndex: sectionIndexFor(defines),
				IsWeak:       r.Float64() < 0.05,
			})
		}
		files = append(files, obj)
	}

	// One group per 50 objects, echoing how a real link command line groups
	// files by archive membership rather than passing every object as one
	// flat list.
	const groupSize = 50
	var groups []resolve.Group
	for start := 0; start < len(files); start += groupSize {
		end := start + groupSize
		if end > len(files) {
			end = len(files)
		}
		groups = append(groups, resolve.Group{Files: files[start:end]})
	}
	return groups
}

func sectionIndexFor(defines bool) ids.SectionIndex {
	if defines {
		return ids.SectionIndex(1)
	}
	return ids.SectionIndex(0)
}
