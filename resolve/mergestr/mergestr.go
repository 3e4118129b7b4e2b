// Package mergestr implements the merge-strings deduplication engine: the
// bucketed, data-parallel string table used for SHF_STRINGS|SHF_MERGE
// sections. Every distinct string contributed by any input file gets
// exactly one slot in the output section, addressed by a bucket index and
// an offset within the bucket; sections earlier believed to contribute the
// same string are pointed at the same slot instead of duplicating it.
//
// A fixed number of hash buckets lets strings be deduplicated per bucket
// during a data-parallel pass, with the buckets' final sizes turned into
// absolute offsets by a prefix sum once every bucket is done.
package mergestr

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
)

// BucketCount is the number of hash buckets a merge-strings section is
// split into. Bucketing by a fixed hash count lets every bucket be
// deduplicated independently, in parallel, without any bucket needing to
// know about another's contents.
const BucketCount = 32

// BucketIndex returns which bucket a string's deduplication entry lives
// in.
func BucketIndex(s string) int {
	return int(xxhash.Sum64String(s) % BucketCount)
}

// StringId identifies one string accepted into a bucket, before bucket
// offsets have been finalized. The zero value is a valid id: the first
// string accepted into bucket 0.
type StringId struct {
	Bucket int
	Index  int
}

// bucket accumulates the distinct strings hashed into it. add is called
// concurrently from many files' classification passes (guarded by mu);
// by the time resolveOffsets runs, every file has finished contributing.
type bucket struct {
	mu      sync.Mutex
	strings []string
	index   map[string]int
	offsets []uint64 // offsets[i] is the byte offset of strings[i], valid after resolveOffsets
	size    uint64
}

func newBucket() *bucket {
	return &bucket{index: make(map[string]int)}
}

// add records s in the bucket if not already present, and returns the
// StringId to use for every future reference to s, irrespective of
// whether this call was the first to see it, plus whether it was.
func (b *bucket) add(bucketNum int, s string) (StringId, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index[s]; ok {
		return StringId{Bucket: bucketNum, Index: i}, false
	}
	i := len(b.strings)
	b.strings = append(b.strings, s)
	b.index[s] = i
	return StringId{Bucket: bucketNum, Index: i}, true
}

func (b *bucket) resolveOffsets() {
	b.offsets = make([]uint64, len(b.strings))
	var off uint64
	for i, s := range b.strings {
		b.offsets[i] = off
		off += uint64(len(s)) + 1 // + NUL terminator, matching ELF SHF_STRINGS layout
	}
	b.size = off
}

// Section is the merge engine for a single output section's worth of
// merged strings (a program can have more than one SHF_MERGE|SHF_STRINGS
// section, e.g. one per input section name, each getting its own
// Section).
type Section struct {
	buckets      [BucketCount]*bucket
	bucketBase   [BucketCount]uint64 // absolute base offset of each bucket, after Finalize
	totalSize    uint64
	stringCount  int
	totallyAdded int64 // number of add() calls that found a brand new string
}

// NewSection returns an empty merge-strings engine.
func NewSection() *Section {
	s := &Section{}
	for i := range s.buckets {
		s.buckets[i] = newBucket()
	}
	return s
}

// Add records one string reference from an input section and returns the
// StringId other code should hold onto to later resolve an absolute
// offset via Offset. Safe for concurrent use by different goroutines
// processing different input files.
func (s *Section) Add(str string) StringId {
	idx := BucketIndex(str)
	id, isNew := s.buckets[idx].add(idx, str)
	if isNew {
		atomic.AddInt64(&s.totallyAdded, 1)
	}
	return id
}

// AddSection parses data as the raw bytes of one SHF_MERGE|SHF_STRINGS
// input section: a run of NUL-terminated records, back to back, with no
// other structure. It calls Add once per record and returns the StringId
// assigned to each, in the order the records appear. An empty section is
// valid and returns no ids. Trailing bytes with no terminating NUL are not
// a valid record (the section would end mid-string) and are reported as an
// error rather than silently dropped or merged into whatever comes next.
func (s *Section) AddSection(data []byte) ([]StringId, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if data[len(data)-1] != 0 {
		return nil, errors.New("mergestr: section data does not end with a NUL terminator")
	}
	ids := make([]StringId, 0, 1)
	start := 0
	for i, b := range data {
		if b != 0 {
			continue
		}
		ids = append(ids, s.Add(string(data[start:i])))
		start = i + 1
	}
	return ids, nil
}

// Finalize computes each bucket's absolute base offset by a prefix sum
// over the buckets' sizes, and must be called once, after every file has
// finished calling Add and before any call to Offset. It mirrors
// MergeStringsSection's own bucket_offsets computation.
func (s *Section) Finalize() {
	// Phase 1+2 (gather/dedup) already happened incrementally via Add.
	// Phase 3: compute each bucket's internal string offsets in parallel,
	// since one bucket's prefix sum doesn't depend on any other's.
	_ = traverse.Each(BucketCount, func(i int) error {
		s.buckets[i].resolveOffsets()
		return nil
	})

	// Phase 4: a second, necessarily sequential prefix sum turns
	// per-bucket sizes into absolute bucket base offsets.
	var base uint64
	total := 0
	for i, b := range s.buckets {
		s.bucketBase[i] = base
		base += b.size
		total += len(b.strings)
	}
	s.totalSize = base
	s.stringCount = total
}

// Offset returns the absolute byte offset within the merged output
// section for the string identified by id. Must only be called after
// Finalize.
func (s *Section) Offset(id StringId) uint64 {
	b := s.buckets[id.Bucket]
	return s.bucketBase[id.Bucket] + b.offsets[id.Index]
}

// TotalSize returns the final size in bytes of the merged section. Valid
// after Finalize.
func (s *Section) TotalSize() uint64 { return s.totalSize }

// StringCount returns how many distinct strings were deduplicated into
// this section. Valid after Finalize.
func (s *Section) StringCount() int { return s.stringCount }

// Bytes renders the final merged string table: every bucket's strings, in
// bucket order then discovery order within the bucket, each NUL
// terminated. Valid after Finalize.
func (s *Section) Bytes() []byte {
	out := make([]byte, 0, s.totalSize)
	for _, b := range s.buckets {
		for _, str := range b.strings {
			out = append(out, str...)
			out = append(out, 0)
		}
	}
	return out
}

// MergeInputs runs Finalize for a batch of Sections in parallel, one
// goroutine per bucket across all sections, using traverse.Each the way
// the rest of the resolver farms out bucket-parallel work. It exists
// because a link typically has a handful of merge-string output sections
// (one per distinct SHF_MERGE input section name) that can all be
// finalized independently.
func MergeInputs(sections []*Section) error {
	return traverse.Each(len(sections), func(i int) error {
		sections[i].Finalize()
		return nil
	})
}
