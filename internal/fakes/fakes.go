// Package fakes provides small in-memory collaborator implementations
// used across resolve/* package tests: hand-written in-memory stand-ins
// rather than a mocking framework.
package fakes

import (
	"sync"

	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

// SymbolDB is a concurrency-safe in-memory types.SymbolDB.
type SymbolDB struct {
	mu     sync.Mutex
	byName map[string]ids.SymbolId
	names  []string
	cells  []*types.DefinitionsCell
}

// NewSymbolDB returns an empty SymbolDB.
func NewSymbolDB() *SymbolDB {
	return &SymbolDB{byName: make(map[string]ids.SymbolId)}
}

func (s *SymbolDB) Intern(name string) ids.SymbolId {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[name]; ok {
		return id
	}
	id := ids.SymbolId(len(s.names))
	s.byName[name] = id
	s.names = append(s.names, name)
	s.cells = append(s.cells, &types.DefinitionsCell{})
	return id
}

func (s *SymbolDB) Name(id ids.SymbolId) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[id]
}

func (s *SymbolDB) Cell(id ids.SymbolId) *types.DefinitionsCell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cells[id]
}

// ArchiveLoader is a scripted types.ArchiveLoader: tests populate
// Members with the symbol names an (imaginary) archive can satisfy, and
// RequestFile allocates a fresh FileId the first time each member is
// requested.
type ArchiveLoader struct {
	mu        sync.Mutex
	Members   map[string]bool // symbol name -> "some member defines this"
	requested map[string]ids.FileId
	nextFile  ids.FileId
}

// NewArchiveLoader returns a loader that knows how to satisfy the given
// symbol names, starting file id allocation at firstFileID.
func NewArchiveLoader(firstFileID ids.FileId, symbolNames ...string) *ArchiveLoader {
	members := make(map[string]bool, len(symbolNames))
	for _, n := range symbolNames {
		members[n] = true
	}
	return &ArchiveLoader{Members: members, requested: make(map[string]ids.FileId), nextFile: firstFileID}
}

func (l *ArchiveLoader) RequestFile(symbolName string) (ids.FileId, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.Members[symbolName] {
		return 0, false, nil
	}
	if fid, ok := l.requested[symbolName]; ok {
		return fid, true, nil
	}
	fid := l.nextFile
	l.nextFile++
	l.requested[symbolName] = fid
	return fid, true, nil
}

// ObjectReader is a canned types.ObjectReader: tests populate Objects
// keyed by path before resolving.
type ObjectReader struct {
	Objects map[string]*types.ParsedInputObject
}

// NewObjectReader returns a reader backed by the given canned objects.
func NewObjectReader() *ObjectReader {
	return &ObjectReader{Objects: make(map[string]*types.ParsedInputObject)}
}

func (r *ObjectReader) ReadObject(path, archiveMember string) (*types.ParsedInputObject, error) {
	key := path
	if archiveMember != "" {
		key = path + "(" + archiveMember + ")"
	}
	obj, ok := r.Objects[key]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return obj, nil
}

// NotFoundError is returned by ObjectReader.ReadObject for an unregistered
// path.
type NotFoundError struct{ Key string }

func (e *NotFoundError) Error() string { return "fakes: no object registered for " + e.Key }

// archiveEntry is one symbol a fake ArchiveIndex knows how to satisfy.
type archiveEntry struct {
	path, member string
	fileID       ids.FileId
}

// ArchiveIndex is a canned types.ArchiveIndex: tests register which
// symbol names resolve to which archive member.
type ArchiveIndex struct {
	bySymbol map[string]archiveEntry
}

// NewArchiveIndex returns an empty index.
func NewArchiveIndex() *ArchiveIndex {
	return &ArchiveIndex{bySymbol: make(map[string]archiveEntry)}
}

// Add registers that symbolName is defined by (path, member), which
// should resolve to fileID once loaded.
func (a *ArchiveIndex) Add(symbolName, path, member string, fileID ids.FileId) {
	a.bySymbol[symbolName] = archiveEntry{path: path, member: member, fileID: fileID}
}

func (a *ArchiveIndex) Lookup(symbolName string) (string, string, ids.FileId, bool) {
	e, ok := a.bySymbol[symbolName]
	return e.path, e.member, e.fileID, ok
}
