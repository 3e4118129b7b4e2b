package symresolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/linkresolve/internal/fakes"
	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

func TestResolveObjectRegistersDefinitions(t *testing.T) {
	db := fakes.NewSymbolDB()
	loader := fakes.NewArchiveLoader(10)
	r := New(db, loader)

	obj := &types.ParsedInputObject{
		Symbols: []types.ObjectSymbol{
			{Name: "foo", SectionIndex: 1},
		},
	}
	undefined, err := r.ResolveObject(obj, ids.FileId(1))
	require.NoError(t, err)
	require.Empty(t, undefined)

	id := db.Intern("foo")
	require.Equal(t, 1, db.Cell(id).Len())
}

func TestResolveObjectStrongUndefinedTriggersArchiveLoad(t *testing.T) {
	db := fakes.NewSymbolDB()
	loader := fakes.NewArchiveLoader(10, "bar")
	r := New(db, loader)

	obj := &types.ParsedInputObject{
		Symbols: []types.ObjectSymbol{
			{Name: "bar", SectionIndex: 0, IsWeak: false},
		},
	}
	undefined, err := r.ResolveObject(obj, ids.FileId(1))
	require.NoError(t, err)
	require.Empty(t, undefined, "archive loader satisfied the reference, so it should not be reported undefined")
}

func TestResolveObjectWeakUndefinedNeverLoadsArchive(t *testing.T) {
	db := fakes.NewSymbolDB()
	loader := fakes.NewArchiveLoader(10, "baz")
	r := New(db, loader)

	obj := &types.ParsedInputObject{
		Symbols: []types.ObjectSymbol{
			{Name: "baz", SectionIndex: 0, IsWeak: true},
		},
	}
	undefined, err := r.ResolveObject(obj, ids.FileId(1))
	require.NoError(t, err)
	require.Len(t, undefined, 1)
	require.True(t, undefined[0].IgnoreIfLoaded)
}

func TestResolveObjectUnsatisfiableStrongReferenceIsUndefined(t *testing.T) {
	db := fakes.NewSymbolDB()
	loader := fakes.NewArchiveLoader(10)
	r := New(db, loader)

	obj := &types.ParsedInputObject{
		Symbols: []types.ObjectSymbol{
			{Name: "nowhere", SectionIndex: 0},
		},
	}
	undefined, err := r.ResolveObject(obj, ids.FileId(3))
	require.NoError(t, err)
	require.Len(t, undefined, 1)
	require.False(t, undefined[0].IgnoreIfLoaded)
	require.Equal(t, ids.FileId(3), undefined[0].FromFile)
}

func TestResolveObjectCommonCountsAsDefinition(t *testing.T) {
	db := fakes.NewSymbolDB()
	loader := fakes.NewArchiveLoader(10)
	r := New(db, loader)

	obj := &types.ParsedInputObject{
		Symbols: []types.ObjectSymbol{
			{Name: "buf", SectionIndex: 0, IsCommon: true, Size: 64},
		},
	}
	undefined, err := r.ResolveObject(obj, ids.FileId(1))
	require.NoError(t, err)
	require.Empty(t, undefined)

	id := db.Intern("buf")
	defs := db.Cell(id).Snapshot()
	require.Len(t, defs, 1)
	require.Equal(t, types.StrengthCommon, defs[0].Strength.Kind)
	require.EqualValues(t, 64, defs[0].Strength.CommonSize)
}
