package altselect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

func strong(fileID ids.FileId) types.Definition {
	return types.Definition{FileId: fileID, Strength: types.SymbolStrength{Kind: types.StrengthStrong}}
}
func weak(fileID ids.FileId) types.Definition {
	return types.Definition{FileId: fileID, Strength: types.SymbolStrength{Kind: types.StrengthWeak}}
}
func common(fileID ids.FileId, size uint64) types.Definition {
	return types.Definition{FileId: fileID, Strength: types.SymbolStrength{Kind: types.StrengthCommon, CommonSize: size}}
}
func dynamic(fileID ids.FileId) types.Definition {
	return types.Definition{FileId: fileID, ValueFlags: ids.ValueFlagDynamic, Strength: types.SymbolStrength{Kind: types.StrengthStrong}}
}

func TestSelectEmpty(t *testing.T) {
	_, ok := Select(nil)
	require.False(t, ok)
}

func TestSelectSingleFastPath(t *testing.T) {
	w, ok := Select([]types.Definition{weak(1)})
	require.True(t, ok)
	require.Equal(t, ids.FileId(1), w.Definition.FileId)
}

func TestSelectStrongBeatsWeak(t *testing.T) {
	w, ok := Select([]types.Definition{weak(1), strong(2), weak(3)})
	require.True(t, ok)
	require.Equal(t, ids.FileId(2), w.Definition.FileId)
}

func TestSelectLargestCommonWins(t *testing.T) {
	w, ok := Select([]types.Definition{common(1, 4), common(2, 64), common(3, 8)})
	require.True(t, ok)
	require.Equal(t, ids.FileId(2), w.Definition.FileId)
}

func TestSelectTieKeepsEarliest(t *testing.T) {
	w, ok := Select([]types.Definition{common(1, 16), common(2, 16)})
	require.True(t, ok)
	require.Equal(t, ids.FileId(1), w.Definition.FileId)
}

func TestSelectStrongBeatsCommon(t *testing.T) {
	w, ok := Select([]types.Definition{common(1, 1000), strong(2)})
	require.True(t, ok)
	require.Equal(t, ids.FileId(2), w.Definition.FileId)
}

func TestSelectDynamicOnlyWhenNoOtherCandidate(t *testing.T) {
	w, ok := Select([]types.Definition{dynamic(1)})
	require.True(t, ok)
	require.Equal(t, ids.FileId(1), w.Definition.FileId)
}

func TestSelectNonDynamicPreferredOverDynamic(t *testing.T) {
	w, ok := Select([]types.Definition{dynamic(1), weak(2)})
	require.True(t, ok)
	require.Equal(t, ids.FileId(2), w.Definition.FileId)
}
