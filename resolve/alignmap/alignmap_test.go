package alignmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/linkresolve/resolve/ids"
)

func TestGetSetDefaultsToZero(t *testing.T) {
	m := New[int]()
	require.Equal(t, 0, m.Get(ids.Alignment(8)))
	m.Set(ids.Alignment(8), 42)
	require.Equal(t, 42, m.Get(ids.Alignment(8)))
	require.Equal(t, 1, m.Len())
}

func TestMutate(t *testing.T) {
	m := New[uint64]()
	m.Mutate(ids.Alignment(4), func(v uint64) uint64 { return v + 10 })
	m.Mutate(ids.Alignment(4), func(v uint64) uint64 { return v + 5 })
	require.Equal(t, uint64(15), m.Get(ids.Alignment(4)))
}

func TestDescendingAndAscendingOrder(t *testing.T) {
	m := New[int]()
	m.Set(ids.Alignment(4), 1)
	m.Set(ids.Alignment(64), 2)
	m.Set(ids.Alignment(8), 3)

	var descending []ids.Alignment
	m.DescendingDo(func(a ids.Alignment, _ int) { descending = append(descending, a) })
	require.Equal(t, []ids.Alignment{64, 8, 4}, descending)

	var ascending []ids.Alignment
	m.AscendingDo(func(a ids.Alignment, _ int) { ascending = append(ascending, a) })
	require.Equal(t, []ids.Alignment{4, 8, 64}, ascending)
}

func TestRawValuesFollowsDescendingOrder(t *testing.T) {
	m := New[string]()
	m.Set(ids.Alignment(4), "small")
	m.Set(ids.Alignment(64), "big")
	require.Equal(t, []string{"big", "small"}, m.RawValues())
}

func TestMutZipUnionsKeysAndSums(t *testing.T) {
	a := New[uint64]()
	a.Set(ids.Alignment(8), 100)
	b := New[uint64]()
	b.Set(ids.Alignment(8), 50)
	b.Set(ids.Alignment(16), 7)

	MutZip(a, b, func(_ ids.Alignment, dst, src *uint64) { *dst += *src })

	require.Equal(t, uint64(150), a.Get(ids.Alignment(8)))
	require.Equal(t, uint64(7), a.Get(ids.Alignment(16)))
	require.Equal(t, 2, a.Len())
}

func TestFromSlice(t *testing.T) {
	m := FromSlice([]Pair[int]{
		{Alignment: ids.Alignment(4), Value: 1},
		{Alignment: ids.Alignment(8), Value: 2},
		{Alignment: ids.Alignment(4), Value: 3},
	})
	require.Equal(t, 3, m.Get(ids.Alignment(4)))
	require.Equal(t, 2, m.Get(ids.Alignment(8)))
}
