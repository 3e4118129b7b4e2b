package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/grailbio/linkresolve/resolve/ids"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunProcessesEverySeedItem(t *testing.T) {
	seed := make([]WorkItem, 20)
	for i := range seed {
		seed[i] = WorkItem{FileId: ids.FileId(i)}
	}
	d := New(4, seed)

	var processed int64
	err := d.Run(context.Background(), func(_ context.Context, _ WorkItem) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, len(seed), processed)
}

func TestRunDrainsPushedWork(t *testing.T) {
	seed := []WorkItem{{FileId: 0}}
	d := New(3, seed)

	var mu sync.Mutex
	seen := map[ids.FileId]bool{}

	err := d.Run(context.Background(), func(_ context.Context, item WorkItem) error {
		mu.Lock()
		alreadySeen := seen[item.FileId]
		seen[item.FileId] = true
		mu.Unlock()
		if !alreadySeen && item.FileId < 9 {
			d.Push(WorkItem{FileId: item.FileId + 1})
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 10)
}

func TestRunStopsOnFirstError(t *testing.T) {
	seed := make([]WorkItem, 8)
	for i := range seed {
		seed[i] = WorkItem{FileId: ids.FileId(i)}
	}
	d := New(4, seed)

	err := d.Run(context.Background(), func(_ context.Context, item WorkItem) error {
		if item.FileId == 3 {
			return assertionError{}
		}
		return nil
	})
	require.Error(t, err)
}

type assertionError struct{}

func (assertionError) Error() string { return "boom" }
