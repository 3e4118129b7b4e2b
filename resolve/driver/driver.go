// Package driver implements the parallel work-stealing walk that turns a
// set of parsed input files into resolved files: a pool of goroutines
// pulls file-processing work items off a shared queue, each item can push
// more work (a freshly loaded archive member), and a goroutine that finds
// the queue empty parks until either new work arrives or every other
// worker is parked too, at which point the whole walk is done.
//
// The queue is a plain mutex-guarded slice with goroutines parking on a
// condition variable when it is empty and waking on push, rather than
// anything channel-based: a growing, shareable queue with in-place park/
// wake semantics maps more directly onto this shape than a fixed-capacity
// channel would. golang.org/x/sync's errgroup supervises goroutine
// lifetime and propagates a panic-free first error, and the one-slot
// "first error wins" queue is github.com/grailbio/base/errorreporter.T.
package driver

import (
	"context"
	"sync"

	"github.com/grailbio/base/errorreporter"
	"golang.org/x/sync/errgroup"
	"v.io/x/lib/vlog"

	"github.com/grailbio/linkresolve/resolve/ids"
	"github.com/grailbio/linkresolve/resolve/types"
)

// WorkItem is one unit of the parallel walk: a file that has been loaded
// (by the initial input scan, or by an ArchiveLoader mid-walk) and now
// needs its symbols and sections resolved.
type WorkItem struct {
	FileId ids.FileId
	Input  *types.ParsedInput
}

// Process resolves one WorkItem and returns only an error. It never hands
// back new WorkItems: archive loads re-enter the queue via RequestFile and
// Driver.Push, since loading happens inside symresolve as a side effect on
// the shared ArchiveLoader/queue pair set up by Driver.
type Process func(ctx context.Context, item WorkItem) error

// Driver runs a bounded pool of goroutines over a growing queue of
// WorkItems until the queue is empty and every worker is idle.
type Driver struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []WorkItem
	idle    int
	closed  bool
	workers int

	errs errorreporter.T
}

// New returns a Driver sized for numWorkers concurrent goroutines
// (numWorkers must be at least 1) seeded with the given initial work
// items.
func New(numWorkers int, seed []WorkItem) *Driver {
	if numWorkers < 1 {
		numWorkers = 1
	}
	d := &Driver{queue: append([]WorkItem(nil), seed...), workers: numWorkers}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Push enqueues a new WorkItem (e.g. a file an ArchiveLoader just
// materialized) and wakes one parked worker, if any are parked.
func (d *Driver) Push(item WorkItem) {
	d.mu.Lock()
	d.queue = append(d.queue, item)
	d.mu.Unlock()
	d.cond.Signal()
}

// pop returns the next WorkItem, parking the calling goroutine if the
// queue is empty. It returns ok=false once every worker is parked with an
// empty queue, meaning the walk is complete and the goroutine should
// exit.
func (d *Driver) pop() (WorkItem, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if d.closed {
			return WorkItem{}, false
		}
		if len(d.queue) > 0 {
			item := d.queue[0]
			d.queue = d.queue[1:]
			return item, true
		}
		d.idle++
		if d.idle == d.workers {
			// Every worker is parked and the queue is empty: there is no
			// goroutine left that could ever Push more work, so the walk
			// is done. Wake everyone else up to let them exit too.
			d.closed = true
			d.idle--
			d.cond.Broadcast()
			return WorkItem{}, false
		}
		d.cond.Wait()
		d.idle--
		if d.closed {
			return WorkItem{}, false
		}
	}
}

// Run starts numWorkers goroutines, each popping WorkItems and calling
// process until the queue drains and every worker is idle, or until
// process returns an error. The first error returned by any worker wins;
// later errors are dropped (errorreporter.T is a one-slot queue). Run
// blocks until every worker goroutine has exited.
func (d *Driver) Run(ctx context.Context, process Process) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < d.workers; w++ {
		g.Go(func() error {
			for {
				item, ok := d.pop()
				if !ok {
					return nil
				}
				if err := process(ctx, item); err != nil {
					d.errs.Set(err)
					vlog.VI(1).Infof("driver: worker error on file %d: %v", item.FileId, err)
					d.shutdown()
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return d.errs.Err()
}

// shutdown forces every parked worker to wake up and observe closed,
// used when a worker hits an error and the walk should stop early rather
// than run the queue to completion.
func (d *Driver) shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cond.Broadcast()
}
