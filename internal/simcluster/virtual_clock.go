// Package simcluster is the deterministic integration harness: a virtual
// clock implementing raft.Timer and an in-process Network/Cluster that
// wires several raft.Node values together without real time or sockets.
// Used only by _test.go files.
package simcluster

import (
	"container/heap"
	"time"

	"github.com/quorumkv/raft/pkg/raft"
)

// VirtualClock is a manually-advanced clock. Advance fires every due
// callback in deadline order, breaking ties by registration order, so a
// sequence of Advance calls against identical timer registrations always
// produces the same callback order across runs.
type VirtualClock struct {
	elapsed time.Duration
	seq     uint64
	pending timerHeap
}

func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// NewTimer returns a raft.Timer bound to this clock. A node's two logical
// timers each need their own handle so cancelling one never disturbs the
// other.
func (c *VirtualClock) NewTimer() raft.Timer {
	return &virtualTimer{clock: c}
}

// Advance moves the clock forward by d, firing every callback whose
// deadline now falls at or before the new time, in deadline order.
func (c *VirtualClock) Advance(d time.Duration) {
	target := c.elapsed + d

	for c.pending.Len() > 0 && c.pending[0].fireAt <= target {
		entry := heap.Pop(&c.pending).(*timerEntry)
		c.elapsed = entry.fireAt

		if entry.timer.activeGen == entry.gen {
			entry.callback()
		}
	}

	c.elapsed = target
}

// Elapsed reports total time advanced so far.
func (c *VirtualClock) Elapsed() time.Duration {
	return c.elapsed
}

func (c *VirtualClock) schedule(vt *virtualTimer, d time.Duration, callback func()) uint64 {
	vt.activeGen++
	gen := vt.activeGen

	heap.Push(&c.pending, &timerEntry{
		fireAt:   c.elapsed + d,
		seq:      c.seq,
		timer:    vt,
		gen:      gen,
		callback: callback,
	})
	c.seq++

	return gen
}

type virtualTimer struct {
	clock     *VirtualClock
	activeGen uint64
}

func (t *virtualTimer) Reset(d time.Duration, callback func()) raft.Cancel {
	gen := t.clock.schedule(t, d, callback)

	return func() {
		if t.activeGen == gen {
			t.activeGen++
		}
	}
}

type timerEntry struct {
	fireAt   time.Duration
	seq      uint64
	timer    *virtualTimer
	gen      uint64
	callback func()
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAt != h[j].fireAt {
		return h[i].fireAt < h[j].fireAt
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) {
	*h = append(*h, x.(*timerEntry))
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
