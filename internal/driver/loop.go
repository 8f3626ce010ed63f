// Package driver provides the single owning goroutine a production Node
// needs: everything that would otherwise call Node.OnMessage from its own
// goroutine — a fired time.AfterFunc, an HTTP handler — instead posts a
// closure to this loop, which runs them one at a time, in arrival order,
// on one goroutine. This is a channel-and-select main loop pulled into its
// own package so the HTTP transport and the real timers can share it
// without either calling into the node directly.
package driver

import (
	"github.com/quorumkv/raft/pkg/raft"
)

// Loop serializes access to a single raft.Node.
type Loop struct {
	node *raft.Node
	jobs chan func()
	done chan struct{}

	onPanic func(value interface{})
}

func NewLoop(node *raft.Node, onPanic func(value interface{})) *Loop {
	return &Loop{
		node:    node,
		jobs:    make(chan func(), 64),
		done:    make(chan struct{}),
		onPanic: onPanic,
	}
}

// SetNode attaches the Node this Loop drives. Used when the Loop must exist
// before the Node can be constructed, because the Node's own Timers need a
// Loop to post their callbacks onto; call it once, before Run.
func (l *Loop) SetNode(node *raft.Node) {
	l.node = node
}

// Post schedules fn to run on the loop's goroutine. Safe to call from any
// goroutine, including a timer callback or an HTTP handler.
func (l *Loop) Post(fn func()) {
	select {
	case l.jobs <- fn:
	case <-l.done:
	}
}

// Dispatch posts input to the node and runs fn with the result, on the
// loop's goroutine. Convenience wrapper around Post for the common case of
// "deliver this input, then do something with what came back".
func (l *Loop) Dispatch(input raft.Input, fn func(raft.Result)) {
	l.Post(func() {
		fn(l.node.OnMessage(input))
	})
}

// Run drains jobs until Stop is called. Call once, from a dedicated
// goroutine.
func (l *Loop) Run() {
	for {
		select {
		case job := <-l.jobs:
			l.runJob(job)
		case <-l.done:
			return
		}
	}
}

func (l *Loop) runJob(job func()) {
	defer func() {
		if value := recover(); value != nil {
			if l.onPanic != nil {
				l.onPanic(value)
			}
		}
	}()

	job()
}

func (l *Loop) Stop() {
	close(l.done)
}
