// Package publish is the client-facing commit notifier: a fan-out
// broadcaster the HTTP write handler subscribes to before issuing an
// AppendData, so it can wait for its own index to appear without the core
// itself knowing anything about HTTP requests.
package publish

import (
	"sync"

	"github.com/quorumkv/raft/pkg/raft"
)

const subscriberBuffer = 16

// Publisher fans out committed LogCoords to every live subscriber.
// Publish never blocks: a subscriber whose buffer is full simply misses
// that notification, since callbacks must not stall Node.OnMessage. It
// implements raft.Callbacks so it can sit in a driver.MultiCallbacks next to
// the key-value applier and the SSE event broadcaster.
type Publisher struct {
	raft.NoopCallbacks

	mu          sync.Mutex
	subscribers map[int]chan raft.LogCoords
	nextID      int
}

func NewPublisher() *Publisher {
	return &Publisher{subscribers: make(map[int]chan raft.LogCoords)}
}

// Subscribe registers a new listener and returns its channel plus a cancel
// function that must be called when the caller stops listening.
func (p *Publisher) Subscribe() (<-chan raft.LogCoords, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++

	ch := make(chan raft.LogCoords, subscriberBuffer)
	p.subscribers[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subscribers[id]; ok {
			delete(p.subscribers, id)
			close(ch)
		}
	}

	return ch, cancel
}

// Publish delivers coords to every live subscriber, dropping it for any
// subscriber whose buffer is currently full.
func (p *Publisher) Publish(coords raft.LogCoords) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subscribers {
		select {
		case ch <- coords:
		default:
		}
	}
}

// OnCommit adapts Publish to the raft.Callbacks.OnCommit signature.
func (p *Publisher) OnCommit(coords raft.LogCoords, _ raft.LogEntry) {
	p.Publish(coords)
}
