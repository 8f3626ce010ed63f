package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/quorumkv/raft/pkg/raft"
)

const eventSubscriberBuffer = 32

type sseEvent struct {
	name string
	data []byte
}

// EventBroadcaster implements raft.Callbacks and fans role-change and
// commit notifications out to /raft/events subscribers over
// Server-Sent-Events — the one observability surface in this repository
// with no library precedent anywhere in the example corpus, so it is built
// directly on net/http's response flusher (see DESIGN.md).
type EventBroadcaster struct {
	raft.NoopCallbacks

	mu          sync.Mutex
	subscribers map[int]chan sseEvent
	nextID      int
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{subscribers: make(map[int]chan sseEvent)}
}

func (b *EventBroadcaster) subscribe() (<-chan sseEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan sseEvent, eventSubscriberBuffer)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}

	return ch, cancel
}

func (b *EventBroadcaster) broadcast(event sseEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *EventBroadcaster) OnRoleChange(e raft.RoleChangeEvent) {
	data, _ := json.Marshal(e)
	b.broadcast(sseEvent{name: "roleChange", data: data})
}

func (b *EventBroadcaster) OnNewLeader(leader raft.NodeId) {
	data, _ := json.Marshal(struct {
		Leader raft.NodeId `json:"leader"`
	}{Leader: leader})
	b.broadcast(sseEvent{name: "newLeader", data: data})
}

func (b *EventBroadcaster) OnCommit(coords raft.LogCoords, _ raft.LogEntry) {
	data, _ := json.Marshal(struct {
		Term  raft.Term  `json:"term"`
		Index raft.Index `json:"index"`
	}{Term: coords.Term, Index: coords.Index})
	b.broadcast(sseEvent{name: "commit", data: data})
}

func handleEvents(events *EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ch, cancel := events.subscribe()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.name, event.data)
				flusher.Flush()
			}
		}
	}
}
