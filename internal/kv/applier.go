package kv

import "github.com/quorumkv/raft/pkg/raft"

// Applier feeds every committed entry the core reports to Store.Apply,
// exactly once and in index order, tracking the last-applied watermark
// itself since the core's commit callback only guarantees strict index
// order, not exactly-once delivery. It implements raft.Callbacks so it
// can sit directly in a driver.MultiCallbacks alongside the other observers,
// ignoring the two hooks it doesn't care about via the embedded NoopCallbacks.
type Applier struct {
	raft.NoopCallbacks

	store       *Store
	lastApplied raft.Index

	onError func(coords raft.LogCoords, err error)
}

func NewApplier(store *Store, onError func(raft.LogCoords, error)) *Applier {
	return &Applier{store: store, onError: onError}
}

func (a *Applier) OnCommit(coords raft.LogCoords, entry raft.LogEntry) {
	if coords.Index <= a.lastApplied {
		return
	}

	if err := a.store.Apply(entry.Data); err != nil {
		if a.onError != nil {
			a.onError(coords, err)
		}
		return
	}

	a.lastApplied = coords.Index
}
