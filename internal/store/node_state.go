package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quorumkv/raft/pkg/raft"
)

// NodeState bundles the two filesystem stores for one node's data directory
// and the in-memory raft.Log / raft.PersistentState they back.
type NodeState struct {
	Log             *raft.Log
	PersistentState *raft.PersistentState

	persistentStore *PersistentStore
	logStore        *LogStore
}

// Load opens (creating if absent) the data directory's persistent-state.json
// and log.data, replaying both into ready-to-use raft.Log / raft.PersistentState
// values.
func Load(dataDirectory string) (*NodeState, error) {
	if err := os.MkdirAll(dataDirectory, 0700); err != nil {
		return nil, fmt.Errorf("cannot create data directory %q: %w", dataDirectory, err)
	}

	pstore := NewPersistentStore(filepath.Join(dataDirectory, "persistent-state.json"))
	currentTerm, votedFor, err := pstore.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot open persistent state: %w", err)
	}

	lstore, entries, err := Open(filepath.Join(dataDirectory, "log.data"))
	if err != nil {
		pstore.Close()
		return nil, fmt.Errorf("cannot open log: %w", err)
	}

	pstate := raft.LoadPersistentState(currentTerm, votedFor, pstore)
	log := raft.LoadLog(entries, 0, lstore)

	return &NodeState{
		Log:             log,
		PersistentState: pstate,
		persistentStore: pstore,
		logStore:        lstore,
	}, nil
}

func (n *NodeState) Close() {
	n.logStore.Close()
	n.persistentStore.Close()
}
