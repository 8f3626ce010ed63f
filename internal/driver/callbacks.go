package driver

import "github.com/quorumkv/raft/pkg/raft"

// MultiCallbacks fans a single raft.Callbacks call out to every one of its
// members, in order. The node is constructed with exactly one Callbacks, but
// a running server has several independent consumers of role-change and
// commit notifications (the key-value applier, the commit publisher, the
// SSE event broadcaster); this is how they all get wired to the same Node.
type MultiCallbacks []raft.Callbacks

func (m MultiCallbacks) OnRoleChange(event raft.RoleChangeEvent) {
	for _, cb := range m {
		cb.OnRoleChange(event)
	}
}

func (m MultiCallbacks) OnNewLeader(leader raft.NodeId) {
	for _, cb := range m {
		cb.OnNewLeader(leader)
	}
}

func (m MultiCallbacks) OnCommit(coords raft.LogCoords, entry raft.LogEntry) {
	for _, cb := range m {
		cb.OnCommit(coords, entry)
	}
}
