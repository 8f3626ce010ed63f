package raft

import "fmt"

// NodeId identifies a cluster member. It is opaque to the core.
type NodeId string

// Term is a monotonically non-decreasing election epoch.
type Term int64

// Index is a 1-based position in the replicated log.
type Index int64

// LogCoords locates an entry in the replicated log by (term, index).
type LogCoords struct {
	Term  Term
	Index Index
}

// Empty denotes "before any entry": no term, no index.
var Empty = LogCoords{Term: 0, Index: 0}

func (c LogCoords) String() string {
	return fmt.Sprintf("(term=%d, index=%d)", c.Term, c.Index)
}

// Less orders coordinates lexicographically on (term, index), the ordering
// the log-up-to-date check and the log itself both rely on.
func (c LogCoords) Less(other LogCoords) bool {
	if c.Term != other.Term {
		return c.Term < other.Term
	}
	return c.Index < other.Index
}

// LogEntry is a single (term, data) pair. Data is opaque to the core.
type LogEntry struct {
	Term Term
	Data []byte
}

// ClusterView is the set of peer identifiers, excluding self.
type ClusterView map[NodeId]struct{}

func NewClusterView(peers ...NodeId) ClusterView {
	view := make(ClusterView, len(peers))
	for _, p := range peers {
		view[p] = struct{}{}
	}
	return view
}

func (c ClusterView) Size() int {
	return len(c)
}

func (c ClusterView) Contains(id NodeId) bool {
	_, found := c[id]
	return found
}

func (c ClusterView) Peers() []NodeId {
	peers := make([]NodeId, 0, len(c))
	for id := range c {
		peers = append(peers, id)
	}
	return peers
}
