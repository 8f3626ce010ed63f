package raft

// RoleChangeEvent is fired on every transition to a distinct role.
type RoleChangeEvent struct {
	Term Term
	Old  RoleKind
	New  RoleKind
}

// Callbacks are fire-and-forget observer hooks invoked synchronously from
// well-defined points inside onMessage. Implementations must not call back
// into the node that invoked them; doing so is undefined behavior the core
// does not guard against.
type Callbacks interface {
	OnRoleChange(event RoleChangeEvent)
	OnNewLeader(leader NodeId)
	OnCommit(coords LogCoords, entry LogEntry)
}

// NoopCallbacks implements Callbacks with no-ops. Embed it to satisfy the
// interface while overriding only the hooks a caller cares about.
type NoopCallbacks struct{}

func (NoopCallbacks) OnRoleChange(RoleChangeEvent) {}
func (NoopCallbacks) OnNewLeader(NodeId)           {}
func (NoopCallbacks) OnCommit(LogCoords, LogEntry) {}
