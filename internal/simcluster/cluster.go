package simcluster

import (
	"math/rand"
	"time"

	"github.com/quorumkv/raft/pkg/raft"
)

// Cluster wires N nodes to a shared VirtualClock and Network, the harness
// tests drive directly with Advance/Pump instead of real time and sockets.
type Cluster struct {
	Clock   *VirtualClock
	Network *Network
	Nodes   map[raft.NodeId]*raft.Node

	electionTimeout   raft.TimeoutRange
	heartbeatInterval time.Duration
	callbacksFor      func(raft.NodeId) raft.Callbacks
}

type ClusterOpt func(*Cluster)

func WithElectionTimeout(r raft.TimeoutRange) ClusterOpt {
	return func(c *Cluster) { c.electionTimeout = r }
}

func WithHeartbeatInterval(d time.Duration) ClusterOpt {
	return func(c *Cluster) { c.heartbeatInterval = d }
}

// WithCallbacks attaches a raft.Callbacks to every node, built per-id so a
// test can record events separately per node.
func WithCallbacks(f func(raft.NodeId) raft.Callbacks) ClusterOpt {
	return func(c *Cluster) { c.callbacksFor = f }
}

// NewCluster builds a fully wired Cluster with one Node per id, each other
// id in its peer set.
func NewCluster(ids []raft.NodeId, opts ...ClusterOpt) *Cluster {
	c := &Cluster{
		Clock:   NewVirtualClock(),
		Network: NewNetwork(),
		Nodes:   make(map[raft.NodeId]*raft.Node),

		electionTimeout:   raft.TimeoutRange{Min: 100 * time.Millisecond, Max: 200 * time.Millisecond},
		heartbeatInterval: 20 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	for i, id := range ids {
		peers := make([]raft.NodeId, 0, len(ids)-1)
		for _, other := range ids {
			if other != id {
				peers = append(peers, other)
			}
		}

		var callbacks raft.Callbacks
		if c.callbacksFor != nil {
			callbacks = c.callbacksFor(id)
		}

		nodeId := id
		node := raft.NewNode(raft.Cfg{
			Id:      id,
			Cluster: raft.NewClusterView(peers...),

			Log:             raft.NewLog(),
			PersistentState: raft.NewPersistentState(),
			Timers: raft.NewTimers(
				c.Clock.NewTimer(), c.Clock.NewTimer(),
				c.electionTimeout, c.heartbeatInterval,
				// A distinct fixed seed per node keeps runs reproducible
				// while giving the nodes different election timeouts.
				rand.New(rand.NewSource(int64(i)+1)),
			),
			Callbacks: callbacks,
			// A timer-triggered OnMessage call (election start, heartbeat
			// broadcast) has no external caller to hand its Result to;
			// route it to the Network exactly like AppendOn already does
			// for client-triggered writes.
			ResultSink: func(result raft.Result) {
				c.Network.Deliver(nodeId, result)
			},
		})

		c.Nodes[id] = node
		c.Network.Register(id, node)
	}

	return c
}

// Start calls Start on every node, arming their receive-heartbeat timers.
func (c *Cluster) Start() {
	for _, node := range c.Nodes {
		node.Start()
	}
}

// Advance moves the virtual clock forward by d one millisecond at a time,
// draining every resulting cascade of messages after each step, so callers
// don't need to interleave Advance and Pump calls by hand for the common
// case.
func (c *Cluster) Advance(d time.Duration) {
	for remaining := d; remaining > 0; remaining -= time.Millisecond {
		step := time.Millisecond
		if remaining < step {
			step = remaining
		}
		c.Clock.Advance(step)
		c.Network.PumpUntilIdle(64)
	}
}

// AppendOn submits a client write to the named node's log, delivering the
// result to the network like any other node-produced output.
func (c *Cluster) AppendOn(id raft.NodeId, entries [][]byte) raft.Result {
	node := c.Nodes[id]
	result := node.OnMessage(raft.AppendData{Entries: entries})
	c.Network.Deliver(id, result)
	return result
}

// Leader returns the id of the node that currently believes itself Leader,
// if exactly one does.
func (c *Cluster) Leader() (raft.NodeId, bool) {
	var found raft.NodeId
	count := 0
	for id, node := range c.Nodes {
		if node.Role() == raft.RoleLeader {
			found = id
			count++
		}
	}
	if count == 1 {
		return found, true
	}
	return "", false
}
