package simcluster

import "github.com/quorumkv/raft/pkg/raft"

type queuedMessage struct {
	to    raft.NodeId
	input raft.AddressedMessage
}

// Network is an in-process router from NodeId to Node. Outgoing messages a
// node's OnMessage produces are queued, never delivered synchronously, and
// only reach their recipient's OnMessage on a later Pump call, so that
// message delivery never re-enters OnMessage on the node that produced it.
type Network struct {
	nodes   map[raft.NodeId]*raft.Node
	blocked map[raft.NodeId]map[raft.NodeId]bool

	queue []queuedMessage
}

func NewNetwork() *Network {
	return &Network{
		nodes:   make(map[raft.NodeId]*raft.Node),
		blocked: make(map[raft.NodeId]map[raft.NodeId]bool),
	}
}

func (net *Network) Register(id raft.NodeId, node *raft.Node) {
	net.nodes[id] = node
}

// Deliver queues every message a Result carries for delivery on a later
// Pump call. Called with the sender's id and the Result its OnMessage just
// produced.
func (net *Network) Deliver(from raft.NodeId, result raft.Result) {
	switch r := result.(type) {
	case raft.AddressedRequest:
		for _, m := range r.Messages {
			net.enqueue(from, m.Peer, raft.AddressedMessage{From: from, Request: m.Request})
		}
	case raft.AddressedResponse:
		net.enqueue(from, r.Peer, raft.AddressedMessage{From: from, Response: r.Response})
	}
}

func (net *Network) enqueue(from, to raft.NodeId, input raft.AddressedMessage) {
	if net.isBlocked(from, to) {
		return
	}
	net.queue = append(net.queue, queuedMessage{to: to, input: input})
}

// Partition drops every message crossing between groupA and groupB in
// either direction, until Heal is called.
func (net *Network) Partition(groupA, groupB []raft.NodeId) {
	for _, a := range groupA {
		for _, b := range groupB {
			net.block(a, b)
			net.block(b, a)
		}
	}
}

func (net *Network) Heal() {
	net.blocked = make(map[raft.NodeId]map[raft.NodeId]bool)
}

func (net *Network) block(from, to raft.NodeId) {
	if net.blocked[from] == nil {
		net.blocked[from] = make(map[raft.NodeId]bool)
	}
	net.blocked[from][to] = true
}

func (net *Network) isBlocked(from, to raft.NodeId) bool {
	return net.blocked[from] != nil && net.blocked[from][to]
}

// Pump delivers every currently queued message to its recipient's
// OnMessage, queuing whatever those calls produce for the next Pump rather
// than processing it in this one. Returns how many messages it delivered.
func (net *Network) Pump() int {
	current := net.queue
	net.queue = nil

	for _, qm := range current {
		node, found := net.nodes[qm.to]
		if !found {
			continue
		}

		result := node.OnMessage(qm.input)
		net.Deliver(qm.to, result)
	}

	return len(current)
}

// PumpUntilIdle calls Pump until it delivers nothing or maxRounds is
// reached, draining cascades of messages (e.g. an election's vote requests
// and their responses) without the caller having to guess how many rounds
// a scenario takes. Returns false if maxRounds was exhausted with messages
// still queued, meaning the scenario didn't converge in time.
func (net *Network) PumpUntilIdle(maxRounds int) bool {
	for i := 0; i < maxRounds; i++ {
		if net.Pump() == 0 {
			return true
		}
	}
	return len(net.queue) == 0
}
