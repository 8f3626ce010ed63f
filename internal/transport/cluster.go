package transport

import "github.com/quorumkv/raft/pkg/raft"

// ServerInfo is one cluster member's address: LocalAddress is what this
// process binds to, PublicAddress is what peers dial.
type ServerInfo struct {
	LocalAddress  string `json:"localAddress"`
	PublicAddress string `json:"publicAddress"`
}

// ServerSet maps every cluster member, including self, to its addresses.
type ServerSet map[raft.NodeId]ServerInfo
