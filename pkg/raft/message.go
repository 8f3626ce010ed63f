package raft

import "fmt"

// RaftRequest is the sum type of RPCs a node can receive from a peer.
type RaftRequest interface {
	Term() Term
	fmt.Stringer
}

// RaftResponse is the sum type of replies a node can receive from a peer.
type RaftResponse interface {
	Term() Term
	fmt.Stringer
}

type AppendEntriesRequest struct {
	PrevCoords  LogCoords
	ReqTerm     Term
	CommitIndex Index
	Entries     []LogEntry
}

func (r AppendEntriesRequest) Term() Term { return r.ReqTerm }

func (r AppendEntriesRequest) String() string {
	return fmt.Sprintf("AppendEntries{prev: %v, term: %d, commit: %d, entries: %d}",
		r.PrevCoords, r.ReqTerm, r.CommitIndex, len(r.Entries))
}

type AppendEntriesResponse struct {
	RespTerm   Term
	Success    bool
	MatchIndex Index
}

func (r AppendEntriesResponse) Term() Term { return r.RespTerm }

func (r AppendEntriesResponse) String() string {
	return fmt.Sprintf("AppendEntriesResponse{term: %d, success: %v, matchIndex: %d}",
		r.RespTerm, r.Success, r.MatchIndex)
}

type RequestVoteRequest struct {
	ReqTerm Term
	LastLog LogCoords
}

func (r RequestVoteRequest) Term() Term { return r.ReqTerm }

func (r RequestVoteRequest) String() string {
	return fmt.Sprintf("RequestVote{term: %d, lastLog: %v}", r.ReqTerm, r.LastLog)
}

type RequestVoteResponse struct {
	RespTerm Term
	Granted  bool
}

func (r RequestVoteResponse) Term() Term { return r.RespTerm }

func (r RequestVoteResponse) String() string {
	return fmt.Sprintf("RequestVoteResponse{term: %d, granted: %v}", r.RespTerm, r.Granted)
}

// Input is the sum type of things a node's single entry point consumes.
type Input interface {
	fmt.Stringer
}

type AddressedMessage struct {
	From     NodeId
	Request  RaftRequest  // set if this carries a request
	Response RaftResponse // set if this carries a response
}

func (m AddressedMessage) String() string {
	if m.Request != nil {
		return fmt.Sprintf("AddressedMessage{from: %s, request: %v}", m.From, m.Request)
	}
	return fmt.Sprintf("AddressedMessage{from: %s, response: %v}", m.From, m.Response)
}

type TimerKind string

const (
	ReceiveHeartbeatTimeout TimerKind = "receive-heartbeat-timeout"
	SendHeartbeatTimeout    TimerKind = "send-heartbeat-timeout"
)

type TimerMessage struct {
	Kind TimerKind
}

func (m TimerMessage) String() string {
	return fmt.Sprintf("TimerMessage{%s}", m.Kind)
}

type AppendData struct {
	Entries [][]byte
}

func (m AppendData) String() string {
	return fmt.Sprintf("AppendData{%d entries}", len(m.Entries))
}

// Result is the sum type of outputs a node's onMessage call produces.
type Result interface {
	fmt.Stringer
}

type NoOp struct {
	Reason string
}

func (r NoOp) String() string {
	return fmt.Sprintf("NoOp{%s}", r.Reason)
}

type AddressedOutgoing struct {
	Peer    NodeId
	Request RaftRequest
}

type AddressedRequest struct {
	Messages []AddressedOutgoing
}

func (r AddressedRequest) String() string {
	return fmt.Sprintf("AddressedRequest{%d messages}", len(r.Messages))
}

type AddressedResponse struct {
	Peer     NodeId
	Response RaftResponse
}

func (r AddressedResponse) String() string {
	return fmt.Sprintf("AddressedResponse{peer: %s, response: %v}", r.Peer, r.Response)
}
