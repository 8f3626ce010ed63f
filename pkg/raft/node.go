package raft

// DefaultMaxAppendSize bounds how many entries a retried AppendEntries
// carries after a nextIndex decrement.
const DefaultMaxAppendSize = 64

// Cfg configures a Node.
type Cfg struct {
	Id      NodeId
	Cluster ClusterView

	Log             *Log
	PersistentState *PersistentState
	Timers          *Timers
	Callbacks       Callbacks
	Logger          Logger

	// ResultSink, if set, receives the Result of every OnMessage call the
	// node triggers on itself by firing one of its own timers (an election
	// start's RequestVote broadcast, a heartbeat's AppendEntries broadcast).
	// Those calls have no external caller to hand the Result back to, unlike
	// every other Input variant, whose caller already holds OnMessage's
	// return value directly. Production wiring sets this to the transport
	// Client's Dispatch method; the simulated-time harness sets it to hand
	// the Result to its Network for delivery.
	ResultSink func(Result)

	MaxAppendSize int
}

// currentState is the tagged variant holding exactly one of the three role
// structs at any moment. Exactly one of the three fields is non-nil.
type currentState struct {
	follower  *FollowerState
	candidate *CandidateState
	leader    *LeaderState
}

func (s currentState) kind() RoleKind {
	switch {
	case s.candidate != nil:
		return RoleCandidate
	case s.leader != nil:
		return RoleLeader
	default:
		return RoleFollower
	}
}

// Node is the single-threaded Raft state machine. Exactly one logical
// owner must drive it: onMessage must never be called concurrently with
// itself, and every call returns a complete Result before the next input
// may be processed.
type Node struct {
	id      NodeId
	cluster ClusterView

	log    *Log
	pstate *PersistentState
	timers *Timers
	cb     Callbacks
	logger Logger

	maxAppendSize int
	resultSink    func(Result)

	state currentState
}

func NewNode(cfg Cfg) *Node {
	cb := cfg.Callbacks
	if cb == nil {
		cb = NoopCallbacks{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NoopLogger{}
	}

	maxAppendSize := cfg.MaxAppendSize
	if maxAppendSize <= 0 {
		maxAppendSize = DefaultMaxAppendSize
	}

	n := &Node{
		id:            cfg.Id,
		cluster:       cfg.Cluster,
		log:           cfg.Log,
		pstate:        cfg.PersistentState,
		timers:        cfg.Timers,
		cb:            cb,
		logger:        logger,
		maxAppendSize: maxAppendSize,
		resultSink:    cfg.ResultSink,
	}

	leader := (*NodeId)(nil)
	n.state = currentState{follower: NewFollowerState(n.id, leader)}

	return n
}

// Start arms the receive-heartbeat timer so the node begins participating
// in the cluster. Call once, after construction.
func (n *Node) Start() {
	n.timers.ResetReceiveHeartbeat(n.deliverTimer(ReceiveHeartbeatTimeout))
}

// deliverTimer wraps a TimerKind as the callback a Timer fires. In
// production, timer callbacks fire on whatever goroutine owns the real
// clock and must be funneled through the same single-consumer channel as
// every other input, preserving the one-input-at-a-time rule. Unlike every
// other Input variant, a timer firing has no external caller waiting on
// OnMessage's return value, so the Result it produces is handed to
// resultSink instead of being returned.
func (n *Node) deliverTimer(kind TimerKind) func() {
	return func() {
		result := n.OnMessage(TimerMessage{Kind: kind})
		if n.resultSink != nil {
			n.resultSink(result)
		}
	}
}

func (n *Node) Role() RoleKind {
	return n.state.kind()
}

func (n *Node) CurrentTerm() Term {
	return n.pstate.CurrentTerm()
}

func (n *Node) CurrentLeader() (NodeId, bool) {
	if n.state.follower != nil && n.state.follower.Leader != nil {
		return *n.state.follower.Leader, true
	}
	if n.state.leader != nil {
		return n.state.leader.Id, true
	}
	return "", false
}

// CommitIndex reports the log's current commit watermark, for operational
// visibility (e.g. the /raft/status endpoint); the core itself never
// queries this directly.
func (n *Node) CommitIndex() Index {
	return n.log.LatestCommit()
}

// LatestAppended reports the coordinates of the last entry in the log. A
// caller driving the node through its single owning goroutine can call this
// immediately after an AppendData input to learn where its write landed,
// since nothing else can have appended in between.
func (n *Node) LatestAppended() LogCoords {
	return n.log.LatestAppended()
}

// OnMessage is the single entry point into the core. An AddressedMessage
// goes to the request or response handlers, a TimerMessage to the timer
// handlers, and AppendData to the leader's append path (a NoOp on any other
// role).
func (n *Node) OnMessage(input Input) Result {
	switch msg := input.(type) {
	case AddressedMessage:
		return n.onAddressedMessage(msg)
	case TimerMessage:
		return n.onTimer(msg)
	case AppendData:
		return n.onAppendData(msg)
	default:
		Panicf("unknown input type %T", input)
		return nil
	}
}

func (n *Node) onAddressedMessage(msg AddressedMessage) Result {
	var term Term
	if msg.Request != nil {
		term = msg.Request.Term()
	} else {
		term = msg.Response.Term()
	}

	n.applyUniversalTermRule(term)

	if msg.Request != nil {
		switch req := msg.Request.(type) {
		case AppendEntriesRequest:
			resp := n.onAppendEntries(msg.From, req)
			return AddressedResponse{Peer: msg.From, Response: resp}
		case RequestVoteRequest:
			resp := n.onRequestVote(msg.From, req)
			return AddressedResponse{Peer: msg.From, Response: resp}
		default:
			Panicf("unknown request type %T", req)
		}
	}

	switch resp := msg.Response.(type) {
	case AppendEntriesResponse:
		return n.onAppendEntriesResponse(msg.From, resp)
	case RequestVoteResponse:
		return n.onRequestVoteResponse(msg.From, resp)
	default:
		Panicf("unknown response type %T", resp)
	}

	return nil
}

// applyUniversalTermRule bumps to Follower at a higher observed term
// before request/response handling proceeds.
func (n *Node) applyUniversalTermRule(term Term) {
	if term <= n.pstate.CurrentTerm() {
		return
	}

	n.pstate.SetCurrentTerm(term)
	n.transitionToFollower(nil)
}

func (n *Node) onTimer(msg TimerMessage) Result {
	switch msg.Kind {
	case ReceiveHeartbeatTimeout:
		return n.onReceiveHeartbeatTimeout()
	case SendHeartbeatTimeout:
		return n.onSendHeartbeatTimeout()
	default:
		Panicf("unknown timer kind %q", msg.Kind)
		return nil
	}
}

func (n *Node) onAppendData(msg AppendData) Result {
	if n.state.leader == nil {
		leaderId, known := n.CurrentLeader()
		reason := "not leader; leader is none"
		if known {
			reason = "not leader; leader is " + string(leaderId)
		}
		return NoOp{Reason: reason}
	}

	first, last := n.log.AppendLocal(n.pstate.CurrentTerm(), msg.Entries)
	n.logger.Debug(2, "appended %d entries at index %d", len(msg.Entries), first.Index)

	// Build each peer's AppendEntries from its current nextIndex, which
	// covers any outstanding backlog plus the range just appended, then
	// advance nextIndex optimistically past that range. A later rejection
	// walks it back down in onAppendEntriesResponse.
	messages := make([]AddressedOutgoing, 0, len(n.state.leader.ClusterView))
	for peerId, peer := range n.state.leader.ClusterView {
		messages = append(messages, AddressedOutgoing{
			Peer:    peerId,
			Request: n.buildAppendEntriesFor(peer),
		})
		if peer.NextIndex <= last.Index {
			peer.NextIndex = last.Index + 1
		}
	}

	return AddressedRequest{Messages: messages}
}

// --- request handlers ---

func (n *Node) onAppendEntries(from NodeId, req AppendEntriesRequest) AppendEntriesResponse {
	if req.ReqTerm < n.pstate.CurrentTerm() {
		return AppendEntriesResponse{RespTerm: n.pstate.CurrentTerm(), Success: false}
	}

	if n.state.leader != nil {
		Panicf("two leaders in term %d: %s received AppendEntries from %s while leader itself",
			req.ReqTerm, n.id, from)
	}

	if n.state.follower == nil {
		// A candidate observing legitimate leader traffic at its own
		// election term lost the election; convert to follower.
		leader := from
		n.transitionToFollower(&leader)
	} else if n.state.follower.Leader == nil {
		leader := from
		n.state.follower.Leader = &leader
		n.cb.OnNewLeader(from)
	}

	n.timers.ResetReceiveHeartbeat(n.deliverTimer(ReceiveHeartbeatTimeout))

	result := n.log.Append(req.PrevCoords, req.Entries)
	if !result.Ok() {
		n.logger.Debug(1, "rejected AppendEntries from %s: %s", from, result.Status)
		return AppendEntriesResponse{RespTerm: n.pstate.CurrentTerm(), Success: false}
	}

	committed := n.log.Commit(req.CommitIndex)
	n.fireCommitCallbacks(committed)

	return AppendEntriesResponse{
		RespTerm:   n.pstate.CurrentTerm(),
		Success:    true,
		MatchIndex: n.log.LatestAppended().Index,
	}
}

// onRequestVote delegates to PersistentState's vote rules. Any term bump
// the request triggers is already handled by the universal term rule
// applied before this handler runs, since RequestVote's term is the only
// term it carries.
func (n *Node) onRequestVote(from NodeId, req RequestVoteRequest) RequestVoteResponse {
	result := n.pstate.CastVote(n.log.LatestAppended(), from, RequestVoteReq{
		CandidateTerm: req.ReqTerm,
		CandidateLast: req.LastLog,
	})

	return RequestVoteResponse{RespTerm: result.Term, Granted: result.Granted}
}

// --- response handlers ---

func (n *Node) onRequestVoteResponse(from NodeId, resp RequestVoteResponse) Result {
	if n.state.candidate == nil {
		return NoOp{Reason: "not candidate"}
	}

	outcome := n.state.candidate.OnVote(from, resp)

	switch outcome {
	case VoteOutcomeStaleTerm:
		n.pstate.SetCurrentTerm(resp.Term())
		n.transitionToFollower(nil)
		return NoOp{Reason: "stale election term"}

	case VoteOutcomeBecomeLeader:
		return n.transitionToLeader()

	default:
		return NoOp{Reason: "vote recorded"}
	}
}

func (n *Node) onAppendEntriesResponse(from NodeId, resp AppendEntriesResponse) Result {
	if n.state.leader == nil {
		return NoOp{Reason: "not leader"}
	}

	if resp.RespTerm > n.pstate.CurrentTerm() {
		n.pstate.SetCurrentTerm(resp.RespTerm)
		n.transitionToFollower(nil)
		return NoOp{Reason: "stepped down: higher term observed"}
	}

	peer := n.state.leader.peer(from)

	if resp.Success {
		if resp.MatchIndex > peer.MatchIndex {
			peer.MatchIndex = resp.MatchIndex
		}
		peer.NextIndex = peer.MatchIndex + 1

		committed := n.advanceCommitIndex()
		n.fireCommitCallbacks(committed)

		return NoOp{Reason: "append acknowledged"}
	}

	if peer.NextIndex > 1 {
		peer.NextIndex--
	}

	return AddressedRequest{Messages: []AddressedOutgoing{{Peer: from, Request: n.buildAppendEntriesRetry(peer)}}}
}

// --- timer handlers ---

func (n *Node) onReceiveHeartbeatTimeout() Result {
	newTerm := n.pstate.CurrentTerm() + 1
	n.pstate.SetCurrentTerm(newTerm)

	selfVote := n.pstate.CastVote(n.log.LatestAppended(), n.id, RequestVoteReq{
		CandidateTerm: newTerm,
		CandidateLast: n.log.LatestAppended(),
	})
	if !selfVote.Granted {
		Panicf("node %s could not self-vote in its own election for term %d", n.id, newTerm)
	}

	n.timers.ResetReceiveHeartbeat(n.deliverTimer(ReceiveHeartbeatTimeout))

	if n.cluster.Size() == 0 {
		return n.transitionToLeader()
	}

	n.transitionToCandidate(newTerm)

	messages := make([]AddressedOutgoing, 0, n.cluster.Size())
	for _, peer := range n.cluster.Peers() {
		messages = append(messages, AddressedOutgoing{
			Peer: peer,
			Request: RequestVoteRequest{
				ReqTerm: newTerm,
				LastLog: n.log.LatestAppended(),
			},
		})
	}

	return AddressedRequest{Messages: messages}
}

func (n *Node) onSendHeartbeatTimeout() Result {
	if n.state.leader == nil {
		return NoOp{Reason: "not leader"}
	}

	n.timers.ResetSendHeartbeat(n.deliverTimer(SendHeartbeatTimeout))

	return n.buildReplicationRequests()
}

// --- role transitions ---

func (n *Node) fireRoleChange(newRole RoleKind) {
	old := n.state.kind()
	if old == newRole {
		return
	}
	n.cb.OnRoleChange(RoleChangeEvent{Term: n.pstate.CurrentTerm(), Old: old, New: newRole})
}

func (n *Node) transitionToFollower(leader *NodeId) {
	wasLeader := n.state.leader != nil
	n.fireRoleChange(RoleFollower)

	if wasLeader {
		n.timers.CancelSendHeartbeat()
	}

	n.state = currentState{follower: NewFollowerState(n.id, leader)}
	n.timers.ResetReceiveHeartbeat(n.deliverTimer(ReceiveHeartbeatTimeout))

	if leader != nil {
		n.cb.OnNewLeader(*leader)
	}
}

func (n *Node) transitionToCandidate(term Term) {
	n.fireRoleChange(RoleCandidate)
	n.state = currentState{candidate: NewCandidateState(n.id, term, n.cluster.Size()+1)}
}

func (n *Node) transitionToLeader() Result {
	n.fireRoleChange(RoleLeader)

	n.timers.CancelReceiveHeartbeat()
	n.state = currentState{leader: NewLeaderState(n.id, n.cluster, n.log.LatestAppended().Index)}
	n.timers.ResetSendHeartbeat(n.deliverTimer(SendHeartbeatTimeout))
	n.cb.OnNewLeader(n.id)

	return n.buildReplicationRequests()
}

// --- replication helpers ---

func (n *Node) buildReplicationRequests() Result {
	messages := make([]AddressedOutgoing, 0, len(n.state.leader.ClusterView))
	for peerId, peer := range n.state.leader.ClusterView {
		messages = append(messages, AddressedOutgoing{
			Peer:    peerId,
			Request: n.buildAppendEntriesFor(peer),
		})
	}
	return AddressedRequest{Messages: messages}
}

// buildAppendEntriesFor builds a normal-path AppendEntries, carrying every
// entry from the peer's nextIndex through the log's tip. maxAppendSize does
// not apply here; it only bounds buildAppendEntriesRetry below.
func (n *Node) buildAppendEntriesFor(peer *Peer) AppendEntriesRequest {
	return n.appendEntriesFor(peer, n.log.EntriesFromAll(peer.NextIndex))
}

// buildAppendEntriesRetry rebuilds an AppendEntries after a rejection, once
// nextIndex has been walked back, bounding the resend to maxAppendSize.
func (n *Node) buildAppendEntriesRetry(peer *Peer) AppendEntriesRequest {
	return n.appendEntriesFor(peer, n.log.EntriesFrom(peer.NextIndex, n.maxAppendSize))
}

func (n *Node) appendEntriesFor(peer *Peer, entries []LogEntry) AppendEntriesRequest {
	prevIndex := peer.NextIndex - 1
	prevCoords, found := n.log.CoordsForIndex(prevIndex)
	if !found {
		Panicf("leader has no coords for prevIndex %d", prevIndex)
	}

	return AppendEntriesRequest{
		PrevCoords:  prevCoords,
		ReqTerm:     n.pstate.CurrentTerm(),
		CommitIndex: n.log.LatestCommit(),
		Entries:     entries,
	}
}

// advanceCommitIndex finds the highest N > commitIndex such that a
// majority of peers (including self) have matchIndex >= N and
// log.termForIndex(N) == currentTerm, then commits up to N.
func (n *Node) advanceCommitIndex() []LogCoords {
	commitIndex := n.log.LatestCommit()
	lastIndex := n.log.LatestAppended().Index
	clusterSize := len(n.state.leader.ClusterView) + 1

	best := commitIndex
	for idx := lastIndex; idx > commitIndex; idx-- {
		term, found := n.log.TermForIndex(idx)
		if !found || term != n.pstate.CurrentTerm() {
			continue
		}

		replicated := 1 // self
		for _, peer := range n.state.leader.ClusterView {
			if peer.MatchIndex >= idx {
				replicated++
			}
		}

		if replicated > clusterSize/2 {
			best = idx
			break
		}
	}

	if best <= commitIndex {
		return nil
	}

	return n.log.Commit(best)
}

func (n *Node) fireCommitCallbacks(committed []LogCoords) {
	for _, coords := range committed {
		entries := n.log.EntriesFrom(coords.Index, 1)
		if len(entries) == 0 {
			Panicf("committed coords %v has no backing entry", coords)
		}
		n.cb.OnCommit(coords, entries[0])
	}
}
