package raft

// RoleKind tags which of the three role variants a currentState holds.
type RoleKind string

const (
	RoleFollower  RoleKind = "follower"
	RoleCandidate RoleKind = "candidate"
	RoleLeader    RoleKind = "leader"
)

// Peer is the leader's replication view of one follower.
type Peer struct {
	NextIndex  Index
	MatchIndex Index
}

// FollowerState is the role held by a node that is not currently contesting
// or holding leadership.
type FollowerState struct {
	Id     NodeId
	Leader *NodeId // nil until a valid leader is observed
}

func NewFollowerState(id NodeId, leader *NodeId) *FollowerState {
	return &FollowerState{Id: id, Leader: leader}
}

// CandidateState tallies votes for an election this node started.
type CandidateState struct {
	Id           NodeId
	ElectionTerm Term
	ClusterSize  int

	votesFor     map[NodeId]struct{}
	votesAgainst map[NodeId]struct{}
}

func NewCandidateState(id NodeId, electionTerm Term, clusterSize int) *CandidateState {
	return &CandidateState{
		Id:           id,
		ElectionTerm: electionTerm,
		ClusterSize:  clusterSize,
		votesFor:     make(map[NodeId]struct{}),
		votesAgainst: make(map[NodeId]struct{}),
	}
}

func (c *CandidateState) VoteCount() int {
	return len(c.votesFor) + 1 // +1 for the pre-counted self-vote
}

// VoteOutcome is what onVote decides should happen to the node's role.
type VoteOutcome string

const (
	VoteOutcomeRemainCandidate VoteOutcome = "remain-candidate"
	VoteOutcomeBecomeLeader    VoteOutcome = "become-leader"
	VoteOutcomeStaleTerm       VoteOutcome = "stale-term"
)

// OnVote records a vote response and reports what should happen next. A
// higher-term response means this candidacy is stale; the caller is
// responsible for performing the actual term bump and role transition.
func (c *CandidateState) OnVote(from NodeId, response RequestVoteResponse) VoteOutcome {
	if response.Term() > c.ElectionTerm {
		return VoteOutcomeStaleTerm
	}

	if response.Granted {
		c.votesFor[from] = struct{}{}
	} else {
		c.votesAgainst[from] = struct{}{}
	}

	if c.VoteCount() > c.ClusterSize/2 {
		return VoteOutcomeBecomeLeader
	}

	return VoteOutcomeRemainCandidate
}

// LeaderState is the role held by the node currently driving replication.
type LeaderState struct {
	Id          NodeId
	ClusterView map[NodeId]*Peer
}

func NewLeaderState(id NodeId, cluster ClusterView, latestAppended Index) *LeaderState {
	view := make(map[NodeId]*Peer, len(cluster))
	for peer := range cluster {
		view[peer] = &Peer{NextIndex: latestAppended + 1, MatchIndex: 0}
	}
	return &LeaderState{Id: id, ClusterView: view}
}

func (l *LeaderState) peer(id NodeId) *Peer {
	p, found := l.ClusterView[id]
	if !found {
		Panicf("unknown peer %q in leader's cluster view", id)
	}
	return p
}
