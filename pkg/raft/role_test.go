package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCandidateState_BecomesLeaderAtMajority(t *testing.T) {
	c := NewCandidateState("a", 1, 5) // self + 4 peers

	require.Equal(t, VoteOutcomeRemainCandidate, c.OnVote("b", RequestVoteResponse{RespTerm: 1, Granted: true}))
	require.Equal(t, VoteOutcomeBecomeLeader, c.OnVote("c", RequestVoteResponse{RespTerm: 1, Granted: true}))
}

func TestCandidateState_DenialsNeverWinTheElection(t *testing.T) {
	c := NewCandidateState("a", 1, 5)

	require.Equal(t, VoteOutcomeRemainCandidate, c.OnVote("b", RequestVoteResponse{RespTerm: 1, Granted: false}))
	require.Equal(t, VoteOutcomeRemainCandidate, c.OnVote("c", RequestVoteResponse{RespTerm: 1, Granted: false}))
	require.Equal(t, VoteOutcomeRemainCandidate, c.OnVote("d", RequestVoteResponse{RespTerm: 1, Granted: false}))
}

func TestCandidateState_HigherTermResponseIsStale(t *testing.T) {
	c := NewCandidateState("a", 1, 3)

	require.Equal(t, VoteOutcomeStaleTerm, c.OnVote("b", RequestVoteResponse{RespTerm: 2, Granted: false}))
}

func TestCandidateState_TwoNodeClusterEitherSideCanWin(t *testing.T) {
	c := NewCandidateState("a", 1, 2)

	require.Equal(t, VoteOutcomeBecomeLeader, c.OnVote("b", RequestVoteResponse{RespTerm: 1, Granted: true}))
}

func TestCandidateState_SingleNodeClusterWinsOnSelfVoteAlone(t *testing.T) {
	c := NewCandidateState("a", 1, 1)

	require.Equal(t, 1, c.VoteCount())
}

func TestLeaderState_InitializesPeersAtNextAppendedIndex(t *testing.T) {
	cluster := NewClusterView("b", "c")
	l := NewLeaderState("a", cluster, 7)

	require.Len(t, l.ClusterView, 2)
	for _, peer := range l.ClusterView {
		require.Equal(t, Index(8), peer.NextIndex)
		require.Equal(t, Index(0), peer.MatchIndex)
	}
}

func TestLeaderState_PeerPanicsOnUnknownPeer(t *testing.T) {
	l := NewLeaderState("a", NewClusterView("b"), 0)

	require.Panics(t, func() { l.peer("z") })
}
