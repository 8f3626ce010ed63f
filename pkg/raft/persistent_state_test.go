package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPersistentState_CastVoteGrantsWhenLogUpToDate(t *testing.T) {
	p := NewPersistentState()

	result := p.CastVote(LogCoords{Term: 1, Index: 3}, "b", RequestVoteReq{
		CandidateTerm: 2,
		CandidateLast: LogCoords{Term: 1, Index: 3},
	})

	require.True(t, result.Granted)
	require.Equal(t, Term(2), result.Term)
	require.Equal(t, Term(2), p.CurrentTerm())

	voted, found := p.VotedFor(2)
	require.True(t, found)
	require.Equal(t, NodeId("b"), voted)
}

func TestPersistentState_CastVoteDeniesStaleLog(t *testing.T) {
	p := NewPersistentState()

	result := p.CastVote(LogCoords{Term: 2, Index: 5}, "b", RequestVoteReq{
		CandidateTerm: 3,
		CandidateLast: LogCoords{Term: 1, Index: 10},
	})

	require.False(t, result.Granted)
}

func TestPersistentState_CastVoteDeniesLowerTerm(t *testing.T) {
	p := NewPersistentState()
	p.SetCurrentTerm(5)

	result := p.CastVote(Empty, "b", RequestVoteReq{CandidateTerm: 3, CandidateLast: Empty})

	require.False(t, result.Granted)
	require.Equal(t, Term(5), result.Term)
}

func TestPersistentState_CastVoteIsOncePerTerm(t *testing.T) {
	p := NewPersistentState()

	first := p.CastVote(Empty, "a", RequestVoteReq{CandidateTerm: 1, CandidateLast: Empty})
	second := p.CastVote(Empty, "b", RequestVoteReq{CandidateTerm: 1, CandidateLast: Empty})

	require.True(t, first.Granted)
	require.False(t, second.Granted)
}

func TestPersistentState_CastVoteRepeatingSameCandidateIsIdempotent(t *testing.T) {
	p := NewPersistentState()

	first := p.CastVote(Empty, "a", RequestVoteReq{CandidateTerm: 1, CandidateLast: Empty})
	second := p.CastVote(Empty, "a", RequestVoteReq{CandidateTerm: 1, CandidateLast: Empty})

	require.True(t, first.Granted)
	require.True(t, second.Granted)
}

func TestPersistentState_SetCurrentTermPanicsOnDecrease(t *testing.T) {
	p := NewPersistentState()
	p.SetCurrentTerm(5)

	require.Panics(t, func() { p.SetCurrentTerm(4) })
}

func TestPersistentState_DoubleVoteForDifferentCandidatePanics(t *testing.T) {
	p := NewPersistentState()
	p.CastVote(Empty, "a", RequestVoteReq{CandidateTerm: 1, CandidateLast: Empty})

	require.Panics(t, func() {
		p.recordVote(1, "b")
	})
}

type fakeTermStore struct {
	terms []Term
	votes []NodeId
}

func (s *fakeTermStore) SetCurrentTerm(t Term) error {
	s.terms = append(s.terms, t)
	return nil
}

func (s *fakeTermStore) SetVotedFor(term Term, candidate NodeId) error {
	s.votes = append(s.votes, candidate)
	return nil
}

func TestPersistentState_MirrorsToStore(t *testing.T) {
	store := &fakeTermStore{}
	p := NewPersistentStateWithStore(store)

	p.CastVote(Empty, "a", RequestVoteReq{CandidateTerm: 1, CandidateLast: Empty})

	require.Equal(t, []Term{1}, store.terms)
	require.Equal(t, []NodeId{"a"}, store.votes)
}

func TestLoadPersistentStateRestoresWithoutRemirroring(t *testing.T) {
	store := &fakeTermStore{}
	p := LoadPersistentState(7, map[Term]NodeId{7: "x"}, store)

	require.Equal(t, Term(7), p.CurrentTerm())
	voted, found := p.VotedFor(7)
	require.True(t, found)
	require.Equal(t, NodeId("x"), voted)
	require.Empty(t, store.terms)
}
