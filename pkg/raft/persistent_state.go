package raft

// TermStore is the durability hook PersistentState mirrors currentTerm and
// votedFor writes to. Production wiring backs this with the filesystem
// store of internal/store; tests use an in-memory fake.
type TermStore interface {
	SetCurrentTerm(Term) error
	SetVotedFor(term Term, candidate NodeId) error
}

// PersistentState holds the two fields Raft requires to survive a restart:
// the current term and, per term, at most one recorded vote.
type PersistentState struct {
	currentTerm Term
	votedFor    map[Term]NodeId

	store TermStore
}

func NewPersistentState() *PersistentState {
	return &PersistentState{votedFor: make(map[Term]NodeId)}
}

func NewPersistentStateWithStore(store TermStore) *PersistentState {
	return &PersistentState{votedFor: make(map[Term]NodeId), store: store}
}

// LoadPersistentState reconstructs state already read back from a store,
// without re-mirroring it.
func LoadPersistentState(currentTerm Term, votedFor map[Term]NodeId, store TermStore) *PersistentState {
	if votedFor == nil {
		votedFor = make(map[Term]NodeId)
	}
	return &PersistentState{currentTerm: currentTerm, votedFor: votedFor, store: store}
}

func (p *PersistentState) CurrentTerm() Term {
	return p.currentTerm
}

func (p *PersistentState) VotedFor(term Term) (NodeId, bool) {
	id, found := p.votedFor[term]
	return id, found
}

// SetCurrentTerm persists a new term. Decreasing currentTerm is a
// programmer error: it violates term monotonicity and aborts the node.
func (p *PersistentState) SetCurrentTerm(term Term) {
	if term < p.currentTerm {
		Panicf("cannot decrease currentTerm from %d to %d", p.currentTerm, term)
	}
	if term == p.currentTerm {
		return
	}

	if p.store != nil {
		if err := p.store.SetCurrentTerm(term); err != nil {
			Panicf("cannot persist currentTerm: %v", err)
		}
	}
	p.currentTerm = term
}

// recordVote persists a vote for candidate in term. Recording a second,
// different vote in the same term is a programmer error (vote uniqueness).
func (p *PersistentState) recordVote(term Term, candidate NodeId) {
	if existing, found := p.votedFor[term]; found && existing != candidate {
		Panicf("double vote in term %d: already voted for %q, asked for %q",
			term, existing, candidate)
	}

	if p.store != nil {
		if err := p.store.SetVotedFor(term, candidate); err != nil {
			Panicf("cannot persist vote: %v", err)
		}
	}
	p.votedFor[term] = candidate
}

// RequestVoteReq is the payload of a RequestVote RPC, as seen by CastVote.
type RequestVoteReq struct {
	CandidateTerm Term
	CandidateLast LogCoords
}

// RequestVoteResult is the outcome of CastVote.
type RequestVoteResult struct {
	Term    Term
	Granted bool
}

// CastVote applies the RequestVote rules: term bump if the candidate is
// ahead, deny if already voted for someone else this term, grant only if
// the candidate's log is at least as up to date as latestLocal.
func (p *PersistentState) CastVote(latestLocal LogCoords, from NodeId, req RequestVoteReq) RequestVoteResult {
	if req.CandidateTerm < p.currentTerm {
		return RequestVoteResult{Term: p.currentTerm, Granted: false}
	}

	if req.CandidateTerm > p.currentTerm {
		p.SetCurrentTerm(req.CandidateTerm)
	}

	if existing, found := p.votedFor[req.CandidateTerm]; found && existing != from {
		return RequestVoteResult{Term: p.currentTerm, Granted: false}
	}

	logUpToDate := req.CandidateLast.Term > latestLocal.Term ||
		(req.CandidateLast.Term == latestLocal.Term && req.CandidateLast.Index >= latestLocal.Index)

	if !logUpToDate {
		return RequestVoteResult{Term: p.currentTerm, Granted: false}
	}

	p.recordVote(req.CandidateTerm, from)

	return RequestVoteResult{Term: p.currentTerm, Granted: true}
}
