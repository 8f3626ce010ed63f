// Package store holds the concrete filesystem encodings backing the core's
// abstract PersistentState and Log: a JSON term/vote file, rewritten in
// place (seek to start, truncate, encode, fsync) on every change, and a
// binary log segment that is appended to at its end and truncated in place,
// with an fsync after each change. Neither file is replaced atomically: a
// crash in the middle of a write can leave an empty or partial file or
// record on disk.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/quorumkv/raft/pkg/raft"
)

type onDiskState struct {
	CurrentTerm raft.Term   `json:"currentTerm"`
	VotedFor    raft.NodeId `json:"votedFor"`
}

// PersistentStore implements raft.TermStore against persistent-state.json.
type PersistentStore struct {
	filePath string
	file     *os.File

	state onDiskState
}

func NewPersistentStore(filePath string) *PersistentStore {
	return &PersistentStore{filePath: filePath}
}

// Open opens (creating if absent) the backing file and returns the term and
// vote it currently holds, for use with raft.LoadPersistentState.
func (s *PersistentStore) Open() (raft.Term, map[raft.Term]raft.NodeId, error) {
	file, err := os.OpenFile(s.filePath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return 0, nil, fmt.Errorf("cannot open %q: %w", s.filePath, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, nil, fmt.Errorf("cannot stat %q: %w", s.filePath, err)
	}

	s.file = file

	if info.Size() == 0 {
		if err := s.write(onDiskState{}); err != nil {
			file.Close()
			return 0, nil, fmt.Errorf("cannot write default state to %q: %w", s.filePath, err)
		}
		return 0, nil, nil
	}

	if err := s.read(); err != nil {
		file.Close()
		return 0, nil, err
	}

	votedFor := make(map[raft.Term]raft.NodeId)
	if s.state.VotedFor != "" {
		votedFor[s.state.CurrentTerm] = s.state.VotedFor
	}

	return s.state.CurrentTerm, votedFor, nil
}

func (s *PersistentStore) Close() {
	s.file.Close()
}

func (s *PersistentStore) read() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("cannot seek %q: %w", s.filePath, err)
	}

	d := json.NewDecoder(s.file)
	if err := d.Decode(&s.state); err != nil {
		return fmt.Errorf("cannot read json data from %q: %w", s.filePath, err)
	}

	return nil
}

func (s *PersistentStore) write(state onDiskState) error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("cannot seek %q: %w", s.filePath, err)
	}

	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("cannot truncate %q: %w", s.filePath, err)
	}

	e := json.NewEncoder(s.file)
	if err := e.Encode(&state); err != nil {
		return fmt.Errorf("cannot write json data to %q: %w", s.filePath, err)
	}

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("cannot sync %q: %w", s.filePath, err)
	}

	s.state = state

	return nil
}

// SetCurrentTerm implements raft.TermStore. Advancing the term clears any
// vote recorded for a now-superseded term, matching the single-slot disk
// encoding: only the current term's vote is ever worth persisting.
func (s *PersistentStore) SetCurrentTerm(term raft.Term) error {
	return s.write(onDiskState{CurrentTerm: term, VotedFor: ""})
}

// SetVotedFor implements raft.TermStore. Refuses to overwrite a vote
// already durable for term with a different candidate while currentTerm has
// not moved past it, guarding the vote-uniqueness invariant on disk as well
// as in memory.
func (s *PersistentStore) SetVotedFor(term raft.Term, candidate raft.NodeId) error {
	if term == s.state.CurrentTerm && s.state.VotedFor != "" && s.state.VotedFor != candidate {
		return fmt.Errorf("refusing to overwrite vote for %q with %q in term %d",
			s.state.VotedFor, candidate, term)
	}

	return s.write(onDiskState{CurrentTerm: term, VotedFor: candidate})
}
