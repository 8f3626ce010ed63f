package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func entries(terms ...Term) []LogEntry {
	out := make([]LogEntry, len(terms))
	for i, t := range terms {
		out[i] = LogEntry{Term: t, Data: []byte("x")}
	}
	return out
}

func TestLog_AppendAtEmptyPrevCoords(t *testing.T) {
	log := NewLog()

	result := log.Append(Empty, entries(1, 1))

	require.True(t, result.Ok())
	require.Equal(t, LogCoords{Term: 1, Index: 1}, result.First)
	require.Equal(t, LogCoords{Term: 1, Index: 2}, result.Last)
	require.Equal(t, LogCoords{Term: 1, Index: 2}, log.LatestAppended())
}

func TestLog_AppendHeartbeatNeverRejectedWhenPrevMatches(t *testing.T) {
	log := NewLog()
	log.Append(Empty, entries(1, 1))

	result := log.Append(LogCoords{Term: 1, Index: 2}, nil)

	require.True(t, result.Ok())
	require.Equal(t, Index(2), log.LatestAppended().Index)
}

func TestLog_AppendRejectsMissingPrev(t *testing.T) {
	log := NewLog()

	result := log.Append(LogCoords{Term: 1, Index: 5}, entries(1))

	require.Equal(t, AppendMissingPrev, result.Status)
	require.False(t, result.Ok())
}

func TestLog_AppendTruncatesConflictingTail(t *testing.T) {
	log := NewLog()
	log.Append(Empty, entries(1, 1, 1))

	result := log.Append(LogCoords{Term: 1, Index: 1}, entries(2, 2))

	require.True(t, result.Ok())
	require.Equal(t, []Index{2, 3}, result.Replaced)
	require.Equal(t, LogCoords{Term: 2, Index: 3}, log.LatestAppended())

	term, found := log.TermForIndex(2)
	require.True(t, found)
	require.Equal(t, Term(2), term)
}

func TestLog_AppendIsIdempotent(t *testing.T) {
	log := NewLog()
	log.Append(Empty, entries(1, 1))

	first := log.Append(LogCoords{Term: 1, Index: 2}, entries(1))
	log2 := NewLog()
	log2.Append(Empty, entries(1, 1))
	log2.Append(LogCoords{Term: 1, Index: 2}, entries(1))
	second := log2.Append(LogCoords{Term: 1, Index: 2}, entries(1))

	require.True(t, first.Ok())
	require.True(t, second.Ok())
	require.Equal(t, log.LatestAppended(), log2.LatestAppended())
}

func TestLog_AppendLocalNeverTruncates(t *testing.T) {
	log := NewLog()
	log.Append(Empty, entries(1, 1))

	first, last := log.AppendLocal(2, [][]byte{[]byte("a"), []byte("b")})

	require.Equal(t, LogCoords{Term: 2, Index: 3}, first)
	require.Equal(t, LogCoords{Term: 2, Index: 4}, last)
	require.Equal(t, Index(4), log.LatestAppended().Index)

	term, found := log.TermForIndex(1)
	require.True(t, found)
	require.Equal(t, Term(1), term)
}

func TestLog_CommitAdvancesMonotonically(t *testing.T) {
	log := NewLog()
	log.Append(Empty, entries(1, 1, 1))

	committed := log.Commit(2)
	require.Equal(t, []LogCoords{{Term: 1, Index: 1}, {Term: 1, Index: 2}}, committed)
	require.Equal(t, Index(2), log.LatestCommit())

	none := log.Commit(1)
	require.Nil(t, none)
	require.Equal(t, Index(2), log.LatestCommit())
}

func TestLog_CommitCannotExceedLatestAppended(t *testing.T) {
	log := NewLog()
	log.Append(Empty, entries(1))

	committed := log.Commit(99)

	require.Equal(t, Index(1), log.LatestCommit())
	require.Equal(t, []LogCoords{{Term: 1, Index: 1}}, committed)
}

func TestLog_ContainsEmptyIsAlwaysTrue(t *testing.T) {
	log := NewLog()
	log.Append(Empty, entries(1))

	require.True(t, log.Contains(Empty))
}

type recordingStore struct {
	appended  []LogEntry
	truncated []Index
}

func (s *recordingStore) AppendEntries(fromIndex Index, entries []LogEntry) error {
	s.appended = append(s.appended, entries...)
	return nil
}

func (s *recordingStore) TruncateFrom(index Index) error {
	s.truncated = append(s.truncated, index)
	return nil
}

func TestLog_MirrorsAppendsAndTruncationsToStore(t *testing.T) {
	store := &recordingStore{}
	log := NewLogWithStore(store)

	log.Append(Empty, entries(1, 1))
	require.Len(t, store.appended, 2)

	log.Append(LogCoords{Term: 1, Index: 1}, entries(2))
	require.Equal(t, []Index{2}, store.truncated)
}
