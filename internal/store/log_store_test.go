package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumkv/raft/pkg/raft"
)

func TestLogStore_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.data")

	s, entries, err := Open(path)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, s.AppendEntries(1, []raft.LogEntry{
		{Term: 1, Data: []byte("a")},
		{Term: 1, Data: []byte("b")},
	}))
	s.Close()

	reopened, replayed, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, []raft.LogEntry{
		{Term: 1, Data: []byte("a")},
		{Term: 1, Data: []byte("b")},
	}, replayed)
}

func TestLogStore_AppendRejectsNonContiguousIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.data")
	s, _, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	err = s.AppendEntries(5, []raft.LogEntry{{Term: 1, Data: []byte("x")}})
	require.Error(t, err)
}

func TestLogStore_TruncateFromDropsTailAndSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.data")
	s, _, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.AppendEntries(1, []raft.LogEntry{
		{Term: 1, Data: []byte("a")},
		{Term: 1, Data: []byte("b")},
		{Term: 1, Data: []byte("c")},
	}))

	require.NoError(t, s.TruncateFrom(2))
	require.NoError(t, s.AppendEntries(2, []raft.LogEntry{{Term: 2, Data: []byte("b2")}}))
	s.Close()

	_, replayed, err := Open(path)
	require.NoError(t, err)

	require.Equal(t, []raft.LogEntry{
		{Term: 1, Data: []byte("a")},
		{Term: 2, Data: []byte("b2")},
	}, replayed)
}

func TestLogStore_TruncateFromBeyondEndIsANoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.data")
	s, _, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AppendEntries(1, []raft.LogEntry{{Term: 1, Data: []byte("a")}}))
	require.NoError(t, s.TruncateFrom(10))
}
