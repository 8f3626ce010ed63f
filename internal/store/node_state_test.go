package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumkv/raft/pkg/raft"
)

func TestNodeState_LoadOnFreshDirectoryIsEmpty(t *testing.T) {
	ns, err := Load(filepath.Join(t.TempDir(), "node-a"))
	require.NoError(t, err)
	defer ns.Close()

	require.Equal(t, raft.Term(0), ns.PersistentState.CurrentTerm())
	require.Equal(t, raft.Empty, ns.Log.LatestAppended())
}

func TestNodeState_SurvivesRestartAcrossProcesses(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "node-a")

	ns, err := Load(dir)
	require.NoError(t, err)

	ns.PersistentState.SetCurrentTerm(4)
	ns.Log.Append(raft.Empty, []raft.LogEntry{{Term: 4, Data: []byte("x")}})
	ns.Close()

	reopened, err := Load(dir)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, raft.Term(4), reopened.PersistentState.CurrentTerm())
	require.Equal(t, raft.LogCoords{Term: 4, Index: 1}, reopened.Log.LatestAppended())
}
