package kv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumkv/raft/pkg/raft"
)

func TestApplier_AppliesEachCommittedIndexOnce(t *testing.T) {
	store := NewStore()
	var errs []error
	applier := NewApplier(store, func(_ raft.LogCoords, err error) { errs = append(errs, err) })

	entry := raft.LogEntry{Data: EncodeOp(&OpPut{Key: "k", Value: "v"})}
	coords := raft.LogCoords{Term: 1, Index: 1}

	applier.OnCommit(coords, entry)
	applier.OnCommit(coords, entry) // replay of the same commit must be a no-op

	require.Empty(t, errs)
	value, found := store.Get("k")
	require.True(t, found)
	require.Equal(t, "v", value)
}

func TestApplier_SkipsIndexesAtOrBelowWatermark(t *testing.T) {
	store := NewStore()
	applier := NewApplier(store, nil)

	applier.OnCommit(raft.LogCoords{Term: 1, Index: 2}, raft.LogEntry{Data: EncodeOp(&OpPut{Key: "k", Value: "second"})})
	applier.OnCommit(raft.LogCoords{Term: 1, Index: 1}, raft.LogEntry{Data: EncodeOp(&OpPut{Key: "k", Value: "stale"})})

	value, _ := store.Get("k")
	require.Equal(t, "second", value)
}

func TestApplier_ReportsApplyErrorsWithoutAdvancingWatermark(t *testing.T) {
	store := NewStore()
	var reported []raft.LogCoords
	applier := NewApplier(store, func(coords raft.LogCoords, _ error) { reported = append(reported, coords) })

	applier.OnCommit(raft.LogCoords{Term: 1, Index: 1}, raft.LogEntry{Data: []byte("garbage")})

	require.Equal(t, []raft.LogCoords{{Term: 1, Index: 1}}, reported)
}
