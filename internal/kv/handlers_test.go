package kv

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/quorumkv/raft/pkg/raft"
)

type fakeAppender struct {
	coords raft.LogCoords
	result raft.Result
}

func (a *fakeAppender) AppendAndWait(entries [][]byte) (raft.LogCoords, raft.Result) {
	return a.coords, a.result
}

type fakeCommitWaiter struct {
	ch chan raft.LogCoords
}

func newFakeCommitWaiter() *fakeCommitWaiter {
	return &fakeCommitWaiter{ch: make(chan raft.LogCoords, 4)}
}

func (w *fakeCommitWaiter) Subscribe() (<-chan raft.LogCoords, func()) {
	return w.ch, func() {}
}

func newTestRouter(store *Store, appender Appender, commits CommitWaiter) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandlers(store, appender, commits))
	return r
}

func TestHandlers_GetOnMissingKey(t *testing.T) {
	store := NewStore()
	r := newTestRouter(store, &fakeAppender{}, newFakeCommitWaiter())

	req := httptest.NewRequest("GET", "/store/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok":false`)
}

func TestHandlers_PutWaitsForItsOwnCommitThenReturns(t *testing.T) {
	store := NewStore()
	commits := newFakeCommitWaiter()
	appender := &fakeAppender{
		coords: raft.LogCoords{Term: 1, Index: 3},
		result: raft.AddressedRequest{},
	}
	r := newTestRouter(store, appender, commits)

	req := httptest.NewRequest("PUT", "/store/k", strings.NewReader(`{"value":"v"}`))
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	commits.ch <- raft.LogCoords{Term: 1, Index: 3}
	<-done

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `"index":3`)
}

func TestHandlers_PutAgainstNonLeaderReturnsConflict(t *testing.T) {
	store := NewStore()
	appender := &fakeAppender{result: raft.NoOp{Reason: "not leader; leader is b"}}
	r := newTestRouter(store, appender, newFakeCommitWaiter())

	req := httptest.NewRequest("PUT", "/store/k", strings.NewReader(`{"value":"v"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, 409, rec.Code)
	require.Contains(t, rec.Body.String(), "leader is b")
}

func TestHandlers_ListReflectsAppliedState(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Apply(EncodeOp(&OpPut{Key: "k", Value: "v"})))

	r := newTestRouter(store, &fakeAppender{}, newFakeCommitWaiter())

	req := httptest.NewRequest("GET", "/store/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `"k":"v"`)
}
