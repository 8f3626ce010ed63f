package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumkv/raft/pkg/raft"
)

func TestClient_DispatchSendsEveryAddressedRequestMessage(t *testing.T) {
	var mu sync.Mutex
	var received []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = append(received, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	servers := ServerSet{
		"peer": {PublicAddress: server.Listener.Addr().String()},
	}
	client := NewClient("self", servers, nil)

	client.Dispatch(raft.AddressedRequest{Messages: []raft.AddressedOutgoing{
		{Peer: "peer", Request: raft.RequestVoteRequest{ReqTerm: 1, LastLog: raft.Empty}},
	}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClient_DispatchIgnoresUnknownPeerWithoutPanicking(t *testing.T) {
	client := NewClient("self", ServerSet{}, nil)

	require.NotPanics(t, func() {
		client.Dispatch(raft.AddressedResponse{
			Peer:     "ghost",
			Response: raft.AppendEntriesResponse{RespTerm: 1},
		})
		time.Sleep(50 * time.Millisecond)
	})
}

func TestClient_DispatchIgnoresNoOpAndAddressedResponseIsSentDirectly(t *testing.T) {
	var gotHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Raft-Source-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	servers := ServerSet{"peer": {PublicAddress: server.Listener.Addr().String()}}
	client := NewClient("self-id", servers, nil)

	client.Dispatch(raft.NoOp{Reason: "nothing to send"})
	client.Dispatch(raft.AddressedResponse{Peer: "peer", Response: raft.RequestVoteResponse{RespTerm: 1, Granted: true}})

	require.Eventually(t, func() bool {
		return gotHeader == "self-id"
	}, time.Second, 10*time.Millisecond)
}
