// Package transport carries RaftRequest/RaftResponse envelopes between
// nodes over HTTP/JSON, routed through a chi router.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/quorumkv/raft/pkg/raft"
)

// EncodeMessage wraps a RaftRequest or RaftResponse in the tagged envelope
// {"type": "...", "value": {...}}.
func EncodeMessage(msg interface{}) ([]byte, error) {
	var msgType string

	switch msg.(type) {
	case raft.AppendEntriesRequest:
		msgType = "appendEntriesRequest"
	case raft.RequestVoteRequest:
		msgType = "requestVoteRequest"
	case raft.AppendEntriesResponse:
		msgType = "appendEntriesResponse"
	case raft.RequestVoteResponse:
		msgType = "requestVoteResponse"
	default:
		return nil, fmt.Errorf("cannot encode message of type %T", msg)
	}

	envelope := struct {
		Type  string      `json:"type"`
		Value interface{} `json:"value"`
	}{
		Type:  msgType,
		Value: msg,
	}

	return json.Marshal(envelope)
}

// DecodeRequest decodes an inbound RPC envelope into the RaftRequest it
// carries. Only requests arrive over POST /raft/rpc; responses to requests
// this node sent are correlated and decoded by Client instead.
func DecodeRequest(data []byte) (raft.RaftRequest, error) {
	var envelope struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("cannot decode envelope: %w", err)
	}

	switch envelope.Type {
	case "appendEntriesRequest":
		var req raft.AppendEntriesRequest
		if err := json.Unmarshal(envelope.Value, &req); err != nil {
			return nil, fmt.Errorf("cannot decode appendEntriesRequest: %w", err)
		}
		return req, nil

	case "requestVoteRequest":
		var req raft.RequestVoteRequest
		if err := json.Unmarshal(envelope.Value, &req); err != nil {
			return nil, fmt.Errorf("cannot decode requestVoteRequest: %w", err)
		}
		return req, nil

	default:
		return nil, fmt.Errorf("unexpected request type %q", envelope.Type)
	}
}

// DecodeResponse decodes the body of a reply to an RPC this node sent.
func DecodeResponse(data []byte) (raft.RaftResponse, error) {
	var envelope struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("cannot decode envelope: %w", err)
	}

	switch envelope.Type {
	case "appendEntriesResponse":
		var resp raft.AppendEntriesResponse
		if err := json.Unmarshal(envelope.Value, &resp); err != nil {
			return nil, fmt.Errorf("cannot decode appendEntriesResponse: %w", err)
		}
		return resp, nil

	case "requestVoteResponse":
		var resp raft.RequestVoteResponse
		if err := json.Unmarshal(envelope.Value, &resp); err != nil {
			return nil, fmt.Errorf("cannot decode requestVoteResponse: %w", err)
		}
		return resp, nil

	default:
		return nil, fmt.Errorf("unexpected response type %q", envelope.Type)
	}
}
