package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumkv/raft/pkg/raft"
)

func TestEncodeDecode_AppendEntriesRequestRoundTrips(t *testing.T) {
	original := raft.AppendEntriesRequest{
		PrevCoords:  raft.LogCoords{Term: 1, Index: 2},
		ReqTerm:     3,
		CommitIndex: 2,
		Entries:     []raft.LogEntry{{Term: 3, Data: []byte("x")}},
	}

	data, err := EncodeMessage(original)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestEncodeDecode_RequestVoteRequestRoundTrips(t *testing.T) {
	original := raft.RequestVoteRequest{ReqTerm: 5, LastLog: raft.LogCoords{Term: 4, Index: 9}}

	data, err := EncodeMessage(original)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestEncodeDecode_AppendEntriesResponseRoundTrips(t *testing.T) {
	original := raft.AppendEntriesResponse{RespTerm: 2, Success: true, MatchIndex: 7}

	data, err := EncodeMessage(original)
	require.NoError(t, err)

	decoded, err := DecodeResponse(data)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestEncodeDecode_RequestVoteResponseRoundTrips(t *testing.T) {
	original := raft.RequestVoteResponse{RespTerm: 2, Granted: false}

	data, err := EncodeMessage(original)
	require.NoError(t, err)

	decoded, err := DecodeResponse(data)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestEncodeMessage_RejectsUnknownType(t *testing.T) {
	_, err := EncodeMessage(struct{}{})
	require.Error(t, err)
}

func TestDecodeRequest_RejectsResponseEnvelope(t *testing.T) {
	data, err := EncodeMessage(raft.AppendEntriesResponse{RespTerm: 1})
	require.NoError(t, err)

	_, err = DecodeRequest(data)
	require.Error(t, err)
}

func TestDecodeResponse_RejectsRequestEnvelope(t *testing.T) {
	data, err := EncodeMessage(raft.RequestVoteRequest{ReqTerm: 1})
	require.NoError(t, err)

	_, err = DecodeResponse(data)
	require.Error(t, err)
}

func TestDecodeRequest_RejectsMalformedJSON(t *testing.T) {
	_, err := DecodeRequest([]byte("not json"))
	require.Error(t, err)
}
