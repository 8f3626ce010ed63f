package transport

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quorumkv/raft/pkg/raft"
)

// newHTTPClient uses a fixed 2-second client timeout; since Dispatch runs
// each send on its own goroutine, a slow peer never blocks the caller.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 10 * time.Second,
		}).DialContext,

		MaxIdleConns:          30,
		IdleConnTimeout:       60 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   2 * time.Second,
		Transport: transport,
	}
}

// Client dispatches this node's outgoing RaftRequest/RaftResponse results
// to peers over HTTP, asynchronously and without retrying; replication
// retry is the heartbeat's job.
type Client struct {
	selfId  raft.NodeId
	servers ServerSet
	http    *http.Client
	logger  raft.Logger
}

func NewClient(selfId raft.NodeId, servers ServerSet, logger raft.Logger) *Client {
	if logger == nil {
		logger = raft.NoopLogger{}
	}
	return &Client{selfId: selfId, servers: servers, http: newHTTPClient(), logger: logger}
}

// Dispatch sends every outgoing message a Result carries: each message of
// an AddressedRequest, and the reply of an AddressedResponse, to its peer.
// A NoOp sends nothing.
func (c *Client) Dispatch(result raft.Result) {
	switch r := result.(type) {
	case raft.AddressedRequest:
		for _, msg := range r.Messages {
			go c.send(msg.Peer, msg.Request)
		}
	case raft.AddressedResponse:
		go c.send(r.Peer, r.Response)
	}
}

func (c *Client) send(peer raft.NodeId, msg interface{}) {
	defer func() {
		if value := recover(); value != nil {
			c.logger.Error("panic sending to %s: %s", peer, raft.RecoverValueString(value))
		}
	}()

	server, found := c.servers[peer]
	if !found {
		c.logger.Error("cannot send to unknown peer %q", peer)
		return
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		c.logger.Error("cannot encode message to %s: %v", peer, err)
		return
	}

	uri := url.URL{Scheme: "http", Host: server.PublicAddress, Path: "/raft/rpc"}

	req, err := http.NewRequest(http.MethodPost, uri.String(), bytes.NewReader(data))
	if err != nil {
		c.logger.Error("cannot build request to %s: %v", peer, err)
		return
	}
	req.Header.Set("X-Raft-Source-Id", string(c.selfId))
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("cannot send to %s: %v", peer, err)
		return
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		c.logger.Error("request to %s failed with status %d: %s",
			peer, res.StatusCode, firstLine(string(body)))
	}
}

func firstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
