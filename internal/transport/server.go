package transport

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quorumkv/raft/pkg/raft"
)

// Dispatcher delivers an Input to the node's single owning goroutine and
// runs fn with the Result once it comes back. Implemented by
// internal/driver.Loop; defined here as a one-method interface (the
// pattern the core already uses for Timer/Logger) so this package never has
// to import the driver package.
type Dispatcher interface {
	Dispatch(input raft.Input, fn func(raft.Result))
}

// StatusProvider is the read-only slice of Node the /raft/status endpoint
// reports. Implemented by *raft.Node.
type StatusProvider interface {
	Role() raft.RoleKind
	CurrentTerm() raft.Term
	CurrentLeader() (raft.NodeId, bool)
	CommitIndex() raft.Index
}

// NewRouter builds the chi router exposing the raft wire protocol, status,
// and event-stream endpoints, in the middleware style of isparth's
// httpapi.NewRouter. The returned chi.Router also satisfies http.Handler, and
// callers (cmd/raftd) mount the key-value store's routes onto the same
// instance so both surfaces share one listener.
func NewRouter(dispatcher Dispatcher, status StatusProvider, events *EventBroadcaster, logger raft.Logger) chi.Router {
	if logger == nil {
		logger = raft.NoopLogger{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/raft", func(r chi.Router) {
		r.Post("/rpc", handleRPC(dispatcher, logger))
		r.Get("/status", handleStatus(status))
		r.Get("/events", handleEvents(events))
	})

	return r
}

func handleRPC(dispatcher Dispatcher, logger raft.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceId := r.Header.Get("X-Raft-Source-Id")
		if sourceId == "" {
			http.Error(w, "missing X-Raft-Source-Id header", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "cannot read request body", http.StatusInternalServerError)
			return
		}

		req, err := DecodeRequest(body)
		if err != nil {
			logger.Error("invalid rpc from %s: %v", sourceId, err)
			http.Error(w, "invalid message", http.StatusBadRequest)
			return
		}

		input := raft.AddressedMessage{From: raft.NodeId(sourceId), Request: req}

		resultCh := make(chan raft.Result, 1)
		dispatcher.Dispatch(input, func(result raft.Result) {
			resultCh <- result
		})

		// Block this request's goroutine until the node's owning goroutine
		// has processed the input; only then is it safe to write w, since
		// nothing else writes to it concurrently.
		writeRPCResult(w, <-resultCh, logger)
	}
}

func writeRPCResult(w http.ResponseWriter, result raft.Result, logger raft.Logger) {
	resp, ok := result.(raft.AddressedResponse)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data, err := EncodeMessage(resp.Response)
	if err != nil {
		logger.Error("cannot encode rpc response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func handleStatus(status StatusProvider) http.HandlerFunc {
	type resp struct {
		Role        raft.RoleKind `json:"role"`
		Term        raft.Term     `json:"term"`
		LeaderId    raft.NodeId   `json:"leaderId,omitempty"`
		CommitIndex raft.Index    `json:"commitIndex"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		leaderId, _ := status.CurrentLeader()

		respondJSON(w, http.StatusOK, resp{
			Role:        status.Role(),
			Term:        status.CurrentTerm(),
			LeaderId:    leaderId,
			CommitIndex: status.CommitIndex(),
		})
	}
}
