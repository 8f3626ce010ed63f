package kv

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quorumkv/raft/pkg/raft"
)

const commitWaitTimeout = 3 * time.Second

// Appender performs an AppendData and reports where it landed, plus the
// core's immediate result (a NoOp naming the known leader when this node
// isn't one). Implemented by internal/driver.AppendWaiter.
type Appender interface {
	AppendAndWait(entries [][]byte) (raft.LogCoords, raft.Result)
}

// CommitWaiter lets the write handler block until its own index is
// committed. Implemented by internal/publish.Publisher.
type CommitWaiter interface {
	Subscribe() (<-chan raft.LogCoords, func())
}

// Handlers wires the key-value store's HTTP surface to the node: writes
// translate to AppendData and wait for their own commit, reads are served
// directly from Store (eventually consistent, per the linearizability
// non-goal).
type Handlers struct {
	store    *Store
	appender Appender
	commits  CommitWaiter
}

func NewHandlers(store *Store, appender Appender, commits CommitWaiter) *Handlers {
	return &Handlers{store: store, appender: appender, commits: commits}
}

func RegisterRoutes(r chi.Router, h *Handlers) {
	r.Route("/store", func(r chi.Router) {
		r.Get("/", h.list())
		r.Get("/{key}", h.get())
		r.Put("/{key}", h.put())
		r.Delete("/{key}", h.delete())
	})
}

func (h *Handlers) list() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, h.store.List())
	}
}

func (h *Handlers) get() http.HandlerFunc {
	type resp struct {
		Value string `json:"value"`
		Ok    bool   `json:"ok"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		value, ok := h.store.Get(key)
		respondJSON(w, http.StatusOK, resp{Value: value, Ok: ok})
	}
}

func (h *Handlers) put() http.HandlerFunc {
	type reqBody struct {
		Value string `json:"value"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		var req reqBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		h.write(w, r, EncodeOp(&OpPut{Key: key, Value: req.Value}))
	}
}

func (h *Handlers) delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		h.write(w, r, EncodeOp(&OpDelete{Key: key}))
	}
}

func (h *Handlers) write(w http.ResponseWriter, r *http.Request, data []byte) {
	ch, cancel := h.commits.Subscribe()
	defer cancel()

	coords, result := h.appender.AppendAndWait([][]byte{data})

	if noop, notLeader := result.(raft.NoOp); notLeader {
		respondJSON(w, http.StatusConflict, struct {
			Error string `json:"error"`
		}{Error: noop.Reason})
		return
	}

	ctx, done := context.WithTimeout(r.Context(), commitWaitTimeout)
	defer done()

	for {
		select {
		case <-ctx.Done():
			respondJSON(w, http.StatusGatewayTimeout, struct {
				Error string `json:"error"`
			}{Error: "timed out waiting for commit"})
			return

		case committed, ok := <-ch:
			if !ok {
				return
			}
			if committed.Index >= coords.Index {
				respondJSON(w, http.StatusOK, struct {
					Ok    bool       `json:"ok"`
					Index raft.Index `json:"index"`
				}{Ok: true, Index: coords.Index})
				return
			}
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
