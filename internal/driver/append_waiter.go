package driver

import "github.com/quorumkv/raft/pkg/raft"

// AppendWaiter lets a caller outside the owning goroutine learn where its
// AppendData landed in the log, by reading Node.LatestAppended back on the
// same Loop job that performed the append — nothing else can have appended
// in between, since the node is single-owner.
type AppendWaiter struct {
	loop *Loop
	node *raft.Node
}

func NewAppendWaiter(loop *Loop, node *raft.Node) *AppendWaiter {
	return &AppendWaiter{loop: loop, node: node}
}

func (a *AppendWaiter) AppendAndWait(entries [][]byte) (raft.LogCoords, raft.Result) {
	type outcome struct {
		coords raft.LogCoords
		result raft.Result
	}

	ch := make(chan outcome, 1)

	a.loop.Post(func() {
		result := a.node.OnMessage(raft.AppendData{Entries: entries})
		ch <- outcome{coords: a.node.LatestAppended(), result: result}
	})

	o := <-ch
	return o.coords, o.result
}
